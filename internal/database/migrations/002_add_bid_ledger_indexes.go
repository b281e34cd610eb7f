package migrations

import (
	"gorm.io/gorm"
)

// AddBidLedgerIndexes adds the indexes backing the canonical bid ranking
// and the expiry sweep. Raw SQL for control over composite ordering.
func AddBidLedgerIndexes(db *gorm.DB) error {
	indexes := []string{
		// Canonical ranking: amount descending, created_at ascending
		`CREATE INDEX IF NOT EXISTS idx_bid_records_ranking
		 ON bid_records(listing_id, amount DESC, created_at ASC)`,

		// Duplicate-amount guard lookups
		`CREATE INDEX IF NOT EXISTS idx_bid_records_bidder_amount
		 ON bid_records(listing_id, bidder_id, amount)`,

		// Bidder history, newest first
		`CREATE INDEX IF NOT EXISTS idx_bid_records_bidder_history
		 ON bid_records(listing_id, bidder_id, created_at DESC)`,

		// Expiry sweep over open listings
		`CREATE INDEX IF NOT EXISTS idx_auction_listings_status_timeout
		 ON auction_listings(status, timeout_at)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
