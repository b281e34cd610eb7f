package bidding

import (
	"errors"
	"fmt"
	"time"

	"github.com/medibid/auction-api/internal/types"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// AppendBid appends a bid to the ledger. The listing re-read, the
// open/timeout check and the duplicate-amount check all run inside one
// transaction so concurrent appends on the same auction serialize and
// the duplicate guard is race-free.
func (d *Database) AppendBid(bid *types.BidRecord) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		var listing types.AuctionListing
		if err := tx.Where("listing_id = ?", bid.ListingID).First(&listing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.ErrListingNotFound
			}
			return err
		}

		if listing.OwnerID == bid.BidderID {
			return fmt.Errorf("owner cannot bid on own listing: %w", types.ErrForbidden)
		}

		if listing.Status != types.StatusOpen || !bid.CreatedAt.Before(listing.TimeoutAt) {
			return types.ErrAuctionClosed
		}

		var count int64
		if err := tx.Model(&types.BidRecord{}).
			Where("listing_id = ? AND bidder_id = ? AND amount = ?",
				bid.ListingID, bid.BidderID, bid.Amount).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return types.ErrDuplicateBid
		}

		return tx.Create(bid).Error
	})
}

// GetHighestBid returns the leader under the canonical ranking: amount
// descending, created_at ascending (first bidder at a price wins the
// tie), id ascending as the final stable tiebreaker.
func (d *Database) GetHighestBid(listingID string) (*types.BidRecord, error) {
	var bid types.BidRecord
	if err := d.db.Where("listing_id = ?", listingID).
		Order("amount DESC, created_at ASC, id ASC").
		First(&bid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bid, nil
}

// GetBids returns all bids for a listing in canonical ranking order.
func (d *Database) GetBids(listingID string) ([]types.BidRecord, error) {
	var bids []types.BidRecord
	if err := d.db.Where("listing_id = ?", listingID).
		Order("amount DESC, created_at ASC, id ASC").
		Find(&bids).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch bids: %w", err)
	}
	return bids, nil
}

// GetBidsByBidder returns one bidder's history, newest first. The
// (before, beforeID) cursor restarts the sequence from a previous
// page; the id term keeps bids sharing a timestamp from being skipped
// across a page boundary.
func (d *Database) GetBidsByBidder(listingID, bidderID string, limit int, before time.Time, beforeID uint) ([]types.BidRecord, error) {
	query := d.db.Where("listing_id = ? AND bidder_id = ?", listingID, bidderID)
	if !before.IsZero() {
		query = query.Where("created_at < ? OR (created_at = ? AND id < ?)", before, before, beforeID)
	}

	var bids []types.BidRecord
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&bids).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch bidder history: %w", err)
	}
	return bids, nil
}

// GetBid retrieves a bid by its ID.
func (d *Database) GetBid(bidID string) (*types.BidRecord, error) {
	var bid types.BidRecord
	if err := d.db.Where("bid_id = ?", bidID).First(&bid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrBidNotFound
		}
		return nil, err
	}
	return &bid, nil
}
