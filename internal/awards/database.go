package awards

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

func (d *Database) GetListing(listingID string) (*types.AuctionListing, error) {
	var listing types.AuctionListing
	if err := d.db.Where("listing_id = ?", listingID).First(&listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrListingNotFound
		}
		return nil, err
	}
	return &listing, nil
}

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

// AwardListing atomically transitions the listing OPEN -> AWARDED and
// persists the seller's transfer info in the same transaction. The
// update is compare-and-swap on (status, version): exactly one award
// can ever land, the loser of a race sees ErrInvalidState.
func (d *Database) AwardListing(listing *types.AuctionListing, bidID string, info *types.TransferInfo) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&types.AuctionListing{}).
			Where("listing_id = ? AND status = ? AND version = ?",
				listing.ListingID, types.StatusOpen, listing.Version).
			Updates(map[string]interface{}{
				"status":          types.StatusAwarded,
				"accepted_bid_id": bidID,
				"seller_step":     types.StepInitial,
				"buyer_step":      types.StepInitial,
				"version":         listing.Version + 1,
				"updated_at":      time.Now(),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to award listing: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return types.ErrInvalidState
		}

		if err := tx.Create(info).Error; err != nil {
			return fmt.Errorf("failed to save seller transfer info: %w", err)
		}

		return nil
	})
}
