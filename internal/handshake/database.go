package handshake

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

// AdvanceListing applies one side's step update (plus any shared visit
// fields), conditional on the version observed by the caller. A lost
// race surfaces as ErrInvalidState; the client re-fetches and retries.
// When info is non-nil it persists in the same transaction.
func (d *Database) AdvanceListing(listing *types.AuctionListing, updates map[string]interface{}, info *types.TransferInfo) error {
	updates["version"] = listing.Version + 1
	updates["updated_at"] = time.Now()

	return d.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&types.AuctionListing{}).
			Where("listing_id = ? AND status = ? AND version = ?",
				listing.ListingID, types.StatusAwarded, listing.Version).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to advance listing: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return types.ErrInvalidState
		}

		if info != nil {
			if err := tx.Create(info).Error; err != nil {
				return fmt.Errorf("failed to save transfer info: %w", err)
			}
		}

		return nil
	})
}

// SetVisit writes only the shared visit fields. Single-row atomic
// update, last writer wins.
func (d *Database) SetVisit(listing *types.AuctionListing, visitDate, visitTime string) error {
	res := d.db.Model(&types.AuctionListing{}).
		Where("listing_id = ? AND status = ?", listing.ListingID, types.StatusAwarded).
		Updates(map[string]interface{}{
			"visit_date": visitDate,
			"visit_time": visitTime,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return types.ErrInvalidState
	}
	return nil
}

// CompleteSide records one side's terminal step. Whichever call finds
// the counterpart already terminal flips the listing to COMPLETED in
// the same transaction; neither call alone does.
func (d *Database) CompleteSide(listing *types.AuctionListing, stepColumn string) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&types.AuctionListing{}).
			Where("listing_id = ? AND status = ? AND version = ?",
				listing.ListingID, types.StatusAwarded, listing.Version).
			Updates(map[string]interface{}{
				stepColumn:   types.StepTerminal,
				"version":    listing.Version + 1,
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to record terminal step: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return types.ErrInvalidState
		}

		var current types.AuctionListing
		if err := tx.Where("listing_id = ?", listing.ListingID).First(&current).Error; err != nil {
			return err
		}

		if current.SellerStep == types.StepTerminal && current.BuyerStep == types.StepTerminal {
			res := tx.Model(&types.AuctionListing{}).
				Where("listing_id = ? AND version = ?", current.ListingID, current.Version).
				Updates(map[string]interface{}{
					"status":     types.StatusCompleted,
					"version":    current.Version + 1,
					"updated_at": time.Now(),
				})
			if res.Error != nil {
				return fmt.Errorf("failed to complete listing: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return types.ErrInvalidState
			}
		}

		return nil
	})
}
