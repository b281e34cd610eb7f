package listings

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

func (d *Database) CreateListing(listing *types.AuctionListing) error {
	return d.db.Create(listing).Error
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

// ListOpen returns open listings newest first. The before cursor is the
// created_at of the last listing from the previous page.
func (d *Database) ListOpen(limit int, before time.Time) ([]types.AuctionListing, error) {
	query := d.db.Where("status = ?", types.StatusOpen)
	if !before.IsZero() {
		query = query.Where("created_at < ?", before)
	}

	var results []types.AuctionListing
	if err := query.Order("created_at DESC").Limit(limit).Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to list open listings: %w", err)
	}
	return results, nil
}

// GetExpiredOpen returns OPEN listings whose timeout has passed.
func (d *Database) GetExpiredOpen(now time.Time) ([]types.AuctionListing, error) {
	var results []types.AuctionListing
	if err := d.db.
		Where("status = ? AND timeout_at <= ?", types.StatusOpen, now).
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch expired listings: %w", err)
	}
	return results, nil
}

// CancelExpired transitions a listing to CANCELLED, conditional on it
// still being OPEN at the observed version. A concurrent award wins the
// race and the sweep skips the listing.
func (d *Database) CancelExpired(listing *types.AuctionListing) (bool, error) {
	res := d.db.Model(&types.AuctionListing{}).
		Where("listing_id = ? AND status = ? AND version = ?",
			listing.ListingID, types.StatusOpen, listing.Version).
		Updates(map[string]interface{}{
			"status":  types.StatusCancelled,
			"version": listing.Version + 1,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
