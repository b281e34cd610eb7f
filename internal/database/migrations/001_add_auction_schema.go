package migrations

import (
	"github.com/medibid/auction-api/internal/types"
	"gorm.io/gorm"
)

// AddAuctionSchema creates the listing, bid ledger and transfer info tables.
func AddAuctionSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(&types.AuctionListing{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&types.BidRecord{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&types.TransferInfo{}); err != nil {
		return err
	}

	return nil
}
