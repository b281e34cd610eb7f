package awards

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/medibid/auction-api/internal/database"
	"github.com/medibid/auction-api/internal/notify"
	"github.com/medibid/auction-api/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	return db
}

func seedListing(t *testing.T, db *gorm.DB, ownerID string) *types.AuctionListing {
	t.Helper()

	listing := &types.AuctionListing{
		ListingID:  uuid.New().String(),
		OwnerID:    ownerID,
		Title:      "Anesthesia machine",
		DeviceType: "Anesthesia",
		Status:     types.StatusOpen,
		TimeoutAt:  time.Now().Add(time.Hour),
		Version:    1,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	require.NoError(t, db.Create(listing).Error)

	return listing
}

func seedBid(t *testing.T, db *gorm.DB, listingID, bidderID string, amount int64) *types.BidRecord {
	t.Helper()

	bid := &types.BidRecord{
		BidID:     uuid.New().String(),
		ListingID: listingID,
		BidderID:  bidderID,
		Amount:    amount,
		CreatedAt: time.Now(),
	}
	require.NoError(t, db.Create(bid).Error)

	return bid
}

var sellerInfo = types.TransferInfoPayload{
	Company:     "MedResale Ltd",
	Contact:     "010-1234-5678",
	Address:     "12 Device Street",
	BankName:    "First Bank",
	BankAccount: "110-234-567890",
}

func TestAward(t *testing.T) {
	db := newTestDB(t)
	service := NewService(db, notify.NopNotifier{})

	t.Run("awards a bid and arms both handshake sides", func(t *testing.T) {
		listing := seedListing(t, db, "seller-1")
		seedBid(t, db, listing.ListingID, "bidder-1", 30_000)
		winning := seedBid(t, db, listing.ListingID, "bidder-2", 50_000)

		awarded, err := service.Award(listing.ListingID, "seller-1", winning.BidID, sellerInfo)
		require.NoError(t, err)

		assert.Equal(t, types.StatusAwarded, awarded.Status)
		assert.Equal(t, winning.BidID, awarded.AcceptedBidID)
		assert.Equal(t, types.StepInitial, awarded.SellerStep)
		assert.Equal(t, types.StepInitial, awarded.BuyerStep)
		assert.Equal(t, listing.Version+1, awarded.Version)

		var info types.TransferInfo
		require.NoError(t, db.
			Where("listing_id = ? AND side = ?", listing.ListingID, types.SideSeller).
			First(&info).Error)
		assert.Equal(t, sellerInfo.BankAccount, info.BankAccount)
	})

	t.Run("may award a non-leading bid", func(t *testing.T) {
		listing := seedListing(t, db, "seller-1")
		lower := seedBid(t, db, listing.ListingID, "bidder-1", 30_000)
		seedBid(t, db, listing.ListingID, "bidder-2", 50_000)

		awarded, err := service.Award(listing.ListingID, "seller-1", lower.BidID, sellerInfo)
		require.NoError(t, err)
		assert.Equal(t, lower.BidID, awarded.AcceptedBidID)
	})

	t.Run("rejects a non-owner", func(t *testing.T) {
		listing := seedListing(t, db, "seller-1")
		bid := seedBid(t, db, listing.ListingID, "bidder-1", 30_000)

		_, err := service.Award(listing.ListingID, "bidder-1", bid.BidID, sellerInfo)
		assert.ErrorIs(t, err, types.ErrNotOwner)
	})

	t.Run("rejects an unknown bid", func(t *testing.T) {
		listing := seedListing(t, db, "seller-1")

		_, err := service.Award(listing.ListingID, "seller-1", "no-such-bid", sellerInfo)
		assert.ErrorIs(t, err, types.ErrBidNotFound)
	})

	t.Run("rejects a bid from another listing", func(t *testing.T) {
		listing := seedListing(t, db, "seller-1")
		other := seedListing(t, db, "seller-2")
		foreign := seedBid(t, db, other.ListingID, "bidder-1", 30_000)

		_, err := service.Award(listing.ListingID, "seller-1", foreign.BidID, sellerInfo)
		assert.ErrorIs(t, err, types.ErrBidNotFound)
	})

	t.Run("rejects an unknown listing", func(t *testing.T) {
		_, err := service.Award("no-such-listing", "seller-1", "irrelevant", sellerInfo)
		assert.ErrorIs(t, err, types.ErrListingNotFound)
	})

	t.Run("second award never changes the winner", func(t *testing.T) {
		listing := seedListing(t, db, "seller-1")
		first := seedBid(t, db, listing.ListingID, "bidder-1", 30_000)
		second := seedBid(t, db, listing.ListingID, "bidder-2", 50_000)

		_, err := service.Award(listing.ListingID, "seller-1", first.BidID, sellerInfo)
		require.NoError(t, err)

		_, err = service.Award(listing.ListingID, "seller-1", second.BidID, sellerInfo)
		assert.ErrorIs(t, err, types.ErrInvalidState)

		var current types.AuctionListing
		require.NoError(t, db.Where("listing_id = ?", listing.ListingID).First(&current).Error)
		assert.Equal(t, first.BidID, current.AcceptedBidID)
		assert.Equal(t, types.StatusAwarded, current.Status)
	})
}

// AwardListing is compare-and-swap on the version the caller observed;
// a stale snapshot must lose even when the row still looks OPEN.
func TestAwardListingStaleVersion(t *testing.T) {
	db := newTestDB(t)
	store := NewDatabase(db)

	listing := seedListing(t, db, "seller-1")
	bid := seedBid(t, db, listing.ListingID, "bidder-1", 30_000)

	stale := *listing
	stale.Version = listing.Version - 1

	err := store.AwardListing(&stale, bid.BidID, &types.TransferInfo{
		ListingID: listing.ListingID,
		Side:      types.SideSeller,
	})
	assert.ErrorIs(t, err, types.ErrInvalidState)

	var current types.AuctionListing
	require.NoError(t, db.Where("listing_id = ?", listing.ListingID).First(&current).Error)
	assert.Equal(t, types.StatusOpen, current.Status)
	assert.Empty(t, current.AcceptedBidID)
}
