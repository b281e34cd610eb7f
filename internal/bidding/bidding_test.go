package bidding

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/medibid/auction-api/internal/database"
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

func seedListing(t *testing.T, db *gorm.DB, ownerID, status string, timeoutAt time.Time) *types.AuctionListing {
	t.Helper()

	listing := &types.AuctionListing{
		ListingID:  uuid.New().String(),
		OwnerID:    ownerID,
		Title:      "Portable ultrasound",
		DeviceType: "Ultrasound",
		Status:     status,
		TimeoutAt:  timeoutAt,
		Version:    1,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	require.NoError(t, db.Create(listing).Error)

	return listing
}

func seedBid(t *testing.T, db *gorm.DB, listingID, bidderID string, amount int64, createdAt time.Time) *types.BidRecord {
	t.Helper()

	bid := &types.BidRecord{
		BidID:     uuid.New().String(),
		ListingID: listingID,
		BidderID:  bidderID,
		Amount:    amount,
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(bid).Error)

	return bid
}

func TestPlaceBid(t *testing.T) {
	db := newTestDB(t)
	service := NewService(db, nil)

	open := seedListing(t, db, "seller-1", types.StatusOpen, time.Now().Add(time.Hour))

	t.Run("records a valid bid", func(t *testing.T) {
		bid, err := service.PlaceBid(open.ListingID, "bidder-1", 3*BidIncrement)
		require.NoError(t, err)
		assert.NotEmpty(t, bid.BidID)
		assert.Equal(t, open.ListingID, bid.ListingID)
		assert.Equal(t, int64(3*BidIncrement), bid.Amount)

		var count int64
		require.NoError(t, db.Model(&types.BidRecord{}).
			Where("listing_id = ?", open.ListingID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("rejects amounts off the increment", func(t *testing.T) {
		_, err := service.PlaceBid(open.ListingID, "bidder-1", BidIncrement+1)
		assert.ErrorIs(t, err, types.ErrInvalidAmount)

		_, err = service.PlaceBid(open.ListingID, "bidder-1", -BidIncrement)
		assert.ErrorIs(t, err, types.ErrInvalidAmount)

		_, err = service.PlaceBid(open.ListingID, "bidder-1", 0)
		assert.ErrorIs(t, err, types.ErrInvalidAmount)
	})

	t.Run("rejects the listing owner", func(t *testing.T) {
		_, err := service.PlaceBid(open.ListingID, "seller-1", BidIncrement)
		assert.ErrorIs(t, err, types.ErrForbidden)
	})

	t.Run("rejects an unknown listing", func(t *testing.T) {
		_, err := service.PlaceBid("no-such-listing", "bidder-1", BidIncrement)
		assert.ErrorIs(t, err, types.ErrListingNotFound)
	})

	t.Run("rejects a repeated amount from the same bidder", func(t *testing.T) {
		_, err := service.PlaceBid(open.ListingID, "bidder-2", 5*BidIncrement)
		require.NoError(t, err)

		_, err = service.PlaceBid(open.ListingID, "bidder-2", 5*BidIncrement)
		assert.ErrorIs(t, err, types.ErrDuplicateBid)
	})

	t.Run("allows the same amount from another bidder", func(t *testing.T) {
		_, err := service.PlaceBid(open.ListingID, "bidder-3", 5*BidIncrement)
		assert.NoError(t, err)
	})

	t.Run("rejects an awarded listing", func(t *testing.T) {
		awarded := seedListing(t, db, "seller-1", types.StatusAwarded, time.Now().Add(time.Hour))

		_, err := service.PlaceBid(awarded.ListingID, "bidder-1", BidIncrement)
		assert.ErrorIs(t, err, types.ErrAuctionClosed)
	})

	t.Run("rejects bids after the timeout", func(t *testing.T) {
		expired := seedListing(t, db, "seller-1", types.StatusOpen, time.Now().Add(-time.Minute))

		_, err := service.PlaceBid(expired.ListingID, "bidder-1", BidIncrement)
		assert.ErrorIs(t, err, types.ErrAuctionClosed)
	})
}

func TestHighestBid(t *testing.T) {
	db := newTestDB(t)
	service := NewService(db, nil)

	listing := seedListing(t, db, "seller-1", types.StatusOpen, time.Now().Add(time.Hour))
	base := time.Now().Add(-time.Minute)

	t.Run("no bids yet", func(t *testing.T) {
		highest, err := service.HighestBid(listing.ListingID)
		require.NoError(t, err)
		assert.Nil(t, highest)
	})

	t.Run("highest amount wins", func(t *testing.T) {
		seedBid(t, db, listing.ListingID, "bidder-1", 3*BidIncrement, base)
		top := seedBid(t, db, listing.ListingID, "bidder-2", 7*BidIncrement, base.Add(time.Second))

		highest, err := service.HighestBid(listing.ListingID)
		require.NoError(t, err)
		require.NotNil(t, highest)
		assert.Equal(t, top.BidID, highest.BidID)
	})

	t.Run("earlier bid wins the tie", func(t *testing.T) {
		first := seedBid(t, db, listing.ListingID, "bidder-3", 9*BidIncrement, base.Add(2*time.Second))
		seedBid(t, db, listing.ListingID, "bidder-4", 9*BidIncrement, base.Add(3*time.Second))

		highest, err := service.HighestBid(listing.ListingID)
		require.NoError(t, err)
		require.NotNil(t, highest)
		assert.Equal(t, first.BidID, highest.BidID)
		assert.Equal(t, "bidder-3", highest.BidderID)
	})
}

func TestListBids(t *testing.T) {
	db := newTestDB(t)
	service := NewService(db, nil)

	listing := seedListing(t, db, "seller-1", types.StatusOpen, time.Now().Add(time.Hour))
	base := time.Now().Add(-time.Minute)

	seedBid(t, db, listing.ListingID, "bidder-1", 2*BidIncrement, base)
	seedBid(t, db, listing.ListingID, "bidder-2", 6*BidIncrement, base.Add(time.Second))
	seedBid(t, db, listing.ListingID, "bidder-3", 6*BidIncrement, base.Add(2*time.Second))
	seedBid(t, db, listing.ListingID, "bidder-4", 4*BidIncrement, base.Add(3*time.Second))

	bids, err := service.ListBids(listing.ListingID)
	require.NoError(t, err)
	require.Len(t, bids, 4)

	assert.Equal(t, "bidder-2", bids[0].BidderID)
	assert.Equal(t, "bidder-3", bids[1].BidderID)
	assert.Equal(t, "bidder-4", bids[2].BidderID)
	assert.Equal(t, "bidder-1", bids[3].BidderID)
}

func TestBidsByBidder(t *testing.T) {
	db := newTestDB(t)
	service := NewService(db, nil)

	listing := seedListing(t, db, "seller-1", types.StatusOpen, time.Now().Add(time.Hour))
	base := time.Now().Add(-time.Hour)

	for i := 1; i <= 5; i++ {
		seedBid(t, db, listing.ListingID, "bidder-1", int64(i)*BidIncrement, base.Add(time.Duration(i)*time.Minute))
	}
	seedBid(t, db, listing.ListingID, "bidder-2", 9*BidIncrement, base)

	t.Run("newest first, pages linked by cursor", func(t *testing.T) {
		page, err := service.BidsByBidder(listing.ListingID, "bidder-1", 2, time.Time{}, 0)
		require.NoError(t, err)
		require.Len(t, page.Bids, 2)
		assert.Equal(t, int64(5*BidIncrement), page.Bids[0].Amount)
		assert.Equal(t, int64(4*BidIncrement), page.Bids[1].Amount)
		require.NotEmpty(t, page.NextBefore)
		require.NotZero(t, page.NextBeforeID)

		before, err := time.Parse(time.RFC3339Nano, page.NextBefore)
		require.NoError(t, err)

		next, err := service.BidsByBidder(listing.ListingID, "bidder-1", 2, before, page.NextBeforeID)
		require.NoError(t, err)
		require.Len(t, next.Bids, 2)
		assert.Equal(t, int64(3*BidIncrement), next.Bids[0].Amount)
		assert.Equal(t, int64(2*BidIncrement), next.Bids[1].Amount)
	})

	t.Run("only the caller's own bids", func(t *testing.T) {
		page, err := service.BidsByBidder(listing.ListingID, "bidder-2", 20, time.Time{}, 0)
		require.NoError(t, err)
		require.Len(t, page.Bids, 1)
		assert.Empty(t, page.NextBefore)
	})

	t.Run("bids sharing a timestamp page through cleanly", func(t *testing.T) {
		same := base.Add(30 * time.Minute)
		seedBid(t, db, listing.ListingID, "bidder-3", 6*BidIncrement, same)
		seedBid(t, db, listing.ListingID, "bidder-3", 7*BidIncrement, same)

		page, err := service.BidsByBidder(listing.ListingID, "bidder-3", 1, time.Time{}, 0)
		require.NoError(t, err)
		require.Len(t, page.Bids, 1)
		assert.Equal(t, int64(7*BidIncrement), page.Bids[0].Amount)

		before, err := time.Parse(time.RFC3339Nano, page.NextBefore)
		require.NoError(t, err)

		next, err := service.BidsByBidder(listing.ListingID, "bidder-3", 1, before, page.NextBeforeID)
		require.NoError(t, err)
		require.Len(t, next.Bids, 1)
		assert.Equal(t, int64(6*BidIncrement), next.Bids[0].Amount)
	})
}
