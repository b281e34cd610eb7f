package listings

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

// stubBids satisfies BidSource without dragging the full ledger into
// listing tests.
type stubBids struct {
	highest map[string]*types.BidRecord
	byID    map[string]*types.BidRecord
}

func newStubBids() *stubBids {
	return &stubBids{
		highest: make(map[string]*types.BidRecord),
		byID:    make(map[string]*types.BidRecord),
	}
}

func (s *stubBids) HighestBid(listingID string) (*types.BidRecord, error) {
	return s.highest[listingID], nil
}

func (s *stubBids) GetBid(bidID string) (*types.BidRecord, error) {
	if bid, ok := s.byID[bidID]; ok {
		return bid, nil
	}
	return nil, types.ErrBidNotFound
}

func (s *stubBids) add(listingID string, amount int64) *types.BidRecord {
	bid := &types.BidRecord{
		BidID:     uuid.New().String(),
		ListingID: listingID,
		BidderID:  "buyer-1",
		Amount:    amount,
		CreatedAt: time.Now(),
	}
	s.byID[bid.BidID] = bid
	if cur := s.highest[listingID]; cur == nil || amount > cur.Amount {
		s.highest[listingID] = bid
	}
	return bid
}

func TestPublish(t *testing.T) {
	db := newTestDB(t)
	service := NewService(db, newStubBids())

	listing, err := service.Publish("seller-1", PublishRequest{
		Title:      "MRI coil set",
		DeviceType: "MRI",
		TimeoutAt:  time.Now().Add(48 * time.Hour),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, listing.ListingID)
	assert.Equal(t, types.StatusOpen, listing.Status)
	assert.Equal(t, types.StepNone, listing.SellerStep)
	assert.Equal(t, types.StepNone, listing.BuyerStep)
	assert.Equal(t, 1, listing.Version)

	stored, err := service.db.GetListing(listing.ListingID)
	require.NoError(t, err)
	assert.Equal(t, "seller-1", stored.OwnerID)
}

func TestGet(t *testing.T) {
	db := newTestDB(t)
	bids := newStubBids()
	service := NewService(db, bids)

	t.Run("unknown listing", func(t *testing.T) {
		_, err := service.Get("no-such-listing")
		assert.ErrorIs(t, err, types.ErrListingNotFound)
	})

	t.Run("open listing with a leader", func(t *testing.T) {
		listing, err := service.Publish("seller-1", PublishRequest{
			Title:      "Defibrillator",
			DeviceType: "Defibrillator",
			TimeoutAt:  time.Now().Add(2 * time.Hour),
		})
		require.NoError(t, err)
		leader := bids.add(listing.ListingID, 40_000)

		view, err := service.Get(listing.ListingID)
		require.NoError(t, err)
		require.NotNil(t, view.HighestBid)
		assert.Equal(t, leader.BidID, view.HighestBid.BidID)
		assert.False(t, view.Remaining.Expired)
		assert.False(t, view.SellerWaiting)
		assert.False(t, view.BuyerWaiting)
	})

	t.Run("seller waits on deposit and visit", func(t *testing.T) {
		listing := &types.AuctionListing{
			ListingID:  uuid.New().String(),
			OwnerID:    "seller-1",
			Status:     types.StatusAwarded,
			TimeoutAt:  time.Now().Add(time.Hour),
			SellerStep: 2,
			BuyerStep:  1,
			Version:    3,
		}
		require.NoError(t, db.Create(listing).Error)

		view, err := service.Get(listing.ListingID)
		require.NoError(t, err)
		assert.True(t, view.SellerWaiting)
		assert.False(t, view.BuyerWaiting)
	})

	t.Run("buyer waits on the seller side", func(t *testing.T) {
		listing := &types.AuctionListing{
			ListingID:  uuid.New().String(),
			OwnerID:    "seller-1",
			Status:     types.StatusAwarded,
			TimeoutAt:  time.Now().Add(time.Hour),
			SellerStep: 1,
			BuyerStep:  3,
			Version:    3,
		}
		require.NoError(t, db.Create(listing).Error)

		view, err := service.Get(listing.ListingID)
		require.NoError(t, err)
		assert.False(t, view.SellerWaiting)
		assert.True(t, view.BuyerWaiting)
	})
}

func TestListOpen(t *testing.T) {
	db := newTestDB(t)
	store := NewDatabase(db)
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&types.AuctionListing{
			ListingID: fmt.Sprintf("open-%d", i),
			OwnerID:   "seller-1",
			Status:    types.StatusOpen,
			TimeoutAt: time.Now().Add(time.Hour),
			Version:   1,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}).Error)
	}
	require.NoError(t, db.Create(&types.AuctionListing{
		ListingID: "awarded-1",
		OwnerID:   "seller-1",
		Status:    types.StatusAwarded,
		TimeoutAt: time.Now().Add(time.Hour),
		Version:   2,
		CreatedAt: base.Add(10 * time.Minute),
	}).Error)

	t.Run("newest first, closed listings excluded", func(t *testing.T) {
		results, err := store.ListOpen(10, time.Time{})
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "open-2", results[0].ListingID)
		assert.Equal(t, "open-0", results[2].ListingID)
	})

	t.Run("before cursor pages backwards", func(t *testing.T) {
		results, err := store.ListOpen(10, base.Add(2*time.Minute))
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "open-1", results[0].ListingID)
	})
}

func TestQuoteFor(t *testing.T) {
	db := newTestDB(t)
	bids := newStubBids()
	service := NewService(db, bids)

	t.Run("no bids yet", func(t *testing.T) {
		listing, err := service.Publish("seller-1", PublishRequest{
			Title:      "Autoclave",
			DeviceType: "Sterilizer",
			TimeoutAt:  time.Now().Add(time.Hour),
		})
		require.NoError(t, err)

		_, err = service.QuoteFor(listing.ListingID)
		assert.ErrorIs(t, err, types.ErrBidNotFound)
	})

	t.Run("open listing quotes the leader", func(t *testing.T) {
		listing, err := service.Publish("seller-1", PublishRequest{
			Title:      "Autoclave",
			DeviceType: "Sterilizer",
			TimeoutAt:  time.Now().Add(time.Hour),
		})
		require.NoError(t, err)
		bids.add(listing.ListingID, 100_000)

		quote, err := service.QuoteFor(listing.ListingID)
		require.NoError(t, err)
		assert.Equal(t, int64(100_000), quote.Principal)
		assert.Equal(t, int64(115_000), quote.Total)
	})

	t.Run("awarded listing quotes the accepted bid", func(t *testing.T) {
		accepted := bids.add("quoted-listing", 60_000)
		bids.add("quoted-listing", 90_000)

		require.NoError(t, db.Create(&types.AuctionListing{
			ListingID:     "quoted-listing",
			OwnerID:       "seller-1",
			Status:        types.StatusAwarded,
			TimeoutAt:     time.Now().Add(time.Hour),
			AcceptedBidID: accepted.BidID,
			Version:       2,
		}).Error)

		quote, err := service.QuoteFor("quoted-listing")
		require.NoError(t, err)
		assert.Equal(t, int64(60_000), quote.Principal)
	})
}
