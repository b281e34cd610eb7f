package bidding

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/medibid/auction-api/internal/types"
	"github.com/medibid/auction-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service is the Bid Ledger: append-only bid records plus the canonical
// ranking reads. It never mutates the listing.
type Service struct {
	db    *Database
	cache *Cache // nil when Redis is not configured
}

// NewService creates a new bidding service with the given database connection
func NewService(gormDB *gorm.DB, cache *Cache) *Service {
	return &Service{
		db:    NewDatabase(gormDB),
		cache: cache,
	}
}

// PlaceBid validates and appends a bid against an open listing.
func (s *Service) PlaceBid(listingID, bidderID string, amount int64) (*types.BidRecord, error) {
	logger := log.With().
		Str("listing_id", listingID).
		Str("bidder_id", bidderID).
		Int64("amount", amount).
		Str("service", "bidding").
		Logger()

	if amount <= 0 || amount%BidIncrement != 0 {
		return nil, types.ErrInvalidAmount
	}

	bid := &types.BidRecord{
		BidID:     uuid.New().String(),
		ListingID: listingID,
		BidderID:  bidderID,
		Amount:    amount,
		CreatedAt: time.Now(),
	}

	if err := s.db.AppendBid(bid); err != nil {
		logger.Debug().Err(err).Msg("bid rejected")
		return nil, err
	}

	logger.Info().Str("bid_id", bid.BidID).Msg("bid recorded")

	if s.cache != nil {
		// Only overwrite a cached leader the new bid strictly outranks;
		// ties keep the earlier record. On a miss the cache stays empty,
		// a bid placed after expiry is not necessarily the leader, and
		// HighestBid repopulates from the authoritative read.
		ctx := context.Background()
		if cached, ok := s.cache.GetHighest(ctx, listingID); ok && amount > cached.Amount {
			s.cache.SetHighest(ctx, listingID, bid)
		}
	}

	return bid, nil
}

// HighestBid returns the current leader, or nil with no error when the
// listing has no bids yet.
func (s *Service) HighestBid(listingID string) (*types.BidRecord, error) {
	if s.cache != nil {
		if cached, ok := s.cache.GetHighest(context.Background(), listingID); ok {
			return cached, nil
		}
	}

	bid, err := s.db.GetHighestBid(listingID)
	if err != nil {
		return nil, err
	}

	if bid != nil && s.cache != nil {
		s.cache.SetHighest(context.Background(), listingID, bid)
	}

	return bid, nil
}

// ListBids returns every bid for a listing in canonical ranking order.
func (s *Service) ListBids(listingID string) ([]types.BidRecord, error) {
	return s.db.GetBids(listingID)
}

// BidsByBidder returns one page of the caller's own bid history, newest
// first. NextBefore/NextBeforeID together form the cursor for the next
// page.
func (s *Service) BidsByBidder(listingID, bidderID string, limit int, before time.Time, beforeID uint) (*types.BidPage, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	bids, err := s.db.GetBidsByBidder(listingID, bidderID, limit, before, beforeID)
	if err != nil {
		return nil, err
	}

	page := &types.BidPage{Bids: bids}
	if len(bids) == limit {
		last := bids[len(bids)-1]
		page.NextBefore = last.CreatedAt.Format(time.RFC3339Nano)
		page.NextBeforeID = last.ID
	}
	return page, nil
}

// GetBid retrieves a bid by its ID.
func (s *Service) GetBid(bidID string) (*types.BidRecord, error) {
	return s.db.GetBid(bidID)
}

// GinHandlers contains HTTP handlers for bidding endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for bidding endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// PlaceBidHandler handles POST requests to place bids
// Requires a valid JWT token
// URL parameter: listing_id
func (h *GinHandlers) PlaceBidHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		bidderID := c.GetString("userID")
		if bidderID == "" {
			response.Unauthorized(c, "Missing user identity")
			return
		}

		var req PlaceBidRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		bid, err := h.service.PlaceBid(c.Param("listing_id"), bidderID, req.Amount)
		response.Handle(c, bid, err)
	}
}

// ListBidsHandler handles GET requests for a listing's full bid ledger
// URL parameter: listing_id
func (h *GinHandlers) ListBidsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		bids, err := h.service.ListBids(c.Param("listing_id"))
		response.Handle(c, bids, err)
	}
}

// MyBidsHandler handles GET requests for the caller's own bid history
// Requires a valid JWT token
// Query parameters: limit, before (RFC3339Nano), before_id
func (h *GinHandlers) MyBidsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		bidderID := c.GetString("userID")
		if bidderID == "" {
			response.Unauthorized(c, "Missing user identity")
			return
		}

		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

		var before time.Time
		if raw := c.Query("before"); raw != "" {
			parsed, err := time.Parse(time.RFC3339Nano, raw)
			if err != nil {
				response.BadRequest(c, "before must be RFC3339")
				return
			}
			before = parsed
		}
		beforeID, _ := strconv.ParseUint(c.Query("before_id"), 10, 64)

		page, err := h.service.BidsByBidder(c.Param("listing_id"), bidderID, limit, before, uint(beforeID))
		response.Handle(c, page, err)
	}
}
