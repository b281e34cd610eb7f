package listings

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/medibid/auction-api/internal/pricing"
	"github.com/medibid/auction-api/internal/types"
	"github.com/medibid/auction-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// BidSource is the slice of the bid ledger the listing view needs.
// Implemented by the bidding service.
type BidSource interface {
	HighestBid(listingID string) (*types.BidRecord, error)
	GetBid(bidID string) (*types.BidRecord, error)
}

// Service owns the listing aggregate: publishing, the composed read
// view, and browsing. Award and handshake mutations live in their own
// packages.
type Service struct {
	db   *Database
	bids BidSource
}

// NewService creates a new listings service with the given database connection
func NewService(gormDB *gorm.DB, bids BidSource) *Service {
	return &Service{
		db:   NewDatabase(gormDB),
		bids: bids,
	}
}

// Publish creates a new OPEN listing owned by the caller.
func (s *Service) Publish(ownerID string, req PublishRequest) (*types.AuctionListing, error) {
	listing := &types.AuctionListing{
		ListingID:    uuid.New().String(),
		OwnerID:      ownerID,
		Title:        req.Title,
		DeviceType:   req.DeviceType,
		Manufacturer: req.Manufacturer,
		Description:  req.Description,
		PhotoURL:     req.PhotoURL,
		Status:       types.StatusOpen,
		TimeoutAt:    req.TimeoutAt,
		SellerStep:   types.StepNone,
		BuyerStep:    types.StepNone,
		Version:      1,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.db.CreateListing(listing); err != nil {
		return nil, err
	}

	log.Info().
		Str("listing_id", listing.ListingID).
		Str("owner_id", ownerID).
		Time("timeout_at", listing.TimeoutAt).
		Msg("listing published")

	return listing, nil
}

// Get returns the composed view of a listing: current leader, remaining
// time and the gating flags both UIs read to decide whether to show the
// next handshake action.
func (s *Service) Get(listingID string) (*types.ListingView, error) {
	listing, err := s.db.GetListing(listingID)
	if err != nil {
		return nil, err
	}

	highest, err := s.bids.HighestBid(listingID)
	if err != nil {
		return nil, err
	}

	view := &types.ListingView{
		Listing:    *listing,
		HighestBid: highest,
		Remaining:  RemainingTime(listing.TimeoutAt, time.Now()),
	}

	if listing.Status == types.StatusAwarded {
		// Seller at step 2 has nothing to submit until the deposit is
		// confirmed and a visit is on the calendar.
		view.SellerWaiting = listing.SellerStep == 2 &&
			(listing.DepositConfirmedAt == nil || listing.VisitDate == "")
		// Buyer at step 3 waits until the seller side has reached step 2.
		view.BuyerWaiting = listing.BuyerStep == 3 && listing.SellerStep < 2
	}

	return view, nil
}

// ListOpen returns a page of open listings.
func (s *Service) ListOpen(limit int, before time.Time) ([]types.AuctionListing, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.db.ListOpen(limit, before)
}

// QuoteFor returns the server-owned pricing quote for a listing. The
// accepted bid is quoted once awarded; before that the current highest
// bid is quoted so buyers can preview the total.
func (s *Service) QuoteFor(listingID string) (*pricing.Quote, error) {
	listing, err := s.db.GetListing(listingID)
	if err != nil {
		return nil, err
	}

	var bid *types.BidRecord
	if listing.AcceptedBidID != "" {
		bid, err = s.bids.GetBid(listing.AcceptedBidID)
	} else {
		bid, err = s.bids.HighestBid(listingID)
	}
	if err != nil {
		return nil, err
	}
	if bid == nil {
		return nil, types.ErrBidNotFound
	}

	quote := pricing.QuoteFor(bid.Amount)
	return &quote, nil
}

// GinHandlers contains HTTP handlers for listing endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for listing endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// PublishHandler handles POST requests to create listings
// Requires a valid JWT token
func (h *GinHandlers) PublishHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID := c.GetString("userID")
		if ownerID == "" {
			response.Unauthorized(c, "Missing user identity")
			return
		}

		var req PublishRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		if !req.TimeoutAt.After(time.Now()) {
			response.BadRequest(c, "timeout_at must be in the future")
			return
		}

		listing, err := h.service.Publish(ownerID, req)
		response.Handle(c, listing, err)
	}
}

// GetHandler handles GET requests for the composed listing view
// URL parameter: listing_id
func (h *GinHandlers) GetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := h.service.Get(c.Param("listing_id"))
		response.Handle(c, view, err)
	}
}

// ListOpenHandler handles GET requests to browse open listings
// Query parameters: limit, before (RFC3339)
func (h *GinHandlers) ListOpenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

		var before time.Time
		if raw := c.Query("before"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				response.BadRequest(c, "before must be RFC3339")
				return
			}
			before = parsed
		}

		results, err := h.service.ListOpen(limit, before)
		response.Handle(c, results, err)
	}
}

// QuoteHandler handles GET requests for the pricing quote
// URL parameter: listing_id
func (h *GinHandlers) QuoteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		quote, err := h.service.QuoteFor(c.Param("listing_id"))
		response.Handle(c, quote, err)
	}
}
