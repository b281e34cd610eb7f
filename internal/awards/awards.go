package awards

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medibid/auction-api/internal/notify"
	"github.com/medibid/auction-api/internal/types"
	"github.com/medibid/auction-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service is the Award Selector: it closes bidding by recording exactly
// one winning bid and arming both handshake step counters.
type Service struct {
	db       *Database
	notifier notify.Notifier
}

// NewService creates a new award service with the given database connection
func NewService(gormDB *gorm.DB, notifier notify.Notifier) *Service {
	return &Service{
		db:       NewDatabase(gormDB),
		notifier: notifier,
	}
}

// Award selects bidID as the winner of the listing. Only the owner may
// call it, only while the listing is OPEN, and the bid must belong to
// this listing. It need not be the current highest; the seller may
// award any recorded bid.
func (s *Service) Award(listingID, callerID, bidID string, info types.TransferInfoPayload) (*types.AuctionListing, error) {
	logger := log.With().
		Str("listing_id", listingID).
		Str("caller_id", callerID).
		Str("bid_id", bidID).
		Str("service", "awards").
		Logger()

	listing, err := s.db.GetListing(listingID)
	if err != nil {
		return nil, err
	}

	if listing.OwnerID != callerID {
		logger.Debug().Str("owner_id", listing.OwnerID).Msg("award attempted by non-owner")
		return nil, types.ErrNotOwner
	}

	if listing.Status != types.StatusOpen {
		return nil, types.ErrInvalidState
	}

	bid, err := s.db.GetBid(bidID)
	if err != nil {
		return nil, err
	}
	if bid.ListingID != listingID {
		return nil, types.ErrBidNotFound
	}

	transferInfo := &types.TransferInfo{
		ListingID:   listingID,
		Side:        types.SideSeller,
		Company:     info.Company,
		Contact:     info.Contact,
		Address:     info.Address,
		BankName:    info.BankName,
		BankAccount: info.BankAccount,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := s.db.AwardListing(listing, bidID, transferInfo); err != nil {
		logger.Debug().Err(err).Msg("award rejected")
		return nil, err
	}

	s.notifier.Publish(notify.NewEvent(listingID, notify.EventAwarded, callerID, types.StepInitial))

	logger.Info().
		Str("bidder_id", bid.BidderID).
		Int64("amount", bid.Amount).
		Msg("listing awarded")

	return s.db.GetListing(listingID)
}

// GinHandlers contains HTTP handlers for award endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for award endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// AwardHandler handles POST requests to award a listing
// Requires a valid JWT token; the caller must own the listing
// URL parameter: listing_id
func (h *GinHandlers) AwardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		callerID := c.GetString("userID")
		if callerID == "" {
			response.Unauthorized(c, "Missing user identity")
			return
		}

		var req AwardRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		listing, err := h.service.Award(c.Param("listing_id"), callerID, req.BidID, req.SellerInfo)
		response.Handle(c, listing, err)
	}
}
