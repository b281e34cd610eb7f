package handshake

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medibid/auction-api/internal/notify"
	"github.com/medibid/auction-api/internal/types"
	"github.com/medibid/auction-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service drives the two-sided post-award handshake: two independent
// step counters (seller, buyer) over one listing, coupled only through
// the shared visit fields and the buyer's step-3 gate on the seller
// having reached step 2.
type Service struct {
	db       *Database
	notifier notify.Notifier
}

// NewService creates a new handshake service with the given database connection
func NewService(gormDB *gorm.DB, notifier notify.Notifier) *Service {
	return &Service{
		db:       NewDatabase(gormDB),
		notifier: notifier,
	}
}

// loadAwarded fetches the listing and checks it is mid-handshake.
func (s *Service) loadAwarded(listingID string) (*types.AuctionListing, error) {
	listing, err := s.db.GetListing(listingID)
	if err != nil {
		return nil, err
	}
	if listing.Status != types.StatusAwarded {
		return nil, types.ErrInvalidState
	}
	return listing, nil
}

// requireBuyer resolves the accepted bid and checks the caller is its bidder.
func (s *Service) requireBuyer(listing *types.AuctionListing, callerID string) error {
	bid, err := s.db.GetBid(listing.AcceptedBidID)
	if err != nil {
		return err
	}
	if bid.BidderID != callerID {
		return types.ErrForbidden
	}
	return nil
}

// SellerAdvance moves the seller-side counter one step forward.
//
// Step 1 -> 2: seller confirms the transfer details captured at award.
// Step 2 -> 3: allowed only once the buyer's deposit has been confirmed
// and a visit is scheduled (either already on the listing or supplied
// in this call).
func (s *Service) SellerAdvance(listingID, callerID string, req AdvanceRequest) (*types.AuctionListing, error) {
	logger := log.With().
		Str("listing_id", listingID).
		Str("caller_id", callerID).
		Int("step", req.Step).
		Str("service", "handshake").
		Logger()

	listing, err := s.loadAwarded(listingID)
	if err != nil {
		return nil, err
	}

	if listing.OwnerID != callerID {
		return nil, types.ErrForbidden
	}

	if req.Step != listing.SellerStep || req.Step >= 3 {
		logger.Debug().Int("current_step", listing.SellerStep).Msg("seller advance out of order")
		return nil, types.ErrWrongStep
	}

	updates := map[string]interface{}{"seller_step": listing.SellerStep + 1}

	switch req.Step {
	case 1:
		// Confirmation of details captured during award; nothing else
		// to check, the transfer info row already exists.
	case 2:
		visitDate := listing.VisitDate
		visitTime := listing.VisitTime
		if req.VisitDate != "" {
			visitDate = req.VisitDate
			visitTime = req.VisitTime
			updates["visit_date"] = req.VisitDate
			updates["visit_time"] = req.VisitTime
		}
		if listing.DepositConfirmedAt == nil || visitDate == "" || visitTime == "" {
			logger.Debug().Msg("seller advance blocked: deposit or visit not ready")
			return nil, types.ErrWrongStep
		}
	}

	if err := s.db.AdvanceListing(listing, updates, nil); err != nil {
		return nil, err
	}

	s.notifier.Publish(notify.NewEvent(listingID, notify.EventSellerAdvance, callerID, listing.SellerStep+1))

	logger.Info().Int("new_step", listing.SellerStep+1).Msg("seller advanced")

	return s.db.GetListing(listingID)
}

// BuyerAdvance moves the buyer-side counter one step forward.
//
// Step 1 -> 2: buyer submits transfer details for the handover.
// Step 2 -> 3: buyer proposes the visit date/time, written onto the
// shared listing fields (last writer wins).
func (s *Service) BuyerAdvance(listingID, callerID string, req AdvanceRequest) (*types.AuctionListing, error) {
	logger := log.With().
		Str("listing_id", listingID).
		Str("caller_id", callerID).
		Int("step", req.Step).
		Str("service", "handshake").
		Logger()

	listing, err := s.loadAwarded(listingID)
	if err != nil {
		return nil, err
	}

	if err := s.requireBuyer(listing, callerID); err != nil {
		return nil, err
	}

	if req.Step != listing.BuyerStep || req.Step >= 3 {
		logger.Debug().Int("current_step", listing.BuyerStep).Msg("buyer advance out of order")
		return nil, types.ErrWrongStep
	}

	updates := map[string]interface{}{"buyer_step": listing.BuyerStep + 1}
	var info *types.TransferInfo

	switch req.Step {
	case 1:
		if req.Info == nil {
			return nil, types.ErrWrongStep
		}
		info = &types.TransferInfo{
			ListingID:   listingID,
			Side:        types.SideBuyer,
			Company:     req.Info.Company,
			Contact:     req.Info.Contact,
			Address:     req.Info.Address,
			BankName:    req.Info.BankName,
			BankAccount: req.Info.BankAccount,
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		}
	case 2:
		if req.VisitDate == "" || req.VisitTime == "" {
			return nil, types.ErrWrongStep
		}
		updates["visit_date"] = req.VisitDate
		updates["visit_time"] = req.VisitTime
	}

	if err := s.db.AdvanceListing(listing, updates, info); err != nil {
		return nil, err
	}

	s.notifier.Publish(notify.NewEvent(listingID, notify.EventBuyerAdvance, callerID, listing.BuyerStep+1))

	logger.Info().Int("new_step", listing.BuyerStep+1).Msg("buyer advanced")

	return s.db.GetListing(listingID)
}

// ProposeVisit rewrites the shared visit fields from either side.
// No step change; last writer wins.
func (s *Service) ProposeVisit(listingID, callerID, visitDate, visitTime string) (*types.AuctionListing, error) {
	listing, err := s.loadAwarded(listingID)
	if err != nil {
		return nil, err
	}

	if listing.OwnerID != callerID {
		if err := s.requireBuyer(listing, callerID); err != nil {
			return nil, err
		}
	}

	if visitDate == "" || visitTime == "" {
		return nil, types.ErrWrongStep
	}

	if err := s.db.SetVisit(listing, visitDate, visitTime); err != nil {
		return nil, err
	}

	return s.db.GetListing(listingID)
}

// SellerComplete records the seller's handover confirmation (step 3 -> 4).
func (s *Service) SellerComplete(listingID, callerID string) (*types.AuctionListing, error) {
	listing, err := s.loadAwarded(listingID)
	if err != nil {
		return nil, err
	}

	if listing.OwnerID != callerID {
		return nil, types.ErrForbidden
	}

	if listing.SellerStep != 3 {
		return nil, types.ErrWrongStep
	}

	if err := s.db.CompleteSide(listing, "seller_step"); err != nil {
		return nil, err
	}

	return s.finishCompletion(listingID, callerID)
}

// BuyerComplete records the buyer's handover confirmation (step 3 -> 4).
// Gated on the seller side having reached step 2, mirroring the buyer
// UI that hides the action until then.
func (s *Service) BuyerComplete(listingID, callerID string) (*types.AuctionListing, error) {
	listing, err := s.loadAwarded(listingID)
	if err != nil {
		return nil, err
	}

	if err := s.requireBuyer(listing, callerID); err != nil {
		return nil, err
	}

	if listing.BuyerStep != 3 || listing.SellerStep < 2 {
		return nil, types.ErrWrongStep
	}

	if err := s.db.CompleteSide(listing, "buyer_step"); err != nil {
		return nil, err
	}

	return s.finishCompletion(listingID, callerID)
}

func (s *Service) finishCompletion(listingID, callerID string) (*types.AuctionListing, error) {
	current, err := s.db.GetListing(listingID)
	if err != nil {
		return nil, err
	}

	eventType := notify.EventSellerAdvance
	if current.OwnerID != callerID {
		eventType = notify.EventBuyerAdvance
	}
	s.notifier.Publish(notify.NewEvent(listingID, eventType, callerID, types.StepTerminal))

	if current.Status == types.StatusCompleted {
		s.notifier.Publish(notify.NewEvent(listingID, notify.EventCompleted, callerID, types.StepTerminal))
		log.Info().
			Str("listing_id", listingID).
			Msg("handshake completed on both sides")
	}

	return current, nil
}

// ConfirmDeposit records the administrative deposit confirmation the
// seller's 2 -> 3 transition waits on. Internal endpoint.
func (s *Service) ConfirmDeposit(listingID string) (*types.AuctionListing, error) {
	listing, err := s.loadAwarded(listingID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	updates := map[string]interface{}{"deposit_confirmed_at": now}
	if err := s.db.AdvanceListing(listing, updates, nil); err != nil {
		return nil, err
	}

	log.Info().Str("listing_id", listingID).Msg("deposit confirmed")

	return s.db.GetListing(listingID)
}

// GinHandlers contains HTTP handlers for handshake endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for handshake endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

func (h *GinHandlers) SellerAdvanceHandler() gin.HandlerFunc {
	return h.advanceHandler(h.service.SellerAdvance)
}

func (h *GinHandlers) BuyerAdvanceHandler() gin.HandlerFunc {
	return h.advanceHandler(h.service.BuyerAdvance)
}

func (h *GinHandlers) advanceHandler(advance func(string, string, AdvanceRequest) (*types.AuctionListing, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		callerID := c.GetString("userID")
		if callerID == "" {
			response.Unauthorized(c, "Missing user identity")
			return
		}

		var req AdvanceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		listing, err := advance(c.Param("listing_id"), callerID, req)
		response.Handle(c, listing, err)
	}
}

func (h *GinHandlers) SellerCompleteHandler() gin.HandlerFunc {
	return h.completeHandler(h.service.SellerComplete)
}

func (h *GinHandlers) BuyerCompleteHandler() gin.HandlerFunc {
	return h.completeHandler(h.service.BuyerComplete)
}

func (h *GinHandlers) completeHandler(complete func(string, string) (*types.AuctionListing, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		callerID := c.GetString("userID")
		if callerID == "" {
			response.Unauthorized(c, "Missing user identity")
			return
		}

		listing, err := complete(c.Param("listing_id"), callerID)
		response.Handle(c, listing, err)
	}
}

// ProposeVisitHandler handles POST requests rewriting the visit
// schedule from either side
// Requires a valid JWT token
// URL parameter: listing_id
func (h *GinHandlers) ProposeVisitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		callerID := c.GetString("userID")
		if callerID == "" {
			response.Unauthorized(c, "Missing user identity")
			return
		}

		var req VisitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		listing, err := h.service.ProposeVisit(c.Param("listing_id"), callerID, req.VisitDate, req.VisitTime)
		response.Handle(c, listing, err)
	}
}

// ConfirmDepositHandler handles POST requests from the administrative
// side confirming the buyer's deposit
// Requires internal authentication
// URL parameter: listing_id
func (h *GinHandlers) ConfirmDepositHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		listing, err := h.service.ConfirmDeposit(c.Param("listing_id"))
		response.Handle(c, listing, err)
	}
}
