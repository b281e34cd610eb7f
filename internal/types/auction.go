package types

import (
	"time"

	"gorm.io/gorm"
)

// Listing status values.
const (
	StatusOpen      = "OPEN"      // accepting bids
	StatusAwarded   = "AWARDED"   // winner selected, handshake in progress
	StatusCompleted = "COMPLETED" // handover confirmed by both sides
	StatusCancelled = "CANCELLED"
)

// Handshake step bounds. Steps are 0 until a listing is awarded.
const (
	StepNone     = 0
	StepInitial  = 1
	StepTerminal = 4
)

// Transfer info sides.
const (
	SideSeller = "SELLER"
	SideBuyer  = "BUYER"
)

// AuctionListing is the aggregate root: one device put up for auction.
// Version is an optimistic-concurrency counter bumped by every mutating
// operation; award and handshake updates are conditional on it.
type AuctionListing struct {
	gorm.Model         `json:"-"`
	ListingID          string     `gorm:"uniqueIndex" json:"listing_id"`
	OwnerID            string     `json:"owner_id"`
	Title              string     `json:"title"`
	DeviceType         string     `json:"device_type"`
	Manufacturer       string     `json:"manufacturer"`
	Description        string     `json:"description"`
	PhotoURL           string     `json:"photo_url,omitempty"`
	Status             string     `json:"status"`
	TimeoutAt          time.Time  `json:"timeout_at"`
	AcceptedBidID      string     `json:"accepted_bid_id,omitempty"`
	SellerStep         int        `json:"seller_step"`
	BuyerStep          int        `json:"buyer_step"`
	VisitDate          string     `json:"visit_date,omitempty"`
	VisitTime          string     `json:"visit_time,omitempty"`
	DepositConfirmedAt *time.Time `json:"deposit_confirmed_at,omitempty"`
	Version            int        `json:"version"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// BidRecord is one offer against a listing. Records are append-only:
// nothing in the API updates or deletes them.
type BidRecord struct {
	gorm.Model `json:"-"`
	BidID      string    `gorm:"uniqueIndex" json:"bid_id"`
	ListingID  string    `gorm:"index" json:"listing_id"`
	BidderID   string    `json:"bidder_id"`
	Amount     int64     `json:"amount"` // smallest currency unit
	CreatedAt  time.Time `json:"created_at"`
}

// TransferInfoPayload is the request shape both sides use to submit
// their transfer details.
type TransferInfoPayload struct {
	Company     string `json:"company" binding:"required"`
	Contact     string `json:"contact" binding:"required"`
	Address     string `json:"address"`
	BankName    string `json:"bank_name"`
	BankAccount string `json:"bank_account"`
}

// TransferInfo holds the contact/payment details one side supplies for
// the post-award transfer. One row per listing per side.
type TransferInfo struct {
	gorm.Model  `json:"-"`
	ListingID   string    `gorm:"uniqueIndex:idx_transfer_listing_side" json:"listing_id"`
	Side        string    `gorm:"uniqueIndex:idx_transfer_listing_side" json:"side"` // SELLER or BUYER
	Company     string    `json:"company"`
	Contact     string    `json:"contact"`
	Address     string    `json:"address"`
	BankName    string    `json:"bank_name"`
	BankAccount string    `json:"bank_account"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
