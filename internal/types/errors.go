package types

import "errors"

// Domain error taxonomy. All of these are expected, recoverable-by-the-
// caller conditions: clients re-fetch state and re-render rather than
// retry blindly.
var (
	ErrListingNotFound = errors.New("listing not found")
	ErrBidNotFound     = errors.New("bid not found")
	ErrAuctionClosed   = errors.New("auction is not accepting bids")
	ErrInvalidState    = errors.New("operation not permitted in current listing state")
	ErrNotOwner        = errors.New("caller is not the listing owner")
	ErrForbidden       = errors.New("caller role does not permit this operation")
	ErrDuplicateBid    = errors.New("bidder already placed a bid with this amount")
	ErrWrongStep       = errors.New("handshake call made out of order")
	ErrInvalidAmount   = errors.New("bid amount must be a positive multiple of 10,000")
)
