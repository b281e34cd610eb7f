package types

// Remaining is the read-side breakdown of time left before the bidding
// timeout. Once expired only the flag is set.
type Remaining struct {
	Expired bool `json:"expired"`
	Days    int  `json:"days"`
	Hours   int  `json:"hours"`
	Minutes int  `json:"minutes"`
}

// ListingView is the composed read model served to clients: the listing
// plus the current leader, time left, and the per-side waiting flags the
// UIs use to hide the "next" action while the counterpart catches up.
type ListingView struct {
	Listing       AuctionListing `json:"listing"`
	HighestBid    *BidRecord     `json:"highest_bid,omitempty"`
	Remaining     Remaining      `json:"remaining"`
	SellerWaiting bool           `json:"seller_waiting"`
	BuyerWaiting  bool           `json:"buyer_waiting"`
}

// BidPage is a keyset-paginated slice of a bidder's own history. The
// cursor is the (NextBefore, NextBeforeID) pair so bids sharing a
// timestamp page through cleanly.
type BidPage struct {
	Bids         []BidRecord `json:"bids"`
	NextBefore   string      `json:"next_before,omitempty"`
	NextBeforeID uint        `json:"next_before_id,omitempty"`
}
