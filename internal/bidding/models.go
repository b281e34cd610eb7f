package bidding

// PlaceBidRequest is the body for submitting a bid. Amounts are in the
// smallest currency unit and must be positive multiples of BidIncrement.
type PlaceBidRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// BidIncrement is the resolved minimum bid granularity: every bid must
// be a positive multiple of 10,000 smallest-currency units.
const BidIncrement = 10_000
