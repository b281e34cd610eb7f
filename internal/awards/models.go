package awards

import "github.com/medibid/auction-api/internal/types"

// AwardRequest is the body for selecting a winning bid. The seller's
// transfer details ride along and persist in the same transaction.
type AwardRequest struct {
	BidID      string                    `json:"bid_id" binding:"required"`
	SellerInfo types.TransferInfoPayload `json:"seller_info" binding:"required"`
}
