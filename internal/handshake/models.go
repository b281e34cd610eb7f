package handshake

import "github.com/medibid/auction-api/internal/types"

// VisitRequest rewrites the shared visit fields from either side.
type VisitRequest struct {
	VisitDate string `json:"visit_date" binding:"required"`
	VisitTime string `json:"visit_time" binding:"required"`
}

// AdvanceRequest is the body for one handshake step. Step names the
// caller's current step (the one being completed); it must match the
// listing's recorded step for that side or the call fails.
//
// Info carries transfer details (required for the buyer's step 1).
// VisitDate/VisitTime write the shared visit fields, last writer wins.
type AdvanceRequest struct {
	Step      int                        `json:"step" binding:"required,min=1,max=3"`
	Info      *types.TransferInfoPayload `json:"info,omitempty"`
	VisitDate string                     `json:"visit_date,omitempty"`
	VisitTime string                     `json:"visit_time,omitempty"`
}
