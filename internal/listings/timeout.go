package listings

import (
	"time"

	"github.com/medibid/auction-api/internal/types"
)

// RemainingTime computes the display breakdown of time left before the
// bidding timeout. Read-side only: no state transition happens here,
// the expiry processor owns closing overdue listings.
func RemainingTime(timeoutAt, now time.Time) types.Remaining {
	if !now.Before(timeoutAt) {
		return types.Remaining{Expired: true}
	}

	d := timeoutAt.Sub(now)
	return types.Remaining{
		Days:    int(d / (24 * time.Hour)),
		Hours:   int(d % (24 * time.Hour) / time.Hour),
		Minutes: int(d % time.Hour / time.Minute),
	}
}
