package pricing

import "github.com/shopspring/decimal"

// Rates applied to an accepted bid amount. These are owned by the
// server; clients render the quote, they never recompute it.
var (
	vatRate = decimal.NewFromFloat(0.10)
	feeRate = decimal.NewFromFloat(0.05)
)

// Quote breaks a bid amount into principal, VAT and platform fee.
// All values are in the smallest currency unit.
type Quote struct {
	Principal int64 `json:"principal"`
	VAT       int64 `json:"vat"`
	Fee       int64 `json:"fee"`
	Total     int64 `json:"total"`
}

// QuoteFor computes the quote for an amount. VAT and fee round half up
// to whole currency units. Pure function, no side effects.
func QuoteFor(amount int64) Quote {
	principal := decimal.NewFromInt(amount)
	vat := principal.Mul(vatRate).Round(0)
	fee := principal.Mul(feeRate).Round(0)

	return Quote{
		Principal: amount,
		VAT:       vat.IntPart(),
		Fee:       fee.IntPart(),
		Total:     principal.Add(vat).Add(fee).IntPart(),
	}
}
