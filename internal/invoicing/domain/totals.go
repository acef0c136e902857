package domain

import "github.com/shopspring/decimal"

// Totals is the derived financial summary of an invoice's line items. It
// is recomputed from the items on every read and write, never stored as
// authoritative.
type Totals struct {
	Subtotal            decimal.Decimal `json:"subtotal"`
	TaxAmount           decimal.Decimal `json:"tax_amount"`
	EffectiveTaxPercent decimal.Decimal `json:"effective_tax_percent"`
	Total               decimal.Decimal `json:"total"`
}

// ComputeTotals aggregates line amounts and taxes into invoice totals.
// The computation is deterministic and order-independent, and it never
// fails: bad input has already been normalized to zero at parse time.
// Amounts are kept at full precision internally; rounding to two decimal
// places happens only at display time.
func ComputeTotals(items []LineItem) Totals {
	subtotal := decimal.Zero
	taxAmount := decimal.Zero

	for _, item := range items {
		subtotal = subtotal.Add(item.Amount())
		taxAmount = taxAmount.Add(item.Tax())
	}

	// The effective rate is a display-only aggregate; it feeds no further
	// computation, so a zero subtotal simply yields zero.
	effectiveTaxPercent := decimal.Zero
	if subtotal.IsPositive() {
		effectiveTaxPercent = taxAmount.Div(subtotal).Mul(decimal.NewFromInt(100))
	}

	return Totals{
		Subtotal:            subtotal,
		TaxAmount:           taxAmount,
		EffectiveTaxPercent: effectiveTaxPercent,
		Total:               subtotal.Add(taxAmount),
	}
}
