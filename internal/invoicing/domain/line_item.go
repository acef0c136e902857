package domain

import (
	"github.com/shopspring/decimal"
)

// LineItem is one billable row of an invoice. Quantities, prices, and tax
// percentages arrive as untrusted strings from form input; anything that
// does not parse becomes zero so a malformed line can never fail the
// invoice summary.
type LineItem struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxPercent  decimal.Decimal
}

// NewLineItem builds a line item from raw form values using
// parse-or-default-zero semantics.
func NewLineItem(description, quantity, unitPrice, taxPercent string) LineItem {
	return LineItem{
		Description: description,
		Quantity:    parseDecimal(quantity),
		UnitPrice:   parseDecimal(unitPrice),
		TaxPercent:  parseDecimal(taxPercent),
	}
}

// Amount returns quantity * unitPrice for this line.
func (li LineItem) Amount() decimal.Decimal {
	return li.Quantity.Mul(li.UnitPrice)
}

// Tax returns the tax owed on this line: amount * taxPercent / 100.
func (li LineItem) Tax() decimal.Decimal {
	return li.Amount().Mul(li.TaxPercent).Div(decimal.NewFromInt(100))
}

func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}
