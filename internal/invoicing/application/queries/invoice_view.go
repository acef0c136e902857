package queries

import (
	"time"

	"github.com/google/uuid"

	"github.com/fakturly/fakturly/internal/invoicing/domain"
)

// PartyView is the read model of an invoice party snapshot.
type PartyView struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// LineItemView is the read model of one line item with its derived
// amounts, rounded to two decimal places for display.
type LineItemView struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	TaxPercent  string `json:"tax_percent"`
	Amount      string `json:"amount"`
	Tax         string `json:"tax"`
}

// TotalsView is the read model of an invoice's financial summary.
type TotalsView struct {
	Subtotal            string `json:"subtotal"`
	TaxAmount           string `json:"tax_amount"`
	EffectiveTaxPercent string `json:"effective_tax_percent"`
	Total               string `json:"total"`
}

// InvoiceView is the full read model of an invoice.
type InvoiceView struct {
	ID           uuid.UUID      `json:"id"`
	Number       string         `json:"number"`
	HeaderTitle  string         `json:"header_title,omitempty"`
	IssueDate    time.Time      `json:"issue_date"`
	DueDate      *time.Time     `json:"due_date,omitempty"`
	Seller       PartyView      `json:"seller"`
	Customer     PartyView      `json:"customer"`
	Items        []LineItemView `json:"items"`
	Status       string         `json:"status"`
	Notes        string         `json:"notes,omitempty"`
	PaymentTerms string         `json:"payment_terms,omitempty"`
	Totals       TotalsView     `json:"totals"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NewInvoiceView builds the read model, recomputing totals from the items.
func NewInvoiceView(inv *domain.Invoice) InvoiceView {
	items := inv.Items()
	itemViews := make([]LineItemView, 0, len(items))
	for _, item := range items {
		itemViews = append(itemViews, LineItemView{
			Description: item.Description,
			Quantity:    item.Quantity.String(),
			UnitPrice:   item.UnitPrice.StringFixed(2),
			TaxPercent:  item.TaxPercent.String(),
			Amount:      item.Amount().StringFixed(2),
			Tax:         item.Tax().StringFixed(2),
		})
	}

	totals := inv.Totals()
	return InvoiceView{
		ID:           inv.ID(),
		Number:       inv.Number(),
		HeaderTitle:  inv.HeaderTitle(),
		IssueDate:    inv.IssueDate(),
		DueDate:      inv.DueDate(),
		Seller:       partyView(inv.Seller()),
		Customer:     partyView(inv.Customer()),
		Items:        itemViews,
		Status:       string(inv.Status()),
		Notes:        inv.Notes(),
		PaymentTerms: inv.PaymentTerms(),
		Totals: TotalsView{
			Subtotal:            totals.Subtotal.StringFixed(2),
			TaxAmount:           totals.TaxAmount.StringFixed(2),
			EffectiveTaxPercent: totals.EffectiveTaxPercent.StringFixed(2),
			Total:               totals.Total.StringFixed(2),
		},
		CreatedAt: inv.CreatedAt(),
		UpdatedAt: inv.UpdatedAt(),
	}
}

func partyView(p domain.Party) PartyView {
	return PartyView{Name: p.Name, Email: p.Email, Phone: p.Phone, Address: p.Address}
}
