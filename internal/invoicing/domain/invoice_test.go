package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInvoice(t *testing.T) *Invoice {
	t.Helper()
	inv, err := NewInvoice(
		uuid.New(),
		"INV-20250615-0001",
		"Invoice",
		time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		nil,
		Party{Name: "Acme Studio", Email: "billing@acme.test"},
		Party{Name: "Customer Co"},
		[]LineItem{NewLineItem("design work", "2", "100000", "10")},
		StatusUnpaid,
		"", "",
	)
	require.NoError(t, err)
	return inv
}

func TestNewInvoice(t *testing.T) {
	inv := newTestInvoice(t)

	assert.Equal(t, "INV-20250615-0001", inv.Number())
	assert.Equal(t, StatusUnpaid, inv.Status())

	totals := inv.Totals()
	assert.Equal(t, "200000", totals.Subtotal.String())
	assert.Equal(t, "220000", totals.Total.String())

	events := inv.DomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, InvoiceCreatedKey, events[0].RoutingKey())
}

func TestNewInvoice_RequiresNumber(t *testing.T) {
	_, err := NewInvoice(uuid.New(), "", "", time.Now(), nil, Party{}, Party{}, nil, StatusDraft, "", "")
	assert.ErrorIs(t, err, ErrEmptyInvoiceNumber)
}

func TestNewInvoice_UnknownStatusFallsBackToDraft(t *testing.T) {
	inv, err := NewInvoice(uuid.New(), "INV-1", "", time.Now(), nil, Party{}, Party{}, nil, Status("archived"), "", "")
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, inv.Status())
}

func TestInvoice_UpdateRecomputesTotals(t *testing.T) {
	inv := newTestInvoice(t)
	inv.ClearDomainEvents()

	err := inv.Update(
		inv.Number(), inv.HeaderTitle(), inv.IssueDate(), nil,
		inv.Seller(), inv.Customer(),
		[]LineItem{
			NewLineItem("design work", "2", "100000", "10"),
			NewLineItem("hosting", "1", "50000", "0"),
		},
		StatusUnpaid, "", "",
	)
	require.NoError(t, err)

	totals := inv.Totals()
	assert.Equal(t, "250000", totals.Subtotal.String())
	assert.Equal(t, "20000", totals.TaxAmount.String())
	assert.Equal(t, "270000", totals.Total.String())

	events := inv.DomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, InvoiceUpdatedKey, events[0].RoutingKey())
}

func TestInvoice_UpdateRejectsInvalidStatus(t *testing.T) {
	inv := newTestInvoice(t)
	err := inv.Update(inv.Number(), "", inv.IssueDate(), nil, Party{}, Party{}, nil, Status("archived"), "", "")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestInvoice_MarkStatus(t *testing.T) {
	inv := newTestInvoice(t)
	inv.ClearDomainEvents()

	require.NoError(t, inv.MarkStatus(StatusPaid))
	assert.Equal(t, StatusPaid, inv.Status())

	// Same status again emits nothing.
	inv.ClearDomainEvents()
	require.NoError(t, inv.MarkStatus(StatusPaid))
	assert.Empty(t, inv.DomainEvents())
}

func TestInvoice_BelongsTo(t *testing.T) {
	inv := newTestInvoice(t)
	assert.True(t, inv.BelongsTo(inv.UserID()))
	assert.False(t, inv.BelongsTo(uuid.New()))
}

func TestFormatInvoiceNumber(t *testing.T) {
	date := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "INV-20250615-0003", FormatInvoiceNumber(date, 3))
	assert.Equal(t, "INV-20250615-1234", FormatInvoiceNumber(date, 1234))
}
