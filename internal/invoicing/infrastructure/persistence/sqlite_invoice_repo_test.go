package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/fakturly/fakturly/internal/invoicing/domain"
	"github.com/fakturly/fakturly/internal/shared/infrastructure/migrations"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	dbConn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	dbConn.SetMaxOpenConns(1)
	t.Cleanup(func() { dbConn.Close() })

	require.NoError(t, migrations.RunSQLiteMigrations(context.Background(), dbConn))
	return dbConn
}

func testItems() []domain.LineItem {
	return []domain.LineItem{
		domain.NewLineItem("design work", "2", "100000", "10"),
		domain.NewLineItem("hosting", "1", "50000", "0"),
	}
}

func newTestInvoice(t *testing.T, userID uuid.UUID, number string, issueDate time.Time) *domain.Invoice {
	t.Helper()
	due := issueDate.AddDate(0, 0, 14)
	invoice, err := domain.NewInvoice(
		userID, number, "",
		issueDate, &due,
		domain.Party{Name: "Acme Studio", Email: "studio@example.com"},
		domain.Party{Name: "Customer Co", Address: "Jakarta"},
		testItems(),
		domain.StatusUnpaid,
		"terima kasih", "NET 14",
	)
	require.NoError(t, err)
	invoice.ClearDomainEvents()
	return invoice
}

func TestSQLiteInvoiceRepository_SaveAndFind(t *testing.T) {
	repo := NewSQLiteInvoiceRepository(setupDB(t))
	ctx := context.Background()

	userID := uuid.New()
	issueDate := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	invoice := newTestInvoice(t, userID, "INV-20250615-0001", issueDate)
	require.NoError(t, repo.Save(ctx, invoice))

	found, err := repo.FindByID(ctx, invoice.ID())
	require.NoError(t, err)
	assert.Equal(t, invoice.ID(), found.ID())
	assert.Equal(t, "INV-20250615-0001", found.Number())
	assert.Equal(t, userID, found.UserID())
	assert.True(t, found.IssueDate().Equal(issueDate))
	require.NotNil(t, found.DueDate())
	assert.Equal(t, "Acme Studio", found.Seller().Name)
	assert.Equal(t, "Customer Co", found.Customer().Name)
	assert.Equal(t, domain.StatusUnpaid, found.Status())

	items := found.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "design work", items[0].Description)
	assert.Equal(t, "2", items[0].Quantity.String())

	// Totals recompute from the stored items.
	totals := found.Totals()
	assert.Equal(t, "250000", totals.Subtotal.String())
	assert.Equal(t, "20000", totals.TaxAmount.String())
	assert.Equal(t, "270000", totals.Total.String())
	assert.Equal(t, "8", totals.EffectiveTaxPercent.String())
}

func TestSQLiteInvoiceRepository_NotFound(t *testing.T) {
	repo := NewSQLiteInvoiceRepository(setupDB(t))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
}

func TestSQLiteInvoiceRepository_UpdateReplacesItems(t *testing.T) {
	repo := NewSQLiteInvoiceRepository(setupDB(t))
	ctx := context.Background()

	issueDate := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	invoice := newTestInvoice(t, uuid.New(), "INV-20250615-0001", issueDate)
	require.NoError(t, repo.Save(ctx, invoice))

	single := domain.NewLineItem("consulting", "1", "75000", "0")
	require.NoError(t, invoice.Update(
		invoice.Number(), invoice.HeaderTitle(), invoice.IssueDate(), invoice.DueDate(),
		invoice.Seller(), invoice.Customer(), []domain.LineItem{single},
		domain.StatusPaid, invoice.Notes(), invoice.PaymentTerms(),
	))
	invoice.ClearDomainEvents()
	require.NoError(t, repo.Save(ctx, invoice))

	found, err := repo.FindByID(ctx, invoice.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, found.Status())
	require.Len(t, found.Items(), 1)
	assert.Equal(t, "consulting", found.Items()[0].Description)
	assert.Equal(t, "75000", found.Totals().Total.String())
}

func TestSQLiteInvoiceRepository_ListAndCount(t *testing.T) {
	repo := NewSQLiteInvoiceRepository(setupDB(t))
	ctx := context.Background()

	userID := uuid.New()
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Save(ctx, newTestInvoice(t, userID, "INV-20250615-0001", day)))
	require.NoError(t, repo.Save(ctx, newTestInvoice(t, userID, "INV-20250615-0002", day)))
	require.NoError(t, repo.Save(ctx, newTestInvoice(t, userID, "INV-20250616-0001", day.AddDate(0, 0, 1))))
	require.NoError(t, repo.Save(ctx, newTestInvoice(t, uuid.New(), "INV-20250615-0001", day)))

	count, err := repo.CountByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	sameDay, err := repo.CountByUserAndIssueDate(ctx, userID, day)
	require.NoError(t, err)
	assert.Equal(t, 2, sameDay)

	invoices, err := repo.FindByUserID(ctx, userID, 10, 0)
	require.NoError(t, err)
	require.Len(t, invoices, 3)
	for _, inv := range invoices {
		assert.Len(t, inv.Items(), 2)
	}

	page, err := repo.FindByUserID(ctx, userID, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestSQLiteInvoiceRepository_DuplicateNumberForUser(t *testing.T) {
	repo := NewSQLiteInvoiceRepository(setupDB(t))
	ctx := context.Background()

	userID := uuid.New()
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Save(ctx, newTestInvoice(t, userID, "INV-20250615-0001", day)))

	err := repo.Save(ctx, newTestInvoice(t, userID, "INV-20250615-0001", day))
	assert.Error(t, err)
}

func TestSQLiteInvoiceRepository_DeleteRemovesItems(t *testing.T) {
	dbConn := setupDB(t)
	repo := NewSQLiteInvoiceRepository(dbConn)
	ctx := context.Background()

	invoice := newTestInvoice(t, uuid.New(), "INV-20250615-0001", time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Save(ctx, invoice))
	require.NoError(t, repo.Delete(ctx, invoice.ID()))

	_, err := repo.FindByID(ctx, invoice.ID())
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)

	var orphaned int
	require.NoError(t, dbConn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM invoice_items WHERE invoice_id = ?`,
		invoice.ID().String()).Scan(&orphaned))
	assert.Zero(t, orphaned)
}
