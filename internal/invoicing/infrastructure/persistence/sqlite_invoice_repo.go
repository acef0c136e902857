package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fakturly/fakturly/internal/invoicing/domain"
	sharedPersistence "github.com/fakturly/fakturly/internal/shared/infrastructure/persistence"
)

// dateLayout is how issue and due dates are stored in SQLite.
const dateLayout = "2006-01-02"

// SQLiteInvoiceRepository handles persistence for invoices using SQLite.
// Money columns are stored as decimal strings to avoid float drift.
type SQLiteInvoiceRepository struct {
	dbConn *sql.DB
}

// NewSQLiteInvoiceRepository creates a new SQLiteInvoiceRepository.
func NewSQLiteInvoiceRepository(dbConn *sql.DB) *SQLiteInvoiceRepository {
	return &SQLiteInvoiceRepository{dbConn: dbConn}
}

type sqliteExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SQLiteInvoiceRepository) executor(ctx context.Context) sqliteExecutor {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return r.dbConn
}

const sqliteInvoiceColumns = `id, user_id, number, header_title, issue_date, due_date,
	seller_name, seller_email, seller_phone, seller_address,
	customer_name, customer_email, customer_phone, customer_address,
	status, notes, payment_terms, created_at, updated_at`

// Save persists an invoice and its line items.
func (r *SQLiteInvoiceRepository) Save(ctx context.Context, invoice *domain.Invoice) error {
	exec := r.executor(ctx)
	totals := invoice.Totals()
	seller := invoice.Seller()
	customer := invoice.Customer()

	var dueDate any
	if d := invoice.DueDate(); d != nil {
		dueDate = d.Format(dateLayout)
	}

	query := `
		INSERT INTO invoices (
			id, user_id, number, header_title, issue_date, due_date,
			seller_name, seller_email, seller_phone, seller_address,
			customer_name, customer_email, customer_phone, customer_address,
			status, notes, payment_terms,
			subtotal, tax_amount, tax_percent, total,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			number = excluded.number,
			header_title = excluded.header_title,
			issue_date = excluded.issue_date,
			due_date = excluded.due_date,
			seller_name = excluded.seller_name,
			seller_email = excluded.seller_email,
			seller_phone = excluded.seller_phone,
			seller_address = excluded.seller_address,
			customer_name = excluded.customer_name,
			customer_email = excluded.customer_email,
			customer_phone = excluded.customer_phone,
			customer_address = excluded.customer_address,
			status = excluded.status,
			notes = excluded.notes,
			payment_terms = excluded.payment_terms,
			subtotal = excluded.subtotal,
			tax_amount = excluded.tax_amount,
			tax_percent = excluded.tax_percent,
			total = excluded.total,
			updated_at = excluded.updated_at
	`
	_, err := exec.ExecContext(ctx, query,
		invoice.ID().String(), invoice.UserID().String(), invoice.Number(), invoice.HeaderTitle(),
		invoice.IssueDate().Format(dateLayout), dueDate,
		seller.Name, seller.Email, seller.Phone, seller.Address,
		customer.Name, customer.Email, customer.Phone, customer.Address,
		string(invoice.Status()), invoice.Notes(), invoice.PaymentTerms(),
		totals.Subtotal.String(), totals.TaxAmount.String(),
		totals.EffectiveTaxPercent.String(), totals.Total.String(),
		invoice.CreatedAt().UTC().Format(time.RFC3339Nano),
		invoice.UpdatedAt().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}

	if _, err := exec.ExecContext(ctx, `DELETE FROM invoice_items WHERE invoice_id = ?`, invoice.ID().String()); err != nil {
		return err
	}
	for position, item := range invoice.Items() {
		_, err := exec.ExecContext(ctx, `
			INSERT INTO invoice_items (id, invoice_id, description, quantity, unit_price, tax_percent, position, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, uuid.New().String(), invoice.ID().String(), item.Description,
			item.Quantity.String(), item.UnitPrice.String(), item.TaxPercent.String(),
			position, time.Now().UTC().Format(time.RFC3339Nano))
		if err != nil {
			return err
		}
	}
	return nil
}

// FindByID retrieves an invoice with its line items.
func (r *SQLiteInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	exec := r.executor(ctx)
	invoice, err := scanSQLiteInvoice(exec.QueryRowContext(ctx,
		`SELECT `+sqliteInvoiceColumns+` FROM invoices WHERE id = ?`, id.String()))
	if err != nil {
		return nil, err
	}
	return r.withItems(ctx, invoice)
}

// FindByUserID returns a page of the user's invoices, newest first.
func (r *SQLiteInvoiceRepository) FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Invoice, error) {
	exec := r.executor(ctx)
	rows, err := exec.QueryContext(ctx,
		`SELECT `+sqliteInvoiceColumns+` FROM invoices WHERE user_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		userID.String(), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []*domain.Invoice
	for rows.Next() {
		invoice, err := scanSQLiteInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, invoice := range invoices {
		invoices[i], err = r.withItems(ctx, invoice)
		if err != nil {
			return nil, err
		}
	}
	return invoices, nil
}

// CountByUserID returns the user's invoice count, for quota checks.
func (r *SQLiteInvoiceRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.executor(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM invoices WHERE user_id = ?`, userID.String()).Scan(&count)
	return count, err
}

// CountByUserAndIssueDate counts invoices issued on one day, for number
// sequencing.
func (r *SQLiteInvoiceRepository) CountByUserAndIssueDate(ctx context.Context, userID uuid.UUID, issueDate time.Time) (int, error) {
	var count int
	err := r.executor(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM invoices WHERE user_id = ? AND issue_date = ?`,
		userID.String(), issueDate.Format(dateLayout)).Scan(&count)
	return count, err
}

// Delete removes an invoice and its line items.
func (r *SQLiteInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	exec := r.executor(ctx)
	if _, err := exec.ExecContext(ctx, `DELETE FROM invoice_items WHERE invoice_id = ?`, id.String()); err != nil {
		return err
	}
	_, err := exec.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, id.String())
	return err
}

func (r *SQLiteInvoiceRepository) withItems(ctx context.Context, invoice *domain.Invoice) (*domain.Invoice, error) {
	rows, err := r.executor(ctx).QueryContext(ctx, `
		SELECT description, quantity, unit_price, tax_percent
		FROM invoice_items
		WHERE invoice_id = ?
		ORDER BY position
	`, invoice.ID().String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.LineItem
	for rows.Next() {
		var (
			description                     string
			quantity, unitPrice, taxPercent string
		)
		if err := rows.Scan(&description, &quantity, &unitPrice, &taxPercent); err != nil {
			return nil, err
		}
		item := domain.LineItem{Description: description}
		if item.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, err
		}
		if item.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return nil, err
		}
		if item.TaxPercent, err = decimal.NewFromString(taxPercent); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return domain.RehydrateInvoice(
		invoice.ID(), invoice.UserID(), invoice.Number(), invoice.HeaderTitle(),
		invoice.IssueDate(), invoice.DueDate(), invoice.Seller(), invoice.Customer(),
		items, invoice.Status(), invoice.Notes(), invoice.PaymentTerms(),
		invoice.CreatedAt(), invoice.UpdatedAt(),
	), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteInvoice(row rowScanner) (*domain.Invoice, error) {
	var (
		idStr, userIDStr           string
		number, headerTitle        string
		issueDateStr               string
		dueDateStr                 sql.NullString
		seller, customer           domain.Party
		status                     string
		notes, paymentTerms        string
		createdAtStr, updatedAtStr string
	)
	err := row.Scan(&idStr, &userIDStr, &number, &headerTitle, &issueDateStr, &dueDateStr,
		&seller.Name, &seller.Email, &seller.Phone, &seller.Address,
		&customer.Name, &customer.Email, &customer.Phone, &customer.Address,
		&status, &notes, &paymentTerms, &createdAtStr, &updatedAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, err
	}
	issueDate, err := time.Parse(dateLayout, issueDateStr)
	if err != nil {
		return nil, err
	}
	var dueDate *time.Time
	if dueDateStr.Valid && dueDateStr.String != "" {
		d, err := time.Parse(dateLayout, dueDateStr.String)
		if err != nil {
			return nil, err
		}
		dueDate = &d
	}
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return nil, err
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, updatedAtStr)
	if err != nil {
		return nil, err
	}

	return domain.RehydrateInvoice(
		id, userID, number, headerTitle, issueDate, dueDate,
		seller, customer, nil, domain.Status(status), notes, paymentTerms,
		createdAt, updatedAt,
	), nil
}
