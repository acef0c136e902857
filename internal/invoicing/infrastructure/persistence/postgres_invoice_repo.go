package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fakturly/fakturly/internal/invoicing/domain"
	sharedPersistence "github.com/fakturly/fakturly/internal/shared/infrastructure/persistence"
)

// PostgresInvoiceRepository handles persistence for invoices using
// PostgreSQL. Line items are replaced wholesale on every save.
type PostgresInvoiceRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresInvoiceRepository creates a new PostgresInvoiceRepository.
func NewPostgresInvoiceRepository(pool *pgxpool.Pool) *PostgresInvoiceRepository {
	return &PostgresInvoiceRepository{pool: pool}
}

const invoiceColumns = `id, user_id, number, header_title, issue_date, due_date,
	seller_name, seller_email, seller_phone, seller_address,
	customer_name, customer_email, customer_phone, customer_address,
	status, notes, payment_terms, created_at, updated_at`

// Save persists an invoice and its line items.
func (r *PostgresInvoiceRepository) Save(ctx context.Context, invoice *domain.Invoice) error {
	exec := sharedPersistence.Executor(ctx, r.pool)
	totals := invoice.Totals()
	seller := invoice.Seller()
	customer := invoice.Customer()

	query := `
		INSERT INTO invoices (
			id, user_id, number, header_title, issue_date, due_date,
			seller_name, seller_email, seller_phone, seller_address,
			customer_name, customer_email, customer_phone, customer_address,
			status, notes, payment_terms,
			subtotal, tax_amount, tax_percent, total,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23
		)
		ON CONFLICT (id) DO UPDATE SET
			number = EXCLUDED.number,
			header_title = EXCLUDED.header_title,
			issue_date = EXCLUDED.issue_date,
			due_date = EXCLUDED.due_date,
			seller_name = EXCLUDED.seller_name,
			seller_email = EXCLUDED.seller_email,
			seller_phone = EXCLUDED.seller_phone,
			seller_address = EXCLUDED.seller_address,
			customer_name = EXCLUDED.customer_name,
			customer_email = EXCLUDED.customer_email,
			customer_phone = EXCLUDED.customer_phone,
			customer_address = EXCLUDED.customer_address,
			status = EXCLUDED.status,
			notes = EXCLUDED.notes,
			payment_terms = EXCLUDED.payment_terms,
			subtotal = EXCLUDED.subtotal,
			tax_amount = EXCLUDED.tax_amount,
			tax_percent = EXCLUDED.tax_percent,
			total = EXCLUDED.total,
			updated_at = EXCLUDED.updated_at
	`
	_, err := exec.Exec(ctx, query,
		invoice.ID(), invoice.UserID(), invoice.Number(), invoice.HeaderTitle(),
		invoice.IssueDate(), invoice.DueDate(),
		seller.Name, seller.Email, seller.Phone, seller.Address,
		customer.Name, customer.Email, customer.Phone, customer.Address,
		string(invoice.Status()), invoice.Notes(), invoice.PaymentTerms(),
		totals.Subtotal, totals.TaxAmount, totals.EffectiveTaxPercent, totals.Total,
		invoice.CreatedAt(), invoice.UpdatedAt(),
	)
	if err != nil {
		return err
	}

	if _, err := exec.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, invoice.ID()); err != nil {
		return err
	}
	for position, item := range invoice.Items() {
		_, err := exec.Exec(ctx, `
			INSERT INTO invoice_items (id, invoice_id, description, quantity, unit_price, tax_percent, position, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, uuid.New(), invoice.ID(), item.Description, item.Quantity, item.UnitPrice, item.TaxPercent, position, time.Now())
		if err != nil {
			return err
		}
	}
	return nil
}

// FindByID retrieves an invoice with its line items.
func (r *PostgresInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	exec := sharedPersistence.Executor(ctx, r.pool)
	invoice, err := scanPostgresInvoice(exec.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id), nil)
	if err != nil {
		return nil, err
	}
	return r.withItems(ctx, invoice)
}

// FindByUserID returns a page of the user's invoices, newest first.
func (r *PostgresInvoiceRepository) FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Invoice, error) {
	exec := sharedPersistence.Executor(ctx, r.pool)
	rows, err := exec.Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []*domain.Invoice
	for rows.Next() {
		invoice, err := scanPostgresInvoice(rows, nil)
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
func (r *PostgresInvoiceRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM invoices WHERE user_id = $1`, userID).Scan(&count)
	return count, err
}

// CountByUserAndIssueDate counts invoices issued on one day, for number
// sequencing.
func (r *PostgresInvoiceRepository) CountByUserAndIssueDate(ctx context.Context, userID uuid.UUID, issueDate time.Time) (int, error) {
	var count int
	err := sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM invoices WHERE user_id = $1 AND issue_date = $2::date`,
		userID, issueDate).Scan(&count)
	return count, err
}

// Delete removes an invoice. Line items cascade.
func (r *PostgresInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := sharedPersistence.Executor(ctx, r.pool).
		Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	return err
}

func (r *PostgresInvoiceRepository) withItems(ctx context.Context, invoice *domain.Invoice) (*domain.Invoice, error) {
	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx, `
		SELECT description, quantity, unit_price, tax_percent
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY position
	`, invoice.ID())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.LineItem
	for rows.Next() {
		var item domain.LineItem
		if err := rows.Scan(&item.Description, &item.Quantity, &item.UnitPrice, &item.TaxPercent); err != nil {
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

func scanPostgresInvoice(row pgx.Row, items []domain.LineItem) (*domain.Invoice, error) {
	var (
		id, userID           uuid.UUID
		number, headerTitle  string
		issueDate            time.Time
		dueDate              *time.Time
		seller, customer     domain.Party
		status               string
		notes, paymentTerms  string
		createdAt, updatedAt time.Time
	)
	err := row.Scan(&id, &userID, &number, &headerTitle, &issueDate, &dueDate,
		&seller.Name, &seller.Email, &seller.Phone, &seller.Address,
		&customer.Name, &customer.Email, &customer.Phone, &customer.Address,
		&status, &notes, &paymentTerms, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, err
	}

	return domain.RehydrateInvoice(
		id, userID, number, headerTitle, issueDate, dueDate,
		seller, customer, items, domain.Status(status), notes, paymentTerms,
		createdAt, updatedAt,
	), nil
}
