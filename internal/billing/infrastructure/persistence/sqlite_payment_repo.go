package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fakturly/fakturly/internal/billing/domain"
	sharedPersistence "github.com/fakturly/fakturly/internal/shared/infrastructure/persistence"
)

// SQLitePaymentRepository handles persistence for payments using SQLite.
type SQLitePaymentRepository struct {
	dbConn *sql.DB
}

// NewSQLitePaymentRepository creates a new SQLitePaymentRepository.
func NewSQLitePaymentRepository(dbConn *sql.DB) *SQLitePaymentRepository {
	return &SQLitePaymentRepository{dbConn: dbConn}
}

type sqliteExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SQLitePaymentRepository) executor(ctx context.Context) sqliteExecutor {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return r.dbConn
}

const sqlitePaymentColumns = `id, user_id, external_id, gateway_invoice_id, gateway_invoice_url,
	amount, status, paid_at, created_at, updated_at`

// Save persists a payment, upserting by its gateway external ID so webhook
// redeliveries land on the same row.
func (r *SQLitePaymentRepository) Save(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (
			id, user_id, external_id, gateway_invoice_id, gateway_invoice_url,
			amount, status, paid_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (external_id) DO UPDATE SET
			gateway_invoice_id = excluded.gateway_invoice_id,
			gateway_invoice_url = excluded.gateway_invoice_url,
			amount = excluded.amount,
			status = excluded.status,
			paid_at = excluded.paid_at,
			updated_at = excluded.updated_at
	`
	var paidAt any
	if p := payment.PaidAt(); p != nil {
		paidAt = p.UTC().Format(time.RFC3339Nano)
	}

	_, err := r.executor(ctx).ExecContext(ctx, query,
		payment.ID().String(), payment.UserID().String(), payment.ExternalID(),
		payment.GatewayInvoiceID(), payment.GatewayInvoiceURL(),
		payment.Amount().String(), string(payment.Status()), paidAt,
		payment.CreatedAt().UTC().Format(time.RFC3339Nano),
		payment.UpdatedAt().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// FindByExternalID retrieves a payment by its gateway external ID.
func (r *SQLitePaymentRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.Payment, error) {
	query := `SELECT ` + sqlitePaymentColumns + ` FROM payments WHERE external_id = ?`
	return scanSQLitePayment(r.executor(ctx).QueryRowContext(ctx, query, externalID))
}

// FindByUserID returns a user's payments, newest first.
func (r *SQLitePaymentRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Payment, error) {
	query := `SELECT ` + sqlitePaymentColumns + ` FROM payments WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := r.executor(ctx).QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSQLitePayments(rows)
}

// List returns a page of all payments, newest first.
func (r *SQLitePaymentRepository) List(ctx context.Context, limit, offset int) ([]*domain.Payment, error) {
	query := `SELECT ` + sqlitePaymentColumns + ` FROM payments ORDER BY created_at DESC LIMIT ? OFFSET ?`
	rows, err := r.executor(ctx).QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSQLitePayments(rows)
}

func collectSQLitePayments(rows *sql.Rows) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	for rows.Next() {
		payment, err := scanSQLitePayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLitePayment(row rowScanner) (*domain.Payment, error) {
	var (
		idStr, userIDStr           string
		externalID                 string
		gatewayID, gatewayURL      string
		amountStr, status          string
		paidAtStr                  sql.NullString
		createdAtStr, updatedAtStr string
	)
	err := row.Scan(&idStr, &userIDStr, &externalID, &gatewayID, &gatewayURL,
		&amountStr, &status, &paidAtStr, &createdAtStr, &updatedAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
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
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, err
	}
	var paidAt *time.Time
	if paidAtStr.Valid && paidAtStr.String != "" {
		t, err := time.Parse(time.RFC3339Nano, paidAtStr.String)
		if err != nil {
			return nil, err
		}
		paidAt = &t
	}
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return nil, err
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, updatedAtStr)
	if err != nil {
		return nil, err
	}

	return domain.RehydratePayment(id, userID, externalID, gatewayID, gatewayURL,
		amount, domain.PaymentStatus(status), paidAt, createdAt, updatedAt), nil
}
