package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fakturly/fakturly/internal/billing/domain"
	sharedPersistence "github.com/fakturly/fakturly/internal/shared/infrastructure/persistence"
)

// PostgresPaymentRepository handles persistence for payments using PostgreSQL.
type PostgresPaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresPaymentRepository creates a new PostgresPaymentRepository.
func NewPostgresPaymentRepository(pool *pgxpool.Pool) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{pool: pool}
}

const paymentColumns = `id, user_id, external_id, gateway_invoice_id, gateway_invoice_url,
	amount, status, paid_at, created_at, updated_at`

// Save persists a payment, upserting by its gateway external ID so webhook
// redeliveries land on the same row.
func (r *PostgresPaymentRepository) Save(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (
			id, user_id, external_id, gateway_invoice_id, gateway_invoice_url,
			amount, status, paid_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (external_id) DO UPDATE SET
			gateway_invoice_id = EXCLUDED.gateway_invoice_id,
			gateway_invoice_url = EXCLUDED.gateway_invoice_url,
			amount = EXCLUDED.amount,
			status = EXCLUDED.status,
			paid_at = EXCLUDED.paid_at,
			updated_at = EXCLUDED.updated_at
	`
	_, err := sharedPersistence.Executor(ctx, r.pool).Exec(ctx, query,
		payment.ID(), payment.UserID(), payment.ExternalID(),
		payment.GatewayInvoiceID(), payment.GatewayInvoiceURL(),
		payment.Amount(), string(payment.Status()), payment.PaidAt(),
		payment.CreatedAt(), payment.UpdatedAt(),
	)
	return err
}

// FindByExternalID retrieves a payment by its gateway external ID.
func (r *PostgresPaymentRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE external_id = $1`
	return scanPostgresPayment(sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, query, externalID))
}

// FindByUserID returns a user's payments, newest first.
func (r *PostgresPaymentRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPostgresPayments(rows)
}

// List returns a page of all payments, newest first.
func (r *PostgresPaymentRepository) List(ctx context.Context, limit, offset int) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPostgresPayments(rows)
}

func collectPostgresPayments(rows pgx.Rows) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	for rows.Next() {
		payment, err := scanPostgresPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

func scanPostgresPayment(row pgx.Row) (*domain.Payment, error) {
	var (
		id, userID            uuid.UUID
		externalID            string
		gatewayID, gatewayURL string
		amount                decimal.Decimal
		status                string
		paidAt                *time.Time
		createdAt, updatedAt  time.Time
	)
	err := row.Scan(&id, &userID, &externalID, &gatewayID, &gatewayURL,
		&amount, &status, &paidAt, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}

	return domain.RehydratePayment(id, userID, externalID, gatewayID, gatewayURL,
		amount, domain.PaymentStatus(status), paidAt, createdAt, updatedAt), nil
}
