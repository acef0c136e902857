package persistence

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	sharedPersistence "github.com/fakturly/fakturly/internal/shared/infrastructure/persistence"
)

// PostgresStatsRepository answers the platform-wide admin queries that
// cut across aggregates: total invoice volume and settled revenue.
type PostgresStatsRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresStatsRepository creates a new PostgresStatsRepository.
func NewPostgresStatsRepository(pool *pgxpool.Pool) *PostgresStatsRepository {
	return &PostgresStatsRepository{pool: pool}
}

// CountInvoices returns the number of invoices across all users.
func (r *PostgresStatsRepository) CountInvoices(ctx context.Context) (int, error) {
	exec := sharedPersistence.Executor(ctx, r.pool)
	var count int
	err := exec.QueryRow(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&count)
	return count, err
}

// TotalSettledAmount sums every payment that reached a paid state.
func (r *PostgresStatsRepository) TotalSettledAmount(ctx context.Context) (decimal.Decimal, error) {
	exec := sharedPersistence.Executor(ctx, r.pool)
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM payments
		WHERE status IN ('PAID', 'SETTLED')
	`
	var total decimal.Decimal
	err := exec.QueryRow(ctx, query).Scan(&total)
	return total, err
}
