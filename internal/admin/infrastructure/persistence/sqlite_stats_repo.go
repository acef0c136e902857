package persistence

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	sharedPersistence "github.com/fakturly/fakturly/internal/shared/infrastructure/persistence"
)

// SQLiteStatsRepository answers the platform-wide admin queries that
// cut across aggregates: total invoice volume and settled revenue.
type SQLiteStatsRepository struct {
	dbConn *sql.DB
}

// NewSQLiteStatsRepository creates a new SQLiteStatsRepository.
func NewSQLiteStatsRepository(dbConn *sql.DB) *SQLiteStatsRepository {
	return &SQLiteStatsRepository{dbConn: dbConn}
}

type sqliteExecutor interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SQLiteStatsRepository) executor(ctx context.Context) sqliteExecutor {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return r.dbConn
}

// CountInvoices returns the number of invoices across all users.
func (r *SQLiteStatsRepository) CountInvoices(ctx context.Context) (int, error) {
	var count int
	err := r.executor(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&count)
	return count, err
}

// TotalSettledAmount sums every payment that reached a paid state.
// Amounts are stored as decimal strings, so the sum runs over a CAST.
func (r *SQLiteStatsRepository) TotalSettledAmount(ctx context.Context) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(CAST(amount AS REAL)), 0)
		FROM payments
		WHERE status IN ('PAID', 'SETTLED')
	`
	var total float64
	if err := r.executor(ctx).QueryRowContext(ctx, query).Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(total), nil
}
