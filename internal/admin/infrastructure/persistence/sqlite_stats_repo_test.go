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

func seedInvoice(t *testing.T, dbConn *sql.DB, userID uuid.UUID, number string) {
	t.Helper()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := dbConn.Exec(`
		INSERT INTO invoices (id, user_id, number, issue_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), userID.String(), number, "2025-06-15", now, now)
	require.NoError(t, err)
}

func seedPayment(t *testing.T, dbConn *sql.DB, userID uuid.UUID, amount, status string) {
	t.Helper()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := dbConn.Exec(`
		INSERT INTO payments (id, user_id, external_id, amount, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), userID.String(), uuid.NewString(), amount, status, now, now)
	require.NoError(t, err)
}

func seedUser(t *testing.T, dbConn *sql.DB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := dbConn.Exec(`
		INSERT INTO users (id, email, name, password_hash, role, plan, created_at, updated_at)
		VALUES (?, ?, ?, ?, 'user', 'free', ?, ?)`,
		id.String(), id.String()+"@example.com", "Budi", "hash", now, now)
	require.NoError(t, err)
	return id
}

func TestCountInvoices(t *testing.T) {
	dbConn := setupDB(t)
	repo := NewSQLiteStatsRepository(dbConn)
	ctx := context.Background()

	count, err := repo.CountInvoices(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	userID := seedUser(t, dbConn)
	seedInvoice(t, dbConn, userID, "INV-20250615-0001")
	seedInvoice(t, dbConn, userID, "INV-20250615-0002")

	count, err = repo.CountInvoices(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestTotalSettledAmount(t *testing.T) {
	dbConn := setupDB(t)
	repo := NewSQLiteStatsRepository(dbConn)
	ctx := context.Background()

	total, err := repo.TotalSettledAmount(ctx)
	require.NoError(t, err)
	assert.True(t, total.IsZero())

	userID := seedUser(t, dbConn)
	seedPayment(t, dbConn, userID, "50000", "PAID")
	seedPayment(t, dbConn, userID, "50000", "SETTLED")
	seedPayment(t, dbConn, userID, "50000", "PENDING")
	seedPayment(t, dbConn, userID, "50000", "EXPIRED")

	total, err = repo.TotalSettledAmount(ctx)
	require.NoError(t, err)
	assert.Equal(t, "100000", total.String())
}
