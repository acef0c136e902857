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

	billingDomain "github.com/fakturly/fakturly/internal/billing/domain"
	"github.com/fakturly/fakturly/internal/identity/domain"
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

func newTestUser(t *testing.T, emailStr string) *domain.User {
	t.Helper()
	email, err := domain.NewEmail(emailStr)
	require.NoError(t, err)
	name, err := domain.NewName("Test User")
	require.NoError(t, err)
	user := domain.NewUser(email, name, "bcrypt-hash")
	user.ClearDomainEvents()
	return user
}

func TestSQLiteUserRepository_SaveAndFind(t *testing.T) {
	dbConn := setupDB(t)
	repo := NewSQLiteUserRepository(dbConn)
	ctx := context.Background()

	user := newTestUser(t, "budi@example.com")
	require.NoError(t, repo.Save(ctx, user))

	found, err := repo.FindByID(ctx, user.ID())
	require.NoError(t, err)
	assert.Equal(t, user.ID(), found.ID())
	assert.Equal(t, "budi@example.com", found.Email().String())
	assert.Equal(t, billingDomain.PlanFree, found.Plan())
	assert.Nil(t, found.SubscriptionExpiresAt())
	assert.False(t, found.IsVerified())

	email, _ := domain.NewEmail("budi@example.com")
	byEmail, err := repo.FindByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, user.ID(), byEmail.ID())
}

func TestSQLiteUserRepository_NotFound(t *testing.T) {
	repo := NewSQLiteUserRepository(setupDB(t))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestSQLiteUserRepository_UpdateRoundTripsSubscription(t *testing.T) {
	dbConn := setupDB(t)
	repo := NewSQLiteUserRepository(dbConn)
	ctx := context.Background()

	user := newTestUser(t, "budi@example.com")
	require.NoError(t, repo.Save(ctx, user))

	expiresAt := time.Now().Add(30 * 24 * time.Hour).UTC().Truncate(time.Second)
	user.Upgrade(expiresAt)
	user.VerifyEmail(time.Now())
	user.ClearDomainEvents()
	require.NoError(t, repo.Save(ctx, user))

	found, err := repo.FindByID(ctx, user.ID())
	require.NoError(t, err)
	assert.Equal(t, billingDomain.PlanPremium, found.Plan())
	require.NotNil(t, found.SubscriptionExpiresAt())
	assert.True(t, found.SubscriptionExpiresAt().Equal(expiresAt))
	assert.True(t, found.IsVerified())
}

func TestSQLiteUserRepository_DuplicateEmail(t *testing.T) {
	dbConn := setupDB(t)
	repo := NewSQLiteUserRepository(dbConn)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, newTestUser(t, "budi@example.com")))

	err := repo.Save(ctx, newTestUser(t, "budi@example.com"))
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestSQLiteUserRepository_SearchAndCounts(t *testing.T) {
	dbConn := setupDB(t)
	repo := NewSQLiteUserRepository(dbConn)
	ctx := context.Background()

	premium := newTestUser(t, "premium@example.com")
	premium.Upgrade(time.Now().Add(24 * time.Hour))
	premium.ClearDomainEvents()
	require.NoError(t, repo.Save(ctx, premium))
	require.NoError(t, repo.Save(ctx, newTestUser(t, "free-one@example.com")))
	require.NoError(t, repo.Save(ctx, newTestUser(t, "free-two@example.com")))

	total, err := repo.CountAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	premiumCount, err := repo.CountByPlan(ctx, "premium")
	require.NoError(t, err)
	assert.Equal(t, 1, premiumCount)

	active, err := repo.CountActiveSince(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, active)

	users, matched, err := repo.Search(ctx, domain.UserSearchFilter{Query: "free", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, matched)
	assert.Len(t, users, 2)

	users, matched, err = repo.Search(ctx, domain.UserSearchFilter{Plan: "premium", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, matched)
	require.Len(t, users, 1)
	assert.Equal(t, premium.ID(), users[0].ID())

	// Pagination.
	users, matched, err = repo.Search(ctx, domain.UserSearchFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, matched)
	assert.Len(t, users, 1)
}

func TestSQLiteTokenRepository(t *testing.T) {
	dbConn := setupDB(t)
	users := NewSQLiteUserRepository(dbConn)
	repo := NewSQLiteTokenRepository(dbConn)
	ctx := context.Background()

	user := newTestUser(t, "budi@example.com")
	require.NoError(t, users.Save(ctx, user))

	token, err := domain.NewToken(user.ID(), domain.TokenKindAPI, 30*24*time.Hour, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, token))

	found, err := repo.FindByValue(ctx, token.Value)
	require.NoError(t, err)
	assert.Equal(t, token.ID, found.ID)
	assert.Equal(t, user.ID(), found.UserID)
	assert.Equal(t, domain.TokenKindAPI, found.Kind)
	require.NotNil(t, found.ExpiresAt)

	require.NoError(t, repo.Delete(ctx, token.Value))
	_, err = repo.FindByValue(ctx, token.Value)
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
}

func TestSQLiteTokenRepository_DeleteByUserAndKind(t *testing.T) {
	dbConn := setupDB(t)
	users := NewSQLiteUserRepository(dbConn)
	repo := NewSQLiteTokenRepository(dbConn)
	ctx := context.Background()

	user := newTestUser(t, "budi@example.com")
	require.NoError(t, users.Save(ctx, user))

	api, err := domain.NewToken(user.ID(), domain.TokenKindAPI, time.Hour, time.Now())
	require.NoError(t, err)
	reset, err := domain.NewToken(user.ID(), domain.TokenKindReset, time.Hour, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, api))
	require.NoError(t, repo.Save(ctx, reset))

	require.NoError(t, repo.DeleteByUserAndKind(ctx, user.ID(), domain.TokenKindReset))

	_, err = repo.FindByValue(ctx, reset.Value)
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
	_, err = repo.FindByValue(ctx, api.Value)
	assert.NoError(t, err)
}

func TestSQLiteTokenRepository_DeleteExpired(t *testing.T) {
	dbConn := setupDB(t)
	users := NewSQLiteUserRepository(dbConn)
	repo := NewSQLiteTokenRepository(dbConn)
	ctx := context.Background()

	user := newTestUser(t, "budi@example.com")
	require.NoError(t, users.Save(ctx, user))

	expired, err := domain.NewToken(user.ID(), domain.TokenKindAPI, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	forever, err := domain.NewToken(user.ID(), domain.TokenKindAPI, 0, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, expired))
	require.NoError(t, repo.Save(ctx, forever))

	deleted, err := repo.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.FindByValue(ctx, forever.Value)
	assert.NoError(t, err)
}

func TestSQLiteSettingsRepository(t *testing.T) {
	dbConn := setupDB(t)
	users := NewSQLiteUserRepository(dbConn)
	repo := NewSQLiteSettingsRepository(dbConn)
	ctx := context.Background()

	user := newTestUser(t, "budi@example.com")
	require.NoError(t, users.Save(ctx, user))

	settings := domain.NewSettings(user.ID())
	settings.SetInvoiceHeaderTitle("FAKTUR")
	settings.SetInvoiceHeaderTitle("TAGIHAN")
	settings.UpdateBusinessInfo("https://cdn.fakturly.test/logo.png", "Jl. Sudirman No. 1", "+62 21 555 0100")
	require.NoError(t, repo.Save(ctx, settings))

	found, err := repo.FindByUserID(ctx, user.ID())
	require.NoError(t, err)
	assert.Equal(t, "TAGIHAN", found.InvoiceHeaderTitle())
	assert.Equal(t, []string{"FAKTUR"}, found.PreviousHeaderTitles())
	assert.Equal(t, "https://cdn.fakturly.test/logo.png", found.LogoURL())
	assert.Equal(t, "Jl. Sudirman No. 1", found.BusinessAddress())
	assert.Equal(t, "+62 21 555 0100", found.BusinessPhone())

	// Upsert by user keeps a single row.
	found.SetInvoiceHeaderTitle("INVOICE")
	require.NoError(t, repo.Save(ctx, found))

	again, err := repo.FindByUserID(ctx, user.ID())
	require.NoError(t, err)
	assert.Equal(t, "INVOICE", again.InvoiceHeaderTitle())
	assert.Equal(t, []string{"TAGIHAN", "FAKTUR"}, again.PreviousHeaderTitles())
}

func TestSQLiteSettingsRepository_NotFound(t *testing.T) {
	repo := NewSQLiteSettingsRepository(setupDB(t))

	_, err := repo.FindByUserID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
