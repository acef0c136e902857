package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	billingDomain "github.com/fakturly/fakturly/internal/billing/domain"
	"github.com/fakturly/fakturly/internal/identity/domain"
	sharedPersistence "github.com/fakturly/fakturly/internal/shared/infrastructure/persistence"
)

// SQLiteUserRepository handles persistence for users using SQLite.
type SQLiteUserRepository struct {
	dbConn *sql.DB
}

// NewSQLiteUserRepository creates a new SQLiteUserRepository.
func NewSQLiteUserRepository(dbConn *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{dbConn: dbConn}
}

type sqliteExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SQLiteUserRepository) executor(ctx context.Context) sqliteExecutor {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return r.dbConn
}

// Save persists a user, inserting or updating by ID.
func (r *SQLiteUserRepository) Save(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (
			id, email, name, password_hash, role, plan,
			subscription_expires_at, email_verified_at, oauth_provider,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			password_hash = excluded.password_hash,
			role = excluded.role,
			plan = excluded.plan,
			subscription_expires_at = excluded.subscription_expires_at,
			email_verified_at = excluded.email_verified_at,
			oauth_provider = excluded.oauth_provider,
			updated_at = excluded.updated_at
	`

	_, err := r.executor(ctx).ExecContext(ctx, query,
		user.ID().String(),
		user.Email().String(),
		user.Name().String(),
		user.PasswordHash(),
		string(user.Role()),
		string(user.Plan()),
		formatNullableTime(user.SubscriptionExpiresAt()),
		formatNullableTime(user.EmailVerifiedAt()),
		nullableString(user.OAuthProvider()),
		user.CreatedAt().UTC().Format(time.RFC3339Nano),
		user.UpdatedAt().UTC().Format(time.RFC3339Nano),
	)
	if err != nil && strings.Contains(err.Error(), "users.email") {
		return domain.ErrEmailTaken
	}
	return err
}

const sqliteUserColumns = `id, email, name, password_hash, role, plan,
	subscription_expires_at, email_verified_at, oauth_provider, created_at, updated_at`

// FindByID retrieves a user by their ID.
func (r *SQLiteUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = ?`, sqliteUserColumns)
	return scanSQLiteUser(r.executor(ctx).QueryRowContext(ctx, query, id.String()))
}

// FindByEmail retrieves a user by their email address.
func (r *SQLiteUserRepository) FindByEmail(ctx context.Context, email domain.Email) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = ?`, sqliteUserColumns)
	return scanSQLiteUser(r.executor(ctx).QueryRowContext(ctx, query, email.String()))
}

// Search returns a page of users matching the filter plus the total count.
func (r *SQLiteUserRepository) Search(ctx context.Context, filter domain.UserSearchFilter) ([]*domain.User, int, error) {
	where := `WHERE (? = '' OR email LIKE '%' || ? || '%' OR name LIKE '%' || ? || '%')
		AND (? = '' OR plan = ?)`
	args := []any{filter.Query, filter.Query, filter.Query, filter.Plan, filter.Plan}

	exec := r.executor(ctx)

	var total int
	if err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM users `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM users %s ORDER BY created_at DESC LIMIT ? OFFSET ?`, sqliteUserColumns, where)
	rows, err := exec.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanSQLiteUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	return users, total, rows.Err()
}

// CountAll returns the total number of accounts.
func (r *SQLiteUserRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.executor(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// CountByPlan returns the number of accounts on the given plan.
func (r *SQLiteUserRepository) CountByPlan(ctx context.Context, plan string) (int, error) {
	var count int
	err := r.executor(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE plan = ?`, plan).Scan(&count)
	return count, err
}

// CountActiveSince returns accounts updated since the given time.
func (r *SQLiteUserRepository) CountActiveSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.executor(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE updated_at >= ?`,
		since.UTC().Format(time.RFC3339Nano)).Scan(&count)
	return count, err
}

func scanSQLiteUser(row rowScanner) (*domain.User, error) {
	var (
		idStr, emailStr, nameStr   string
		passwordHash, role, plan   string
		expiresAt, verifiedAt      sql.NullString
		oauthProvider              sql.NullString
		createdAtStr, updatedAtStr string
	)

	err := row.Scan(&idStr, &emailStr, &nameStr, &passwordHash, &role, &plan,
		&expiresAt, &verifiedAt, &oauthProvider, &createdAtStr, &updatedAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	email, err := domain.NewEmail(emailStr)
	if err != nil {
		return nil, err
	}
	name, err := domain.NewName(nameStr)
	if err != nil {
		return nil, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return nil, err
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, updatedAtStr)
	if err != nil {
		return nil, err
	}

	return domain.RehydrateUser(
		id, email, name, passwordHash,
		domain.Role(role), billingDomain.ParsePlan(plan),
		parseNullableTime(expiresAt), parseNullableTime(verifiedAt),
		oauthProvider.String,
		createdAt, updatedAt,
	), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
