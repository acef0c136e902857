package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	billingDomain "github.com/fakturly/fakturly/internal/billing/domain"
	"github.com/fakturly/fakturly/internal/identity/domain"
	sharedPersistence "github.com/fakturly/fakturly/internal/shared/infrastructure/persistence"
)

// PostgresUserRepository handles persistence for users using PostgreSQL.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository creates a new PostgresUserRepository.
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

const userColumns = `id, email, name, password_hash, role, plan,
	subscription_expires_at, email_verified_at, oauth_provider, created_at, updated_at`

// Save persists a user, inserting or updating by ID.
func (r *PostgresUserRepository) Save(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (
			id, email, name, password_hash, role, plan,
			subscription_expires_at, email_verified_at, oauth_provider,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			password_hash = EXCLUDED.password_hash,
			role = EXCLUDED.role,
			plan = EXCLUDED.plan,
			subscription_expires_at = EXCLUDED.subscription_expires_at,
			email_verified_at = EXCLUDED.email_verified_at,
			oauth_provider = EXCLUDED.oauth_provider,
			updated_at = EXCLUDED.updated_at
	`

	var oauthProvider *string
	if p := user.OAuthProvider(); p != "" {
		oauthProvider = &p
	}

	_, err := sharedPersistence.Executor(ctx, r.pool).Exec(ctx, query,
		user.ID(),
		user.Email().String(),
		user.Name().String(),
		user.PasswordHash(),
		string(user.Role()),
		string(user.Plan()),
		user.SubscriptionExpiresAt(),
		user.EmailVerifiedAt(),
		oauthProvider,
		user.CreatedAt(),
		user.UpdatedAt(),
	)
	if isUniqueViolation(err, "users_email_key") {
		return domain.ErrEmailTaken
	}
	return err
}

// FindByID retrieves a user by their ID.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	return r.scanUser(sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, query, id))
}

// FindByEmail retrieves a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email domain.Email) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)
	return r.scanUser(sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, query, email.String()))
}

// Search returns a page of users matching the filter plus the total count.
func (r *PostgresUserRepository) Search(ctx context.Context, filter domain.UserSearchFilter) ([]*domain.User, int, error) {
	where := `WHERE ($1 = '' OR email ILIKE '%' || $1 || '%' OR name ILIKE '%' || $1 || '%')
		AND ($2 = '' OR plan = $2)`

	exec := sharedPersistence.Executor(ctx, r.pool)

	var total int
	countQuery := `SELECT COUNT(*) FROM users ` + where
	if err := exec.QueryRow(ctx, countQuery, filter.Query, filter.Plan).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM users %s ORDER BY created_at DESC LIMIT $3 OFFSET $4`, userColumns, where)
	rows, err := exec.Query(ctx, query, filter.Query, filter.Plan, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	return users, total, rows.Err()
}

// CountAll returns the total number of accounts.
func (r *PostgresUserRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	err := sharedPersistence.Executor(ctx, r.pool).
		QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// CountByPlan returns the number of accounts on the given plan.
func (r *PostgresUserRepository) CountByPlan(ctx context.Context, plan string) (int, error) {
	var count int
	err := sharedPersistence.Executor(ctx, r.pool).
		QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE plan = $1`, plan).Scan(&count)
	return count, err
}

// CountActiveSince returns accounts updated since the given time.
func (r *PostgresUserRepository) CountActiveSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := sharedPersistence.Executor(ctx, r.pool).
		QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE updated_at >= $1`, since).Scan(&count)
	return count, err
}

func (r *PostgresUserRepository) scanUser(row pgx.Row) (*domain.User, error) {
	var (
		id                    uuid.UUID
		emailStr, nameStr     string
		passwordHash          string
		role, plan            string
		subscriptionExpiresAt *time.Time
		emailVerifiedAt       *time.Time
		oauthProvider         *string
		createdAt, updatedAt  time.Time
	)

	err := row.Scan(&id, &emailStr, &nameStr, &passwordHash, &role, &plan,
		&subscriptionExpiresAt, &emailVerifiedAt, &oauthProvider, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
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

	provider := ""
	if oauthProvider != nil {
		provider = *oauthProvider
	}

	return domain.RehydrateUser(
		id, email, name, passwordHash,
		domain.Role(role), billingDomain.ParsePlan(plan),
		subscriptionExpiresAt, emailVerifiedAt, provider,
		createdAt, updatedAt,
	), nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
	}
	return false
}
