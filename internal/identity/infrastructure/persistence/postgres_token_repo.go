package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fakturly/fakturly/internal/identity/domain"
	sharedPersistence "github.com/fakturly/fakturly/internal/shared/infrastructure/persistence"
)

// PostgresTokenRepository handles persistence for bearer tokens using PostgreSQL.
type PostgresTokenRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTokenRepository creates a new PostgresTokenRepository.
func NewPostgresTokenRepository(pool *pgxpool.Pool) *PostgresTokenRepository {
	return &PostgresTokenRepository{pool: pool}
}

// Save stores a token.
func (r *PostgresTokenRepository) Save(ctx context.Context, token *domain.Token) error {
	query := `
		INSERT INTO user_tokens (id, user_id, token, kind, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := sharedPersistence.Executor(ctx, r.pool).Exec(ctx, query,
		token.ID, token.UserID, token.Value, string(token.Kind), token.ExpiresAt, token.CreatedAt)
	return err
}

// FindByValue retrieves a token by its opaque value.
func (r *PostgresTokenRepository) FindByValue(ctx context.Context, value string) (*domain.Token, error) {
	query := `
		SELECT id, user_id, token, kind, expires_at, created_at
		FROM user_tokens
		WHERE token = $1
	`
	var (
		token     domain.Token
		kind      string
		expiresAt *time.Time
	)
	err := sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, query, value).
		Scan(&token.ID, &token.UserID, &token.Value, &kind, &expiresAt, &token.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, err
	}
	token.Kind = domain.TokenKind(kind)
	token.ExpiresAt = expiresAt
	return &token, nil
}

// Delete removes a token by its value.
func (r *PostgresTokenRepository) Delete(ctx context.Context, value string) error {
	_, err := sharedPersistence.Executor(ctx, r.pool).
		Exec(ctx, `DELETE FROM user_tokens WHERE token = $1`, value)
	return err
}

// DeleteByUserAndKind removes all of a user's tokens of one kind.
func (r *PostgresTokenRepository) DeleteByUserAndKind(ctx context.Context, userID uuid.UUID, kind domain.TokenKind) error {
	_, err := sharedPersistence.Executor(ctx, r.pool).
		Exec(ctx, `DELETE FROM user_tokens WHERE user_id = $1 AND kind = $2`, userID, string(kind))
	return err
}

// DeleteExpired removes tokens past their expiry.
func (r *PostgresTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := sharedPersistence.Executor(ctx, r.pool).
		Exec(ctx, `DELETE FROM user_tokens WHERE expires_at IS NOT NULL AND expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
