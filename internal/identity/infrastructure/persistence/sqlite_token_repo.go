package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fakturly/fakturly/internal/identity/domain"
	sharedPersistence "github.com/fakturly/fakturly/internal/shared/infrastructure/persistence"
)

// SQLiteTokenRepository handles persistence for bearer tokens using SQLite.
type SQLiteTokenRepository struct {
	dbConn *sql.DB
}

// NewSQLiteTokenRepository creates a new SQLiteTokenRepository.
func NewSQLiteTokenRepository(dbConn *sql.DB) *SQLiteTokenRepository {
	return &SQLiteTokenRepository{dbConn: dbConn}
}

func (r *SQLiteTokenRepository) executor(ctx context.Context) sqliteExecutor {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return r.dbConn
}

// Save stores a token.
func (r *SQLiteTokenRepository) Save(ctx context.Context, token *domain.Token) error {
	query := `
		INSERT INTO user_tokens (id, user_id, token, kind, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.executor(ctx).ExecContext(ctx, query,
		token.ID.String(),
		token.UserID.String(),
		token.Value,
		string(token.Kind),
		formatNullableTime(token.ExpiresAt),
		token.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// FindByValue retrieves a token by its opaque value.
func (r *SQLiteTokenRepository) FindByValue(ctx context.Context, value string) (*domain.Token, error) {
	query := `
		SELECT id, user_id, token, kind, expires_at, created_at
		FROM user_tokens
		WHERE token = ?
	`
	var (
		idStr, userIDStr, kind string
		tokenValue             string
		expiresAt              sql.NullString
		createdAtStr           string
	)
	err := r.executor(ctx).QueryRowContext(ctx, query, value).
		Scan(&idStr, &userIDStr, &tokenValue, &kind, &expiresAt, &createdAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTokenNotFound
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
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return nil, err
	}

	return &domain.Token{
		ID:        id,
		UserID:    userID,
		Value:     tokenValue,
		Kind:      domain.TokenKind(kind),
		ExpiresAt: parseNullableTime(expiresAt),
		CreatedAt: createdAt,
	}, nil
}

// Delete removes a token by its value.
func (r *SQLiteTokenRepository) Delete(ctx context.Context, value string) error {
	_, err := r.executor(ctx).ExecContext(ctx, `DELETE FROM user_tokens WHERE token = ?`, value)
	return err
}

// DeleteByUserAndKind removes all of a user's tokens of one kind.
func (r *SQLiteTokenRepository) DeleteByUserAndKind(ctx context.Context, userID uuid.UUID, kind domain.TokenKind) error {
	_, err := r.executor(ctx).ExecContext(ctx,
		`DELETE FROM user_tokens WHERE user_id = ? AND kind = ?`, userID.String(), string(kind))
	return err
}

// DeleteExpired removes tokens past their expiry.
func (r *SQLiteTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.executor(ctx).ExecContext(ctx,
		`DELETE FROM user_tokens WHERE expires_at IS NOT NULL AND expires_at < ?`,
		now.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
