package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"

	"github.com/fakturly/fakturly/internal/identity/domain"
	sharedPersistence "github.com/fakturly/fakturly/internal/shared/infrastructure/persistence"
)

// PostgresSettingsRepository handles persistence for user settings using
// PostgreSQL. The header title history is stored as a text array.
type PostgresSettingsRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSettingsRepository creates a new PostgresSettingsRepository.
func NewPostgresSettingsRepository(pool *pgxpool.Pool) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{pool: pool}
}

// Save persists settings, inserting or updating by user.
func (r *PostgresSettingsRepository) Save(ctx context.Context, settings *domain.Settings) error {
	query := `
		INSERT INTO user_settings (
			id, user_id, invoice_header_title, previous_header_titles,
			logo_url, business_address, business_phone, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			invoice_header_title = EXCLUDED.invoice_header_title,
			previous_header_titles = EXCLUDED.previous_header_titles,
			logo_url = EXCLUDED.logo_url,
			business_address = EXCLUDED.business_address,
			business_phone = EXCLUDED.business_phone,
			updated_at = EXCLUDED.updated_at
	`
	_, err := sharedPersistence.Executor(ctx, r.pool).Exec(ctx, query,
		settings.ID(),
		settings.UserID(),
		settings.InvoiceHeaderTitle(),
		pq.Array(settings.PreviousHeaderTitles()),
		settings.LogoURL(),
		settings.BusinessAddress(),
		settings.BusinessPhone(),
		settings.CreatedAt(),
		settings.UpdatedAt(),
	)
	return err
}

// FindByUserID retrieves a user's settings.
func (r *PostgresSettingsRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Settings, error) {
	query := `
		SELECT id, user_id, invoice_header_title, previous_header_titles,
		       logo_url, business_address, business_phone, created_at, updated_at
		FROM user_settings
		WHERE user_id = $1
	`
	var (
		id, uid              uuid.UUID
		headerTitle          string
		previousTitles       []string
		logoURL              string
		address, phone       string
		createdAt, updatedAt time.Time
	)
	err := sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, query, userID).Scan(
		&id, &uid, &headerTitle, pq.Array(&previousTitles),
		&logoURL, &address, &phone, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	return domain.RehydrateSettings(id, uid, headerTitle, previousTitles,
		logoURL, address, phone, createdAt, updatedAt), nil
}
