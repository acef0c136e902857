package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fakturly/fakturly/internal/identity/domain"
	sharedPersistence "github.com/fakturly/fakturly/internal/shared/infrastructure/persistence"
)

// SQLiteSettingsRepository handles persistence for user settings using
// SQLite. The header title history is stored as a JSON array.
type SQLiteSettingsRepository struct {
	dbConn *sql.DB
}

// NewSQLiteSettingsRepository creates a new SQLiteSettingsRepository.
func NewSQLiteSettingsRepository(dbConn *sql.DB) *SQLiteSettingsRepository {
	return &SQLiteSettingsRepository{dbConn: dbConn}
}

func (r *SQLiteSettingsRepository) executor(ctx context.Context) sqliteExecutor {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return r.dbConn
}

// Save persists settings, inserting or updating by user.
func (r *SQLiteSettingsRepository) Save(ctx context.Context, settings *domain.Settings) error {
	history, err := json.Marshal(settings.PreviousHeaderTitles())
	if err != nil {
		return err
	}

	query := `
		INSERT INTO user_settings (
			id, user_id, invoice_header_title, previous_header_titles,
			logo_url, business_address, business_phone, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			invoice_header_title = excluded.invoice_header_title,
			previous_header_titles = excluded.previous_header_titles,
			logo_url = excluded.logo_url,
			business_address = excluded.business_address,
			business_phone = excluded.business_phone,
			updated_at = excluded.updated_at
	`
	_, err = r.executor(ctx).ExecContext(ctx, query,
		settings.ID().String(),
		settings.UserID().String(),
		settings.InvoiceHeaderTitle(),
		string(history),
		settings.LogoURL(),
		settings.BusinessAddress(),
		settings.BusinessPhone(),
		settings.CreatedAt().UTC().Format(time.RFC3339Nano),
		settings.UpdatedAt().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// FindByUserID retrieves a user's settings.
func (r *SQLiteSettingsRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.Settings, error) {
	query := `
		SELECT id, user_id, invoice_header_title, previous_header_titles,
		       logo_url, business_address, business_phone, created_at, updated_at
		FROM user_settings
		WHERE user_id = ?
	`
	var (
		idStr, uidStr              string
		headerTitle, historyJSON   string
		logoURL, address, phone    string
		createdAtStr, updatedAtStr string
	)
	err := r.executor(ctx).QueryRowContext(ctx, query, userID.String()).Scan(
		&idStr, &uidStr, &headerTitle, &historyJSON,
		&logoURL, &address, &phone, &createdAtStr, &updatedAtStr,
	)
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
	uid, err := uuid.Parse(uidStr)
	if err != nil {
		return nil, err
	}
	var previousTitles []string
	if historyJSON != "" {
		if err := json.Unmarshal([]byte(historyJSON), &previousTitles); err != nil {
			return nil, err
		}
	}
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		return nil, err
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, updatedAtStr)
	if err != nil {
		return nil, err
	}

	return domain.RehydrateSettings(id, uid, headerTitle, previousTitles,
		logoURL, address, phone, createdAt, updatedAt), nil
}
