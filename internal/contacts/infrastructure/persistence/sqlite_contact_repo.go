package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fakturly/fakturly/internal/contacts/domain"
	sharedPersistence "github.com/fakturly/fakturly/internal/shared/infrastructure/persistence"
)

// SQLiteContactRepository handles persistence for contacts using SQLite.
type SQLiteContactRepository struct {
	dbConn *sql.DB
}

// NewSQLiteContactRepository creates a new SQLiteContactRepository.
func NewSQLiteContactRepository(dbConn *sql.DB) *SQLiteContactRepository {
	return &SQLiteContactRepository{dbConn: dbConn}
}

type sqliteExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SQLiteContactRepository) executor(ctx context.Context) sqliteExecutor {
	if info, ok := sharedPersistence.SQLiteTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return r.dbConn
}

// Save persists a contact, inserting or updating by ID.
func (r *SQLiteContactRepository) Save(ctx context.Context, contact *domain.Contact) error {
	query := `
		INSERT INTO contacts (id, user_id, kind, name, email, phone, address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			phone = excluded.phone,
			address = excluded.address,
			updated_at = excluded.updated_at
	`
	_, err := r.executor(ctx).ExecContext(ctx, query,
		contact.ID().String(),
		contact.UserID().String(),
		string(contact.Kind()),
		contact.Name(),
		contact.Email(),
		contact.Phone(),
		contact.Address(),
		contact.CreatedAt().UTC().Format(time.RFC3339Nano),
		contact.UpdatedAt().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// FindByID retrieves a contact by its ID.
func (r *SQLiteContactRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Contact, error) {
	query := `
		SELECT id, user_id, kind, name, email, phone, address, created_at, updated_at
		FROM contacts
		WHERE id = ?
	`
	return scanSQLiteContact(r.executor(ctx).QueryRowContext(ctx, query, id.String()))
}

// FindByUserAndKind returns one address book, newest first.
func (r *SQLiteContactRepository) FindByUserAndKind(ctx context.Context, userID uuid.UUID, kind domain.Kind) ([]*domain.Contact, error) {
	query := `
		SELECT id, user_id, kind, name, email, phone, address, created_at, updated_at
		FROM contacts
		WHERE user_id = ? AND kind = ?
		ORDER BY created_at DESC
	`
	rows, err := r.executor(ctx).QueryContext(ctx, query, userID.String(), string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []*domain.Contact
	for rows.Next() {
		contact, err := scanSQLiteContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}
	return contacts, rows.Err()
}

// CountByUserAndKind counts one address book, for quota checks.
func (r *SQLiteContactRepository) CountByUserAndKind(ctx context.Context, userID uuid.UUID, kind domain.Kind) (int, error) {
	var count int
	err := r.executor(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contacts WHERE user_id = ? AND kind = ?`,
		userID.String(), string(kind)).Scan(&count)
	return count, err
}

// Delete removes a contact.
func (r *SQLiteContactRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.executor(ctx).ExecContext(ctx, `DELETE FROM contacts WHERE id = ?`, id.String())
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteContact(row rowScanner) (*domain.Contact, error) {
	var (
		idStr, userIDStr           string
		kind, name                 string
		email, phone, addr         string
		createdAtStr, updatedAtStr string
	)
	err := row.Scan(&idStr, &userIDStr, &kind, &name, &email, &phone, &addr, &createdAtStr, &updatedAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrContactNotFound
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
	updatedAt, err := time.Parse(time.RFC3339Nano, updatedAtStr)
	if err != nil {
		return nil, err
	}

	return domain.RehydrateContact(id, userID, domain.Kind(kind), name, email, phone, addr, createdAt, updatedAt), nil
}
