package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fakturly/fakturly/internal/contacts/domain"
	sharedPersistence "github.com/fakturly/fakturly/internal/shared/infrastructure/persistence"
)

// PostgresContactRepository handles persistence for contacts using PostgreSQL.
type PostgresContactRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresContactRepository creates a new PostgresContactRepository.
func NewPostgresContactRepository(pool *pgxpool.Pool) *PostgresContactRepository {
	return &PostgresContactRepository{pool: pool}
}

// Save persists a contact, inserting or updating by ID.
func (r *PostgresContactRepository) Save(ctx context.Context, contact *domain.Contact) error {
	query := `
		INSERT INTO contacts (id, user_id, kind, name, email, phone, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			address = EXCLUDED.address,
			updated_at = EXCLUDED.updated_at
	`
	_, err := sharedPersistence.Executor(ctx, r.pool).Exec(ctx, query,
		contact.ID(),
		contact.UserID(),
		string(contact.Kind()),
		contact.Name(),
		contact.Email(),
		contact.Phone(),
		contact.Address(),
		contact.CreatedAt(),
		contact.UpdatedAt(),
	)
	return err
}

// FindByID retrieves a contact by its ID.
func (r *PostgresContactRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Contact, error) {
	query := `
		SELECT id, user_id, kind, name, email, phone, address, created_at, updated_at
		FROM contacts
		WHERE id = $1
	`
	return scanPostgresContact(sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx, query, id))
}

// FindByUserAndKind returns one address book, newest first.
func (r *PostgresContactRepository) FindByUserAndKind(ctx context.Context, userID uuid.UUID, kind domain.Kind) ([]*domain.Contact, error) {
	query := `
		SELECT id, user_id, kind, name, email, phone, address, created_at, updated_at
		FROM contacts
		WHERE user_id = $1 AND kind = $2
		ORDER BY created_at DESC
	`
	rows, err := sharedPersistence.Executor(ctx, r.pool).Query(ctx, query, userID, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []*domain.Contact
	for rows.Next() {
		contact, err := scanPostgresContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, contact)
	}
	return contacts, rows.Err()
}

// CountByUserAndKind counts one address book, for quota checks.
func (r *PostgresContactRepository) CountByUserAndKind(ctx context.Context, userID uuid.UUID, kind domain.Kind) (int, error) {
	var count int
	err := sharedPersistence.Executor(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM contacts WHERE user_id = $1 AND kind = $2`,
		userID, string(kind)).Scan(&count)
	return count, err
}

// Delete removes a contact.
func (r *PostgresContactRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := sharedPersistence.Executor(ctx, r.pool).
		Exec(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	return err
}

func scanPostgresContact(row pgx.Row) (*domain.Contact, error) {
	var (
		id, userID           uuid.UUID
		kind, name           string
		email, phone, addr   string
		createdAt, updatedAt time.Time
	)
	err := row.Scan(&id, &userID, &kind, &name, &email, &phone, &addr, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrContactNotFound
		}
		return nil, err
	}
	return domain.RehydrateContact(id, userID, domain.Kind(kind), name, email, phone, addr, createdAt, updatedAt), nil
}
