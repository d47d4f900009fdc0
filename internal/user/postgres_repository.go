package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/echofeed/echofeed/internal/ids"
)

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// Create inserts a new user record.
func (r *PostgresRepository) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New(ids.User)
	}

	query := `
		INSERT INTO users (id, email, name, image)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query, u.ID, u.Email, u.Name, u.Image).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

// GetByID retrieves a single user by its ID.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.getBy(ctx, "id", id)
}

// GetByEmail retrieves a single user by email.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *PostgresRepository) getBy(ctx context.Context, column, value string) (*User, error) {
	query := fmt.Sprintf(`
		SELECT id, email, name, image, created_at, updated_at
		FROM users
		WHERE %s = $1`, column)

	var u User
	err := r.pool.QueryRow(ctx, query, value).Scan(
		&u.ID, &u.Email, &u.Name, &u.Image, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}

	return &u, nil
}

// UpdateProfile refreshes the mutable profile fields.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id, name string, image *string) error {
	query := `
		UPDATE users
		SET name = $2, image = COALESCE($3, image), updated_at = NOW()
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, name, image)
	if err != nil {
		return fmt.Errorf("updating user profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// UpsertLink inserts or re-points an identified-user link. The unique
// constraint on (organization_id, external_id) turns concurrent first
// sign-ins for the same pair into a conflict-update rather than a duplicate.
func (r *PostgresRepository) UpsertLink(ctx context.Context, l *Link) error {
	if l.ID == "" {
		l.ID = ids.New(ids.Link)
	}

	query := `
		INSERT INTO identified_user_links (id, organization_id, external_id, user_id, last_seen_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (organization_id, external_id)
		DO UPDATE SET user_id = EXCLUDED.user_id, last_seen_at = NOW()
		RETURNING id, last_seen_at, created_at`

	err := r.pool.QueryRow(ctx, query, l.ID, l.OrganizationID, l.ExternalID, l.UserID).
		Scan(&l.ID, &l.LastSeenAt, &l.CreatedAt)
	if err != nil {
		return fmt.Errorf("upserting identified user link: %w", err)
	}

	return nil
}

// GetLink retrieves the link for an (organization, external ID) pair.
func (r *PostgresRepository) GetLink(ctx context.Context, orgID, externalID string) (*Link, error) {
	query := `
		SELECT id, organization_id, external_id, user_id, last_seen_at, created_at
		FROM identified_user_links
		WHERE organization_id = $1 AND external_id = $2`

	var l Link
	err := r.pool.QueryRow(ctx, query, orgID, externalID).Scan(
		&l.ID, &l.OrganizationID, &l.ExternalID, &l.UserID, &l.LastSeenAt, &l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("querying identified user link: %w", err)
	}

	return &l, nil
}
