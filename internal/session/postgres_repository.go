package session

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

// Create inserts a new session record.
func (r *PostgresRepository) Create(ctx context.Context, s *Session) error {
	if s.ID == "" {
		s.ID = ids.New(ids.Session)
	}

	query := `
		INSERT INTO sessions (id, user_id, active_organization_id, session_type, auth_method, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.pool.QueryRow(ctx, query,
		s.ID, s.UserID, s.ActiveOrganizationID, s.Type, s.AuthMethod, s.ExpiresAt,
	).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}

	return nil
}

// GetByID retrieves an unexpired session. Expired rows are invisible here and
// removed later by the persistence layer's expiry sweep.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Session, error) {
	query := `
		SELECT id, user_id, active_organization_id, session_type, auth_method, expires_at, created_at
		FROM sessions
		WHERE id = $1 AND expires_at > NOW()`

	var s Session
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.UserID, &s.ActiveOrganizationID, &s.Type, &s.AuthMethod,
		&s.ExpiresAt, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("querying session: %w", err)
	}

	return &s, nil
}

// Delete removes a session row.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM sessions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}
