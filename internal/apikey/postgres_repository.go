package apikey

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

const keyColumns = `id, organization_id, name, description, fingerprint,
	secret_hash, preview, is_active, expires_at, last_used_at, created_at`

// Create inserts a new API key record.
func (r *PostgresRepository) Create(ctx context.Context, k *Key) error {
	if k.ID == "" {
		k.ID = ids.New(ids.APIKey)
	}

	query := `
		INSERT INTO api_keys (id, organization_id, name, description, fingerprint,
		                      secret_hash, preview, is_active, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	err := r.pool.QueryRow(ctx, query,
		k.ID, k.OrganizationID, k.Name, k.Description, k.Fingerprint,
		k.SecretHash, k.Preview, k.IsActive, k.ExpiresAt,
	).Scan(&k.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting api key: %w", err)
	}

	return nil
}

// GetByID retrieves a single API key by its ID.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Key, error) {
	return r.getBy(ctx, "id", id)
}

// GetByFingerprint retrieves a single API key by its SHA-256 fingerprint.
func (r *PostgresRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*Key, error) {
	return r.getBy(ctx, "fingerprint", fingerprint)
}

func (r *PostgresRepository) getBy(ctx context.Context, column, value string) (*Key, error) {
	query := fmt.Sprintf("SELECT %s FROM api_keys WHERE %s = $1", keyColumns, column)

	var k Key
	err := r.pool.QueryRow(ctx, query, value).Scan(
		&k.ID, &k.OrganizationID, &k.Name, &k.Description, &k.Fingerprint,
		&k.SecretHash, &k.Preview, &k.IsActive, &k.ExpiresAt, &k.LastUsedAt, &k.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("querying api key: %w", err)
	}

	return &k, nil
}

// ListByOrg retrieves all keys for an organization, newest first.
func (r *PostgresRepository) ListByOrg(ctx context.Context, orgID string) ([]Key, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM api_keys
		WHERE organization_id = $1
		ORDER BY created_at DESC`, keyColumns)

	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}
	defer rows.Close()

	keys := []Key{}
	for rows.Next() {
		var k Key
		err := rows.Scan(
			&k.ID, &k.OrganizationID, &k.Name, &k.Description, &k.Fingerprint,
			&k.SecretHash, &k.Preview, &k.IsActive, &k.ExpiresAt, &k.LastUsedAt, &k.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning api key row: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating api key rows: %w", err)
	}

	return keys, nil
}

// CountActive returns the number of active keys an organization holds.
func (r *PostgresRepository) CountActive(ctx context.Context, orgID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM api_keys WHERE organization_id = $1 AND is_active",
		orgID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting active api keys: %w", err)
	}
	return count, nil
}

// SetActive toggles the soft-revoke flag on a key.
func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.pool.Exec(ctx,
		"UPDATE api_keys SET is_active = $2 WHERE id = $1", id, active)
	if err != nil {
		return fmt.Errorf("toggling api key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrKeyNotFound
	}
	return nil
}

// Delete hard-deletes a key row.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM api_keys WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting api key: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrKeyNotFound
	}
	return nil
}

// TouchLastUsed bumps last_used_at. Best effort; callers ignore failures.
func (r *PostgresRepository) TouchLastUsed(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE api_keys SET last_used_at = NOW() WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("touching api key: %w", err)
	}
	return nil
}
