package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

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

// Upsert inserts or resets the (organization, provider) row to pending. The
// unique constraint makes concurrent initiations resolve via conflict-update
// rather than duplicate rows.
func (r *PostgresRepository) Upsert(ctx context.Context, c *Connection) error {
	if c.ID == "" {
		c.ID = ids.New(ids.Connection)
	}

	query := `
		INSERT INTO oauth_connections (
			id, organization_id, provider, status,
			device_auth_id, user_code, verification_uri, device_auth_expires_at, interval_seconds
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (organization_id, provider) DO UPDATE SET
			status = EXCLUDED.status,
			device_auth_id = EXCLUDED.device_auth_id,
			user_code = EXCLUDED.user_code,
			verification_uri = EXCLUDED.verification_uri,
			device_auth_expires_at = EXCLUDED.device_auth_expires_at,
			interval_seconds = EXCLUDED.interval_seconds,
			access_token_enc = NULL,
			refresh_token_enc = NULL,
			token_expires_at = NULL,
			account_id = NULL,
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		c.ID, c.OrganizationID, c.Provider, c.Status,
		c.DeviceAuthID, c.UserCode, c.VerificationURI, c.DeviceAuthExpiresAt, c.IntervalSeconds,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting oauth connection: %w", err)
	}

	return nil
}

// Get retrieves the connection for an (organization, provider) pair.
func (r *PostgresRepository) Get(ctx context.Context, orgID, provider string) (*Connection, error) {
	query := `
		SELECT id, organization_id, provider, status,
		       device_auth_id, user_code, verification_uri, device_auth_expires_at, interval_seconds,
		       access_token_enc, refresh_token_enc, token_expires_at, account_id,
		       created_at, updated_at
		FROM oauth_connections
		WHERE organization_id = $1 AND provider = $2`

	var c Connection
	err := r.pool.QueryRow(ctx, query, orgID, provider).Scan(
		&c.ID, &c.OrganizationID, &c.Provider, &c.Status,
		&c.DeviceAuthID, &c.UserCode, &c.VerificationURI, &c.DeviceAuthExpiresAt, &c.IntervalSeconds,
		&c.AccessTokenEnc, &c.RefreshTokenEnc, &c.TokenExpiresAt, &c.AccountID,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConnectionNotFound
		}
		return nil, fmt.Errorf("querying oauth connection: %w", err)
	}

	return &c, nil
}

// Activate stores the encrypted tokens and clears every pending-only field in
// one statement, so a concurrent reader sees either a full pending row or a
// full active one.
func (r *PostgresRepository) Activate(ctx context.Context, id, accessTokenEnc, refreshTokenEnc string, tokenExpiresAt *time.Time, accountID string) error {
	query := `
		UPDATE oauth_connections SET
			status = $2,
			access_token_enc = $3,
			refresh_token_enc = NULLIF($4, ''),
			token_expires_at = $5,
			account_id = NULLIF($6, ''),
			device_auth_id = NULL,
			user_code = NULL,
			verification_uri = NULL,
			device_auth_expires_at = NULL,
			interval_seconds = NULL,
			updated_at = NOW()
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, StatusActive, accessTokenEnc, refreshTokenEnc, tokenExpiresAt, accountID)
	if err != nil {
		return fmt.Errorf("activating oauth connection: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrConnectionNotFound
	}

	return nil
}

// Delete removes the connection row.
func (r *PostgresRepository) Delete(ctx context.Context, orgID, provider string) error {
	result, err := r.pool.Exec(ctx,
		"DELETE FROM oauth_connections WHERE organization_id = $1 AND provider = $2",
		orgID, provider)
	if err != nil {
		return fmt.Errorf("deleting oauth connection: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrConnectionNotFound
	}
	return nil
}
