package org

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

// Create inserts a new organization record.
func (r *PostgresRepository) Create(ctx context.Context, o *Organization) error {
	if o.ID == "" {
		o.ID = ids.New(ids.Organization)
	}

	query := `
		INSERT INTO organizations (id, slug, name, secret_key_enc, block_admin_accounts)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.pool.QueryRow(ctx, query,
		o.ID,
		o.Slug,
		o.Name,
		o.SecretKeyEnc,
		o.BlockAdminAccounts,
	).Scan(&o.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting organization: %w", err)
	}

	return nil
}

// GetBySlug retrieves a single organization by its slug.
func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (*Organization, error) {
	return r.getBy(ctx, "slug", slug)
}

// GetByID retrieves a single organization by its ID.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Organization, error) {
	return r.getBy(ctx, "id", id)
}

func (r *PostgresRepository) getBy(ctx context.Context, column, value string) (*Organization, error) {
	query := fmt.Sprintf(`
		SELECT id, slug, name, secret_key_enc, block_admin_accounts, created_at
		FROM organizations
		WHERE %s = $1`, column)

	var o Organization
	err := r.pool.QueryRow(ctx, query, value).Scan(
		&o.ID, &o.Slug, &o.Name, &o.SecretKeyEnc,
		&o.BlockAdminAccounts, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrgNotFound
		}
		return nil, fmt.Errorf("querying organization: %w", err)
	}

	return &o, nil
}

// AddMember records a user as staff of the organization.
func (r *PostgresRepository) AddMember(ctx context.Context, m *Member) error {
	query := `
		INSERT INTO organization_members (organization_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	err := r.pool.QueryRow(ctx, query, m.OrganizationID, m.UserID, m.Role).Scan(&m.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting membership: %w", err)
	}
	return nil
}

// HasAnyMembership reports whether the user holds any organization membership.
func (r *PostgresRepository) HasAnyMembership(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM organization_members WHERE user_id = $1)",
		userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking memberships: %w", err)
	}
	return exists, nil
}

// IsMember reports whether the user belongs to the given organization.
func (r *PostgresRepository) IsMember(ctx context.Context, orgID, userID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM organization_members WHERE organization_id = $1 AND user_id = $2)",
		orgID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking membership: %w", err)
	}
	return exists, nil
}
