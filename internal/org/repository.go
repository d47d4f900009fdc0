package org

import (
	"context"
	"errors"
)

// ErrOrgNotFound is returned when an organization record is not found.
var ErrOrgNotFound = errors.New("organization not found")

// Repository provides operations on the organizations and
// organization_members tables.
type Repository interface {
	Create(ctx context.Context, o *Organization) error
	GetBySlug(ctx context.Context, slug string) (*Organization, error)
	GetByID(ctx context.Context, id string) (*Organization, error)

	// AddMember records a user as staff of the organization.
	AddMember(ctx context.Context, m *Member) error
	// HasAnyMembership reports whether the user holds a membership in any
	// organization. Drives the admin-account block on the external paths.
	HasAnyMembership(ctx context.Context, userID string) (bool, error)
	// IsMember reports whether the user belongs to the given organization.
	IsMember(ctx context.Context, orgID, userID string) (bool, error)
}
