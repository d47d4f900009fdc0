package user

import (
	"context"
	"errors"
)

// ErrUserNotFound is returned when a user record is not found.
var ErrUserNotFound = errors.New("user not found")

// ErrLinkNotFound is returned when an identified-user link is not found.
var ErrLinkNotFound = errors.New("identified user link not found")

// Repository provides operations on the users and identified_user_links
// tables.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// UpdateProfile idempotently refreshes the mutable profile fields.
	UpdateProfile(ctx context.Context, id, name string, image *string) error

	// UpsertLink inserts the (org, externalID) link or, on conflict,
	// re-points user_id and bumps last_seen_at. Handles email changes on the
	// host side without ever producing a second row for the same pair.
	UpsertLink(ctx context.Context, l *Link) error
	GetLink(ctx context.Context, orgID, externalID string) (*Link, error)
}
