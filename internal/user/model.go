package user

import "time"

// User represents a row in the users table. Users created through the
// external sign-in paths are passwordless; their identity is vouched for by
// the host application on every visit.
type User struct {
	ID        string
	Email     string
	Name      string
	Image     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Link represents a row in the identified_user_links table: the persistent
// mapping from a host application's user ID to a local user, scoped to one
// organization. Unique on (organization_id, external_id).
type Link struct {
	ID             string
	OrganizationID string
	ExternalID     string
	UserID         string
	LastSeenAt     time.Time
	CreatedAt      time.Time
}
