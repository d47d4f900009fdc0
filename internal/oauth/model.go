package oauth

import "time"

// Connection statuses persisted on the row.
const (
	StatusPending = "pending"
	StatusActive  = "active"
)

// Flow states reported to the caller. Pending, expired and denied cover the
// device-authorization grant's outcomes; not_connected means no row exists.
const (
	StateNotConnected = "not_connected"
	StatePending      = "pending"
	StateActive       = "active"
	StateExpired      = "expired"
	StateDenied       = "denied"
)

// Connection represents a row in the oauth_connections table: one per
// (organization, provider). While pending it carries the device-flow fields;
// once active those are cleared and only the encrypted tokens remain.
type Connection struct {
	ID             string
	OrganizationID string
	Provider       string
	Status         string

	DeviceAuthID        *string
	UserCode            *string
	VerificationURI     *string
	DeviceAuthExpiresAt *time.Time
	IntervalSeconds     *int

	AccessTokenEnc  *string
	RefreshTokenEnc *string
	TokenExpiresAt  *time.Time
	AccountID       *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
