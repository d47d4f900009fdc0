package oauth

import (
	"context"
	"errors"
	"time"
)

// ErrConnectionNotFound is returned when no connection row exists for an
// (organization, provider) pair.
var ErrConnectionNotFound = errors.New("oauth connection not found")

// Repository provides operations on the oauth_connections table.
type Repository interface {
	// Upsert inserts a pending connection or resets an existing row for the
	// same (organization, provider) back to pending, clearing any previously
	// stored tokens. A new initiation invalidates an old connection.
	Upsert(ctx context.Context, c *Connection) error
	Get(ctx context.Context, orgID, provider string) (*Connection, error)
	// Activate transitions the row to active, storing the encrypted tokens
	// and clearing all device-flow fields in the same statement.
	Activate(ctx context.Context, id, accessTokenEnc, refreshTokenEnc string, tokenExpiresAt *time.Time, accountID string) error
	Delete(ctx context.Context, orgID, provider string) error
}
