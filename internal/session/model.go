package session

import "time"

// Session types. An identified session comes from trusting a host
// application's claim about its user; an authenticated session comes from a
// direct login against this product. Admin surfaces accept only the latter.
const (
	TypeIdentified    = "identified"
	TypeAuthenticated = "authenticated"
)

// Auth methods recorded on a session.
const (
	MethodExternal   = "external"
	MethodCredential = "credential"
	MethodOAuth      = "oauth"
)

// CookieName is the first-party session cookie.
const CookieName = "echofeed_session"

// Session represents a row in the sessions table.
type Session struct {
	ID                   string
	UserID               string
	ActiveOrganizationID string
	Type                 string
	AuthMethod           string
	ExpiresAt            time.Time
	CreatedAt            time.Time
}

// Identified reports whether the session was created by vouching rather than
// by direct authentication.
func (s *Session) Identified() bool {
	return s.Type == TypeIdentified
}
