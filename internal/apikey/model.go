package apikey

import "time"

// Key represents a row in the api_keys table. The raw key itself is returned
// to the caller exactly once, at creation; only its digests survive.
type Key struct {
	ID             string
	OrganizationID string
	Name           string
	Description    string
	// Fingerprint is the SHA-256 hex digest of the raw key: deterministic,
	// fast, and the only value used to look a presented key up.
	Fingerprint string
	// SecretHash is the bcrypt hash computed at creation. It guards offline
	// brute force if the table leaks and is never consulted on the hot path.
	SecretHash string
	// Preview is the display form shown in the UI ("..." + last 4 chars).
	// Never an input to any auth decision.
	Preview    string
	IsActive   bool
	ExpiresAt  *time.Time
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// Expired reports whether the key has an expiry in the past.
func (k *Key) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}
