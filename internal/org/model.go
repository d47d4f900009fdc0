package org

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Organization represents a row in the organizations table. SecretKeyEnc is
// the tenant's HMAC signing secret, AES-encrypted with the service key; it is
// decrypted only at signature-verification time.
type Organization struct {
	ID                 string
	Slug               string
	Name               string
	SecretKeyEnc       string
	BlockAdminAccounts bool
	CreatedAt          time.Time
}

// Member represents a row in the organization_members table. Any membership
// row marks its user as staff of some tenant, which bars that user from the
// external sign-in path.
type Member struct {
	OrganizationID string
	UserID         string
	Role           string
	CreatedAt      time.Time
}

// NewSecretKey generates a fresh 256-bit tenant signing secret, hex encoded.
// Generated once at organization creation and handed to the host backend out
// of band.
func NewSecretKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating secret key: %w", err)
	}
	return hex.EncodeToString(b), nil
}
