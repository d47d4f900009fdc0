package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Prefix marks every raw key so it is recognizable in configuration files and
// secret scanners.
const Prefix = "efk_"

const bodyLen = 64 // 32 random bytes, lowercase hex

// Generate creates a new raw API key: Prefix + 64 lowercase hex characters.
func Generate() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}
	return Prefix + hex.EncodeToString(b), nil
}

// Fingerprint returns the SHA-256 hex digest of a raw key, used as the O(1)
// lookup column.
func Fingerprint(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:])
}

// Hash computes the slow bcrypt hash of a raw key at the given cost.
func Hash(rawKey string, cost int) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(rawKey), cost)
	if err != nil {
		return "", fmt.Errorf("hashing key: %w", err)
	}
	return string(h), nil
}

// Preview derives the display form of a raw key: "..." plus its last four
// characters.
func Preview(rawKey string) string {
	if len(rawKey) < 4 {
		return "..." + rawKey
	}
	return "..." + rawKey[len(rawKey)-4:]
}

// FormatValid reports whether a presented key has the expected shape:
// the prefix followed by exactly 64 lowercase hex characters.
func FormatValid(rawKey string) bool {
	if len(rawKey) != len(Prefix)+bodyLen {
		return false
	}
	if rawKey[:len(Prefix)] != Prefix {
		return false
	}
	for _, c := range rawKey[len(Prefix):] {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
