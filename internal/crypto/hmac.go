// Package crypto provides the signing and encryption primitives behind the
// external sign-in protocol: HMAC claim signatures, timestamp freshness
// checks, and AES-256-GCM encryption for stored secrets and bearer tokens.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"
)

// Claim is the identity assertion a host backend signs on behalf of one of
// its end users. It exists only on the wire and is never persisted.
type Claim struct {
	ExternalID       string
	Email            string
	Name             string
	Timestamp        int64
	OrganizationSlug string
}

// canonical serializes a claim into the byte string that gets signed. Each
// field is length-prefixed so a separator character inside a field value
// (say, an email containing '|') cannot produce the same payload as a
// different claim.
func canonical(c Claim) []byte {
	fields := []string{
		c.ExternalID,
		c.Email,
		c.Name,
		strconv.FormatInt(c.Timestamp, 10),
		c.OrganizationSlug,
	}

	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(strconv.Itoa(len(f)))
		b.WriteByte(':')
		b.WriteString(f)
	}
	return []byte(b.String())
}

// SignClaim computes the hex-encoded HMAC-SHA256 signature of a claim under
// the organization's secret key.
func SignClaim(c Claim, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(canonical(c))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyClaim recomputes the signature over the caller-supplied fields and
// compares it to the presented one in constant time. A length mismatch fails
// immediately; equal-length comparison never short-circuits, since this check
// is the sole defense against timing side-channels on a value that gates
// tenant impersonation.
func VerifyClaim(c Claim, signature string, secret []byte) bool {
	return ConstantTimeEqual(SignClaim(c, secret), signature)
}

// ConstantTimeEqual compares two strings without leaking the position of the
// first differing byte. Unequal lengths return false immediately.
func ConstantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
