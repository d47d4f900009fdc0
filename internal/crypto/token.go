package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ErrTokenInvalid is returned for any unusable bearer token: forged, expired,
// or malformed. The distinction is deliberately not surfaced.
var ErrTokenInvalid = errors.New("invalid or expired token")

// TokenClaims is the payload sealed inside an embed bearer token. The token
// is self-contained: integrity and expiry ride in the ciphertext, not in a
// database row.
type TokenClaims struct {
	Sub string `json:"sub"` // user ID
	Oid string `json:"oid"` // organization ID
	Eid string `json:"eid"` // external ID within that organization
	Exp int64  `json:"exp"` // Unix seconds
}

// SealToken encrypts claims into a bearer token of the form
// "b64url(iv).b64url(ciphertext).b64url(tag)". The key is derived from an
// arbitrary-length secret via SHA-256, so the token secret is not required to
// be exactly 32 bytes the way the service encryption key is.
func SealToken(claims TokenClaims, secret []byte) (string, error) {
	gcm, err := newGCM(deriveKey(secret))
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("encoding token claims: %w", err)
	}

	iv := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := gcm.Seal(nil, iv, payload, nil)
	ct, tag := sealed[:len(sealed)-gcmTagSize], sealed[len(sealed)-gcmTagSize:]

	enc := base64.RawURLEncoding
	return enc.EncodeToString(iv) + "." + enc.EncodeToString(ct) + "." + enc.EncodeToString(tag), nil
}

// OpenToken decrypts and validates a bearer token. The AEAD tag is verified
// before the expiry is even looked at; a token that fails either check is
// rejected with ErrTokenInvalid and nothing else.
func OpenToken(token string, secret []byte, now time.Time) (*TokenClaims, error) {
	gcm, err := newGCM(deriveKey(secret))
	if err != nil {
		return nil, err
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrTokenInvalid
	}

	enc := base64.RawURLEncoding
	iv, err := enc.DecodeString(parts[0])
	if err != nil || len(iv) != gcm.NonceSize() {
		return nil, ErrTokenInvalid
	}
	ct, err := enc.DecodeString(parts[1])
	if err != nil {
		return nil, ErrTokenInvalid
	}
	tag, err := enc.DecodeString(parts[2])
	if err != nil || len(tag) != gcmTagSize {
		return nil, ErrTokenInvalid
	}

	payload, err := gcm.Open(nil, iv, append(ct, tag...), nil)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	var claims TokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, ErrTokenInvalid
	}
	if now.Unix() >= claims.Exp {
		return nil, ErrTokenInvalid
	}

	return &claims, nil
}

func deriveKey(secret []byte) []byte {
	sum := sha256.Sum256(secret)
	return sum[:]
}
