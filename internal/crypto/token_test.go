package crypto_test

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echofeed/echofeed/internal/crypto"
)

// The token secret is deliberately not 32 bytes: the codec derives its key.
var tokenSecret = []byte("embed-token-secret")

func sampleTokenClaims(exp time.Time) crypto.TokenClaims {
	return crypto.TokenClaims{
		Sub: "usr_01hq",
		Oid: "org_01hq",
		Eid: "external-7",
		Exp: exp.Unix(),
	}
}

func TestSealOpenToken_RoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	claims := sampleTokenClaims(now.Add(7 * 24 * time.Hour))

	token, err := crypto.SealToken(claims, tokenSecret)
	require.NoError(t, err)
	require.Len(t, strings.Split(token, "."), 3)

	got, err := crypto.OpenToken(token, tokenSecret, now)
	require.NoError(t, err)
	assert.Equal(t, claims, *got)
}

func TestOpenToken_Expired(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	token, err := crypto.SealToken(sampleTokenClaims(now), tokenSecret)
	require.NoError(t, err)

	// Exp == now is already expired; the window is exclusive.
	_, err = crypto.OpenToken(token, tokenSecret, now)
	assert.ErrorIs(t, err, crypto.ErrTokenInvalid)
}

func TestOpenToken_Tampered(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	token, err := crypto.SealToken(sampleTokenClaims(now.Add(time.Hour)), tokenSecret)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	flip := func(s string) string {
		raw, err := base64.RawURLEncoding.DecodeString(s)
		require.NoError(t, err)
		raw[0] ^= 0x01
		return base64.RawURLEncoding.EncodeToString(raw)
	}

	for name, tampered := range map[string]string{
		"iv":         flip(parts[0]) + "." + parts[1] + "." + parts[2],
		"ciphertext": parts[0] + "." + flip(parts[1]) + "." + parts[2],
		"tag":        parts[0] + "." + parts[1] + "." + flip(parts[2]),
	} {
		_, err := crypto.OpenToken(tampered, tokenSecret, now)
		assert.ErrorIs(t, err, crypto.ErrTokenInvalid, "tampered %s", name)
	}
}

func TestOpenToken_WrongSecret(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	token, err := crypto.SealToken(sampleTokenClaims(now.Add(time.Hour)), tokenSecret)
	require.NoError(t, err)

	_, err = crypto.OpenToken(token, []byte("a different secret"), now)
	assert.ErrorIs(t, err, crypto.ErrTokenInvalid)
}

func TestOpenToken_Malformed(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	for _, input := range []string{"", "a.b", "a.b.c.d", "!!.!!.!!", "..", "onlyonepart"} {
		_, err := crypto.OpenToken(input, tokenSecret, now)
		assert.ErrorIs(t, err, crypto.ErrTokenInvalid, "input %q", input)
	}
}
