package apikey_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/echofeed/echofeed/internal/apikey"
)

func TestGenerate_Format(t *testing.T) {
	t.Parallel()

	rawKey, err := apikey.Generate()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(rawKey, apikey.Prefix))
	assert.Len(t, rawKey, len(apikey.Prefix)+64)
	assert.True(t, apikey.FormatValid(rawKey), "generated keys are always well formed")
}

func TestGenerate_Uniqueness(t *testing.T) {
	t.Parallel()

	a, err := apikey.Generate()
	require.NoError(t, err)
	b, err := apikey.Generate()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestFormatValid_Negatives(t *testing.T) {
	t.Parallel()

	valid, err := apikey.Generate()
	require.NoError(t, err)

	cases := map[string]string{
		"empty":         "",
		"garbage":       "garbage",
		"no prefix":     strings.TrimPrefix(valid, apikey.Prefix),
		"wrong prefix":  "zzz_" + strings.TrimPrefix(valid, apikey.Prefix),
		"too short":     valid[:len(valid)-1],
		"too long":      valid + "0",
		"uppercase hex": valid[:len(valid)-1] + "F",
		"non-hex body":  valid[:len(valid)-1] + "g",
	}

	for name, input := range cases {
		assert.False(t, apikey.FormatValid(input), name)
	}
}

func TestFingerprint_Deterministic(t *testing.T) {
	t.Parallel()

	rawKey, err := apikey.Generate()
	require.NoError(t, err)

	assert.Equal(t, apikey.Fingerprint(rawKey), apikey.Fingerprint(rawKey))
	assert.Len(t, apikey.Fingerprint(rawKey), 64)

	other, err := apikey.Generate()
	require.NoError(t, err)
	assert.NotEqual(t, apikey.Fingerprint(rawKey), apikey.Fingerprint(other))
}

func TestHash_VerifiesWithBcrypt(t *testing.T) {
	t.Parallel()

	rawKey, err := apikey.Generate()
	require.NoError(t, err)

	hash, err := apikey.Hash(rawKey, bcrypt.MinCost)
	require.NoError(t, err)

	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte(rawKey)))
}

func TestPreview(t *testing.T) {
	t.Parallel()

	rawKey, err := apikey.Generate()
	require.NoError(t, err)

	preview := apikey.Preview(rawKey)
	assert.True(t, strings.HasPrefix(preview, "..."))
	assert.Equal(t, rawKey[len(rawKey)-4:], preview[3:])
}
