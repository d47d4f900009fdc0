package crypto_test

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echofeed/echofeed/internal/crypto"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, plaintext := range []string{"", "x", "a tenant secret key", strings.Repeat("long ", 200)} {
		combined, err := crypto.Encrypt(plaintext, testKey)
		require.NoError(t, err)

		parts := strings.Split(combined, ":")
		require.Len(t, parts, 3, "framing should be iv:tag:ciphertext")
		assert.Len(t, parts[0], 24, "12-byte IV hex encoded")
		assert.Len(t, parts[1], 32, "16-byte tag hex encoded")

		got, err := crypto.Decrypt(combined, testKey)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestEncrypt_UniqueIVs(t *testing.T) {
	t.Parallel()

	a, err := crypto.Encrypt("same", testKey)
	require.NoError(t, err)
	b, err := crypto.Encrypt("same", testKey)
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "per-message random IVs should differ")
}

func TestDecrypt_TamperDetection(t *testing.T) {
	t.Parallel()

	combined, err := crypto.Encrypt("payload under test", testKey)
	require.NoError(t, err)
	parts := strings.Split(combined, ":")

	flip := func(hexStr string) string {
		raw, err := hex.DecodeString(hexStr)
		require.NoError(t, err)
		raw[0] ^= 0x01
		return hex.EncodeToString(raw)
	}

	cases := map[string]string{
		"iv":         flip(parts[0]) + ":" + parts[1] + ":" + parts[2],
		"tag":        parts[0] + ":" + flip(parts[1]) + ":" + parts[2],
		"ciphertext": parts[0] + ":" + parts[1] + ":" + flip(parts[2]),
	}

	for name, tampered := range cases {
		_, err := crypto.Decrypt(tampered, testKey)
		assert.ErrorIs(t, err, crypto.ErrDecrypt, "flipping one %s byte must fail", name)
	}
}

func TestDecrypt_Malformed(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "abc", "a:b", "zz:zz:zz", "::", "a:b:c:d"} {
		_, err := crypto.Decrypt(input, testKey)
		assert.ErrorIs(t, err, crypto.ErrDecrypt, "input %q", input)
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	t.Parallel()

	combined, err := crypto.Encrypt("secret", testKey)
	require.NoError(t, err)

	other := []byte("fedcba9876543210fedcba9876543210")
	_, err = crypto.Decrypt(combined, other)
	assert.ErrorIs(t, err, crypto.ErrDecrypt)
}

func TestEncrypt_RejectsBadKeyLength(t *testing.T) {
	t.Parallel()

	_, err := crypto.Encrypt("x", []byte("short"))
	assert.Error(t, err)
}
