package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// KeySize is the required length of the service encryption key.
const KeySize = 32

const gcmTagSize = 16

// ErrDecrypt is returned when a ciphertext fails to decrypt: wrong key,
// tampered data, or malformed framing. Callers must treat all three the same.
var ErrDecrypt = errors.New("decryption failed")

// Encrypt seals plaintext under a 32-byte key with AES-256-GCM and a random
// nonce, returning "hex(iv):hex(tag):hex(ciphertext)". Used for values that
// live in the database: organization secret keys and provider OAuth tokens.
func Encrypt(plaintext string, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-gcmTagSize], sealed[len(sealed)-gcmTagSize:]

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(tag) + ":" + hex.EncodeToString(ct), nil
}

// Decrypt reverses Encrypt. Any tag mismatch or framing defect yields
// ErrDecrypt, never a wrong plaintext.
func Decrypt(combined string, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	parts := strings.Split(combined, ":")
	if len(parts) != 3 {
		return "", ErrDecrypt
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != gcm.NonceSize() {
		return "", ErrDecrypt
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != gcmTagSize {
		return "", ErrDecrypt
	}
	ct, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", ErrDecrypt
	}

	plaintext, err := gcm.Open(nil, iv, append(ct, tag...), nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return gcm, nil
}
