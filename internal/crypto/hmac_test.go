package crypto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echofeed/echofeed/internal/crypto"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func sampleClaim() crypto.Claim {
	return crypto.Claim{
		ExternalID:       "u1",
		Email:            "a@acme.com",
		Name:             "Ada",
		Timestamp:        1700000000,
		OrganizationSlug: "acme",
	}
}

func TestSignClaim_RoundTrip(t *testing.T) {
	t.Parallel()

	c := sampleClaim()
	sig := crypto.SignClaim(c, testSecret)

	require.NotEmpty(t, sig)
	assert.Len(t, sig, 64, "HMAC-SHA256 hex should be 64 chars")
	assert.True(t, crypto.VerifyClaim(c, sig, testSecret))
}

func TestVerifyClaim_AnyFieldFlipFails(t *testing.T) {
	t.Parallel()

	c := sampleClaim()
	sig := crypto.SignClaim(c, testSecret)

	mutations := map[string]func(crypto.Claim) crypto.Claim{
		"externalId": func(c crypto.Claim) crypto.Claim { c.ExternalID = "u2"; return c },
		"email":      func(c crypto.Claim) crypto.Claim { c.Email = "b@acme.com"; return c },
		"name":       func(c crypto.Claim) crypto.Claim { c.Name = "Eve"; return c },
		"timestamp":  func(c crypto.Claim) crypto.Claim { c.Timestamp++; return c },
		"slug":       func(c crypto.Claim) crypto.Claim { c.OrganizationSlug = "evil"; return c },
	}

	for field, mutate := range mutations {
		assert.False(t, crypto.VerifyClaim(mutate(c), sig, testSecret),
			"flipping %s should invalidate the signature", field)
	}
}

func TestVerifyClaim_WrongSecret(t *testing.T) {
	t.Parallel()

	c := sampleClaim()
	sig := crypto.SignClaim(c, testSecret)

	assert.False(t, crypto.VerifyClaim(c, sig, []byte("fedcba9876543210fedcba9876543210")))
}

// Fields that merely shuffle content across the separator must produce
// different signatures: the length-prefixed encoding removes the ambiguity of
// a plain join.
func TestSignClaim_SeparatorInjection(t *testing.T) {
	t.Parallel()

	a := crypto.Claim{ExternalID: "u1|x", Email: "a@acme.com", Timestamp: 1, OrganizationSlug: "acme"}
	b := crypto.Claim{ExternalID: "u1", Email: "x|a@acme.com", Timestamp: 1, OrganizationSlug: "acme"}

	assert.NotEqual(t, crypto.SignClaim(a, testSecret), crypto.SignClaim(b, testSecret))
}

func TestConstantTimeEqual(t *testing.T) {
	t.Parallel()

	assert.True(t, crypto.ConstantTimeEqual("abcd", "abcd"))
	assert.False(t, crypto.ConstantTimeEqual("abcd", "abce"))
	assert.False(t, crypto.ConstantTimeEqual("abcd", "abc"))
	assert.True(t, crypto.ConstantTimeEqual("", ""))

	// Property check with a fixed iteration count: a mismatch in any
	// position yields false regardless of where it sits.
	base := "00000000000000000000000000000000"
	for i := 0; i < len(base); i++ {
		mutated := base[:i] + "1" + base[i+1:]
		assert.False(t, crypto.ConstantTimeEqual(base, mutated), "mismatch at %d", i)
	}
}
