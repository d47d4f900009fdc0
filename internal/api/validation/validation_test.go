package validation_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/echofeed/echofeed/internal/api/validation"
)

func fields(errs []validation.FieldError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

func TestValidateSignInRequest(t *testing.T) {
	t.Parallel()

	valid := validation.SignInRequest{
		ExternalID:       "u1",
		Email:            "a@acme.com",
		Timestamp:        1700000000,
		OrganizationSlug: "acme",
		Signature:        "abc123",
	}
	assert.Empty(t, validation.ValidateSignInRequest(valid))

	empty := validation.ValidateSignInRequest(validation.SignInRequest{})
	assert.ElementsMatch(t,
		[]string{"externalId", "email", "timestamp", "organizationSlug", "signature"},
		fields(empty))

	bad := valid
	bad.Email = "no-at-sign"
	assert.Equal(t, []string{"email"}, fields(validation.ValidateSignInRequest(bad)))
}

func TestValidateIdentifyRequest_HMACAndTimestampTravelTogether(t *testing.T) {
	t.Parallel()

	ts := int64(1700000000)
	base := validation.IdentifyRequest{ID: "u1", Email: "a@acme.com"}

	assert.Empty(t, validation.ValidateIdentifyRequest(base), "neither is fine")

	both := base
	both.HMAC = "abc"
	both.Timestamp = &ts
	assert.Empty(t, validation.ValidateIdentifyRequest(both), "both is fine")

	hmacOnly := base
	hmacOnly.HMAC = "abc"
	assert.Equal(t, []string{"hmac"}, fields(validation.ValidateIdentifyRequest(hmacOnly)))

	tsOnly := base
	tsOnly.Timestamp = &ts
	assert.Equal(t, []string{"hmac"}, fields(validation.ValidateIdentifyRequest(tsOnly)))
}

func TestValidateCreateAPIKeyRequest(t *testing.T) {
	t.Parallel()

	assert.Empty(t, validation.ValidateCreateAPIKeyRequest(validation.CreateAPIKeyRequest{Name: "prod"}))

	assert.Equal(t, []string{"name"},
		fields(validation.ValidateCreateAPIKeyRequest(validation.CreateAPIKeyRequest{Name: "   "})))

	long := validation.CreateAPIKeyRequest{
		Name:        strings.Repeat("x", 256),
		Description: strings.Repeat("y", 1025),
	}
	assert.ElementsMatch(t, []string{"name", "description"},
		fields(validation.ValidateCreateAPIKeyRequest(long)))
}
