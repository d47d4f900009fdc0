// Package validation holds pure request-shape checks. Anything
// cryptographic (signatures, timestamps windows, key formats) belongs to the
// services; this layer only rejects structurally unusable input.
package validation

import "strings"

// FieldError describes a single invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// SignInRequest mirrors the fields needed for external sign-in validation.
type SignInRequest struct {
	ExternalID       string
	Email            string
	Timestamp        int64
	OrganizationSlug string
	Signature        string
}

// ValidateSignInRequest validates the fields of an external sign-in request.
func ValidateSignInRequest(req SignInRequest) []FieldError {
	var errs []FieldError

	if strings.TrimSpace(req.ExternalID) == "" {
		errs = append(errs, FieldError{Field: "externalId", Message: "externalId is required"})
	}
	errs = append(errs, validateEmail(req.Email)...)
	if req.Timestamp == 0 {
		errs = append(errs, FieldError{Field: "timestamp", Message: "timestamp is required"})
	}
	if strings.TrimSpace(req.OrganizationSlug) == "" {
		errs = append(errs, FieldError{Field: "organizationSlug", Message: "organizationSlug is required"})
	}
	if strings.TrimSpace(req.Signature) == "" {
		errs = append(errs, FieldError{Field: "signature", Message: "signature is required"})
	}

	return errs
}

// IdentifyRequest mirrors the fields needed for embed identify validation.
type IdentifyRequest struct {
	ID        string
	Email     string
	HMAC      string
	Timestamp *int64
}

// ValidateIdentifyRequest validates the fields of an embed identify request.
// An HMAC without a timestamp (or the reverse) is rejected here; a host
// either signs the full claim or sends none of it.
func ValidateIdentifyRequest(req IdentifyRequest) []FieldError {
	var errs []FieldError

	if strings.TrimSpace(req.ID) == "" {
		errs = append(errs, FieldError{Field: "id", Message: "id is required"})
	}
	errs = append(errs, validateEmail(req.Email)...)
	if (req.HMAC != "") != (req.Timestamp != nil) {
		errs = append(errs, FieldError{Field: "hmac", Message: "hmac and timestamp must be supplied together"})
	}

	return errs
}

// CreateAPIKeyRequest mirrors the fields needed for API key creation
// validation.
type CreateAPIKeyRequest struct {
	Name        string
	Description string
}

// ValidateCreateAPIKeyRequest validates the fields of a create API key
// request.
func ValidateCreateAPIKeyRequest(req CreateAPIKeyRequest) []FieldError {
	var errs []FieldError

	name := strings.TrimSpace(req.Name)
	if name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	} else if len(name) > 255 {
		errs = append(errs, FieldError{Field: "name", Message: "name must be at most 255 characters"})
	}
	if len(req.Description) > 1024 {
		errs = append(errs, FieldError{Field: "description", Message: "description must be at most 1024 characters"})
	}

	return errs
}

func validateEmail(email string) []FieldError {
	email = strings.TrimSpace(email)
	if email == "" {
		return []FieldError{{Field: "email", Message: "email is required"}}
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || len(email) > 320 {
		return []FieldError{{Field: "email", Message: "email must be a valid address"}}
	}
	return nil
}
