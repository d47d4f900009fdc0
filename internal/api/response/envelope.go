// Package response defines the envelope every endpoint answers with:
// {data, error, meta}, where meta carries the request ID for cross-system
// correlation.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Code identifies an error class machine-readably. Clients branch on codes,
// never on messages.
type Code string

// The full error taxonomy. Every non-2xx body carries exactly one of these.
const (
	CodeInvalidJSON    Code = "INVALID_JSON"
	CodeValidation     Code = "VALIDATION_ERROR"
	CodeStaleTimestamp Code = "STALE_TIMESTAMP"
	CodeQuotaExceeded  Code = "QUOTA_EXCEEDED"
	CodeUnauthorized   Code = "UNAUTHORIZED"
	CodeForbidden      Code = "FORBIDDEN"
	CodeNotFound       Code = "NOT_FOUND"
	CodeProviderError  Code = "PROVIDER_ERROR"
	CodeInternal       Code = "INTERNAL_ERROR"
)

// Meta holds metadata attached to every response.
type Meta struct {
	RequestID string `json:"requestId"`
	Timestamp string `json:"timestamp"`
}

// Error is the structured error half of the envelope.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Envelope is the standard response wrapper. Exactly one of Data and Error is
// set.
type Envelope struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
	Meta  Meta   `json:"meta"`
}

// NewMeta creates a Meta with the given request ID, generating one when the
// middleware did not supply it.
func NewMeta(requestID string) Meta {
	if requestID == "" {
		requestID = uuid.New().String()
	}
	return Meta{
		RequestID: requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// JSON writes the envelope with the given status code.
func JSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Success writes a data envelope.
func Success(w http.ResponseWriter, status int, data any, requestID string) {
	JSON(w, status, Envelope{
		Data: data,
		Meta: NewMeta(requestID),
	})
}

// NoContent writes a 204 No Content response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Err writes an error envelope.
func Err(w http.ResponseWriter, status int, code Code, message string, requestID string) {
	JSON(w, status, Envelope{
		Error: &Error{
			Code:    code,
			Message: message,
		},
		Meta: NewMeta(requestID),
	})
}

// ErrWithDetails writes an error envelope with field-level details.
func ErrWithDetails(w http.ResponseWriter, status int, code Code, message string, details any, requestID string) {
	JSON(w, status, Envelope{
		Error: &Error{
			Code:    code,
			Message: message,
			Details: details,
		},
		Meta: NewMeta(requestID),
	})
}
