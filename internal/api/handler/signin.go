package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/echofeed/echofeed/internal/api/middleware"
	"github.com/echofeed/echofeed/internal/api/response"
	"github.com/echofeed/echofeed/internal/api/validation"
	"github.com/echofeed/echofeed/internal/identity"
	"github.com/echofeed/echofeed/internal/org"
	"github.com/echofeed/echofeed/internal/session"
	"github.com/echofeed/echofeed/internal/user"
)

// rejectedMessage is shared by the 401 and 404 sign-in outcomes so response
// bodies do not help anyone enumerate organization slugs.
const rejectedMessage = "Sign-in rejected"

type signInRequest struct {
	ExternalID       string  `json:"externalId"`
	Email            string  `json:"email"`
	Name             string  `json:"name"`
	Avatar           *string `json:"avatar"`
	Timestamp        int64   `json:"timestamp"`
	OrganizationSlug string  `json:"organizationSlug"`
	Signature        string  `json:"signature"`
}

type userResponse struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  string  `json:"name"`
	Image *string `json:"image,omitempty"`
}

type sessionResponse struct {
	ID        string `json:"id"`
	Type      string `json:"sessionType"`
	ExpiresAt string `json:"expiresAt"`
}

func toUserResponse(u *user.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Name: u.Name, Image: u.Image}
}

func toSessionResponse(s *session.Session) sessionResponse {
	return sessionResponse{
		ID:        s.ID,
		Type:      s.Type,
		ExpiresAt: s.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// SignInHandler handles POST /auth/external/sign-in: a host backend vouching
// for one of its end users with an HMAC-signed claim.
type SignInHandler struct {
	identity *identity.Service
	sessions *session.Service
}

// NewSignInHandler creates a new SignInHandler.
func NewSignInHandler(identitySvc *identity.Service, sessions *session.Service) *SignInHandler {
	return &SignInHandler{identity: identitySvc, sessions: sessions}
}

// SignIn handles the external sign-in request. On success the first-party
// session cookie is set.
func (h *SignInHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, response.CodeInvalidJSON, "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateSignInRequest(validation.SignInRequest{
		ExternalID:       req.ExternalID,
		Email:            req.Email,
		Timestamp:        req.Timestamp,
		OrganizationSlug: req.OrganizationSlug,
		Signature:        req.Signature,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, response.CodeValidation, "Input validation failed", fieldErrors, requestID)
		return
	}

	sess, u, err := h.identity.SignIn(r.Context(), identity.SignInInput{
		ExternalID:       req.ExternalID,
		Email:            req.Email,
		Name:             req.Name,
		Avatar:           req.Avatar,
		Timestamp:        req.Timestamp,
		OrganizationSlug: req.OrganizationSlug,
		Signature:        req.Signature,
	})
	if err != nil {
		writeSignInError(w, err, requestID)
		return
	}

	http.SetCookie(w, h.sessions.Cookie(sess))
	response.Success(w, http.StatusOK, map[string]any{
		"user":    toUserResponse(u),
		"session": toSessionResponse(sess),
	}, requestID)
}

// SignOut handles POST /auth/sign-out: deletes the session row and clears the
// cookie. Idempotent; a missing or unknown cookie still clears and succeeds.
func (h *SignInHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(session.CookieName); err == nil && cookie.Value != "" {
		if err := h.sessions.Revoke(r.Context(), cookie.Value); err != nil {
			slog.Warn("failed to revoke session", "error", err)
		}
	}

	http.SetCookie(w, h.sessions.ClearCookie())
	response.NoContent(w)
}

// writeSignInError maps identity flow failures onto the error taxonomy. The
// status codes are distinct per the protocol; the 401/404 messages are not.
func writeSignInError(w http.ResponseWriter, err error, requestID string) {
	switch {
	case errors.Is(err, identity.ErrStaleTimestamp):
		response.Err(w, http.StatusBadRequest, response.CodeStaleTimestamp, "Timestamp outside accepted window", requestID)
	case errors.Is(err, org.ErrOrgNotFound):
		response.Err(w, http.StatusNotFound, response.CodeNotFound, rejectedMessage, requestID)
	case errors.Is(err, identity.ErrBadSignature):
		response.Err(w, http.StatusUnauthorized, response.CodeUnauthorized, rejectedMessage, requestID)
	case errors.Is(err, identity.ErrAdminBlocked):
		response.Err(w, http.StatusForbidden, response.CodeForbidden, "Account not eligible for external sign-in", requestID)
	default:
		slog.Error("external sign-in failed", "error", err)
		response.Err(w, http.StatusInternalServerError, response.CodeInternal, "Sign-in failed", requestID)
	}
}
