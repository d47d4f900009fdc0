package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/echofeed/echofeed/internal/apikey"
	"github.com/echofeed/echofeed/internal/api/middleware"
	"github.com/echofeed/echofeed/internal/api/response"
	"github.com/echofeed/echofeed/internal/api/validation"
	"github.com/echofeed/echofeed/internal/crypto"
	"github.com/echofeed/echofeed/internal/identity"
	"github.com/echofeed/echofeed/internal/session"
	"github.com/echofeed/echofeed/internal/user"
)

type identifyRequest struct {
	ID               string  `json:"id"`
	Email            string  `json:"email"`
	Name             string  `json:"name"`
	Avatar           *string `json:"avatar"`
	HMAC             string  `json:"hmac"`
	Timestamp        *int64  `json:"timestamp"`
	OrganizationSlug string  `json:"organizationSlug"`
}

type exchangeRequest struct {
	Token string `json:"token"`
}

// EmbedHandler handles the two halves of the embed session bridge. Identify
// runs cross-origin inside the host's iframe, where cookies are unreliable,
// and returns a bearer token. Session runs same-origin after a navigation and
// trades that token for a cookie.
type EmbedHandler struct {
	identity *identity.Service
	sessions *session.Service
}

// NewEmbedHandler creates a new EmbedHandler.
func NewEmbedHandler(identitySvc *identity.Service, sessions *session.Service) *EmbedHandler {
	return &EmbedHandler{identity: identitySvc, sessions: sessions}
}

// Identify handles POST /embed/identify. Authenticated by the X-API-Key
// header, optionally strengthened by an HMAC+timestamp pair. No cookie is
// set here.
func (h *EmbedHandler) Identify(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	rawKey := r.Header.Get("X-API-Key")
	if rawKey == "" {
		response.Err(w, http.StatusUnauthorized, response.CodeUnauthorized, "API key is required", requestID)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req identifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, response.CodeInvalidJSON, "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateIdentifyRequest(validation.IdentifyRequest{
		ID:        req.ID,
		Email:     req.Email,
		HMAC:      req.HMAC,
		Timestamp: req.Timestamp,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, response.CodeValidation, "Input validation failed", fieldErrors, requestID)
		return
	}

	result, err := h.identity.Identify(r.Context(), rawKey, identity.IdentifyInput{
		ExternalID:       req.ID,
		Email:            req.Email,
		Name:             req.Name,
		Avatar:           req.Avatar,
		HMAC:             req.HMAC,
		Timestamp:        req.Timestamp,
		OrganizationSlug: req.OrganizationSlug,
	})
	if err != nil {
		writeIdentifyError(w, err, requestID)
		return
	}

	response.Success(w, http.StatusOK, map[string]any{
		"success":          true,
		"token":            result.Token,
		"user":             toUserResponse(result.User),
		"organizationSlug": result.OrganizationSlug,
	}, requestID)
}

// Session handles POST /embed/session: the same-origin exchange of a bearer
// token for a first-party cookie session. The token is not consumed by the
// exchange; it stays usable until its own expiry.
func (h *EmbedHandler) Session(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		response.Err(w, http.StatusBadRequest, response.CodeInvalidJSON, "A token is required", requestID)
		return
	}

	sess, u, err := h.identity.ExchangeSession(r.Context(), req.Token)
	if err != nil {
		switch {
		case errors.Is(err, crypto.ErrTokenInvalid):
			response.Err(w, http.StatusUnauthorized, response.CodeUnauthorized, "Invalid or expired token", requestID)
		case errors.Is(err, user.ErrUserNotFound):
			response.Err(w, http.StatusNotFound, response.CodeNotFound, "User not found", requestID)
		default:
			slog.Error("embed session exchange failed", "error", err)
			response.Err(w, http.StatusInternalServerError, response.CodeInternal, "Session exchange failed", requestID)
		}
		return
	}

	http.SetCookie(w, h.sessions.Cookie(sess))
	response.Success(w, http.StatusOK, map[string]any{
		"user":    toUserResponse(u),
		"session": toSessionResponse(sess),
	}, requestID)
}

func writeIdentifyError(w http.ResponseWriter, err error, requestID string) {
	switch {
	case errors.Is(err, apikey.ErrInvalidKey):
		response.Err(w, http.StatusUnauthorized, response.CodeUnauthorized, "Invalid or revoked API key", requestID)
	case errors.Is(err, identity.ErrStaleTimestamp):
		response.Err(w, http.StatusBadRequest, response.CodeStaleTimestamp, "Timestamp outside accepted window", requestID)
	case errors.Is(err, identity.ErrBadSignature):
		response.Err(w, http.StatusUnauthorized, response.CodeUnauthorized, rejectedMessage, requestID)
	case errors.Is(err, identity.ErrAdminBlocked):
		response.Err(w, http.StatusForbidden, response.CodeForbidden, "Account not eligible for external sign-in", requestID)
	default:
		slog.Error("embed identify failed", "error", err)
		response.Err(w, http.StatusInternalServerError, response.CodeInternal, "Identify failed", requestID)
	}
}
