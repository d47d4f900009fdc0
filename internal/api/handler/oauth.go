package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/echofeed/echofeed/internal/api/middleware"
	"github.com/echofeed/echofeed/internal/api/response"
	"github.com/echofeed/echofeed/internal/oauth"
)

type connectionResponse struct {
	State           string  `json:"state"`
	UserCode        string  `json:"userCode,omitempty"`
	VerificationURI string  `json:"verificationUri,omitempty"`
	ExpiresAt       *string `json:"expiresAt,omitempty"`
	IntervalSeconds int     `json:"intervalSeconds,omitempty"`
	AccountID       string  `json:"accountId,omitempty"`
}

func toConnectionResponse(st *oauth.Status) connectionResponse {
	return connectionResponse{
		State:           st.State,
		UserCode:        st.UserCode,
		VerificationURI: st.VerificationURI,
		ExpiresAt:       formatTimePtr(st.DeviceAuthExpiresAt),
		IntervalSeconds: st.IntervalSeconds,
		AccountID:       st.AccountID,
	}
}

// OAuthHandler handles the admin endpoints for connecting the organization to
// the AI coding provider via the device-authorization grant.
type OAuthHandler struct {
	conns *oauth.Service
}

// NewOAuthHandler creates a new OAuthHandler.
func NewOAuthHandler(conns *oauth.Service) *OAuthHandler {
	return &OAuthHandler{conns: conns}
}

// Connect handles POST /orgs/{slug}/integrations/{provider}/connect. Returns
// the user code and verification URI for the admin to complete out of band.
func (h *OAuthHandler) Connect(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	o := middleware.GetOrg(r.Context())
	provider := chi.URLParam(r, "provider")

	st, err := h.conns.Connect(r.Context(), o.ID, provider)
	if err != nil {
		slog.Error("failed to initiate device flow", "provider", provider, "error", err)
		response.Err(w, http.StatusBadGateway, response.CodeProviderError, "Could not reach the provider", requestID)
		return
	}

	response.Success(w, http.StatusOK, toConnectionResponse(st), requestID)
}

// Status handles GET /orgs/{slug}/integrations/{provider}/status. The admin
// UI polls this on an interval; each call advances the flow at most one step.
func (h *OAuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	o := middleware.GetOrg(r.Context())
	provider := chi.URLParam(r, "provider")

	st, err := h.conns.Poll(r.Context(), o.ID, provider)
	if err != nil {
		slog.Error("device flow poll failed", "provider", provider, "error", err)
		response.Err(w, http.StatusBadGateway, response.CodeProviderError, "Could not reach the provider", requestID)
		return
	}

	response.Success(w, http.StatusOK, toConnectionResponse(st), requestID)
}

// Disconnect handles DELETE /orgs/{slug}/integrations/{provider}.
func (h *OAuthHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	o := middleware.GetOrg(r.Context())
	provider := chi.URLParam(r, "provider")

	if err := h.conns.Disconnect(r.Context(), o.ID, provider); err != nil {
		if errors.Is(err, oauth.ErrConnectionNotFound) {
			response.Err(w, http.StatusNotFound, response.CodeNotFound, "No connection for this provider", requestID)
			return
		}
		slog.Error("failed to disconnect provider", "provider", provider, "error", err)
		response.Err(w, http.StatusInternalServerError, response.CodeInternal, "Failed to disconnect", requestID)
		return
	}

	response.NoContent(w)
}
