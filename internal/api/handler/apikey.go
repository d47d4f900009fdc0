package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/echofeed/echofeed/internal/apikey"
	"github.com/echofeed/echofeed/internal/api/middleware"
	"github.com/echofeed/echofeed/internal/api/response"
	"github.com/echofeed/echofeed/internal/api/validation"
)

type createKeyRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

type toggleKeyRequest struct {
	IsActive bool `json:"isActive"`
}

type keyResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Preview     string  `json:"preview"`
	IsActive    bool    `json:"isActive"`
	ExpiresAt   *string `json:"expiresAt"`
	LastUsedAt  *string `json:"lastUsedAt"`
	CreatedAt   string  `json:"createdAt"`
}

func toKeyResponse(k *apikey.Key) keyResponse {
	return keyResponse{
		ID:          k.ID,
		Name:        k.Name,
		Description: k.Description,
		Preview:     k.Preview,
		IsActive:    k.IsActive,
		ExpiresAt:   formatTimePtr(k.ExpiresAt),
		LastUsedAt:  formatTimePtr(k.LastUsedAt),
		CreatedAt:   k.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format("2006-01-02T15:04:05Z")
	return &s
}

// APIKeyHandler handles the admin API key management endpoints. All routes
// sit behind the admin-session middleware, which resolves the organization.
type APIKeyHandler struct {
	keys *apikey.Service
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(keys *apikey.Service) *APIKeyHandler {
	return &APIKeyHandler{keys: keys}
}

// Create handles POST /orgs/{slug}/api-keys. The raw key appears in this
// response and nowhere else, ever.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	o := middleware.GetOrg(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req createKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, response.CodeInvalidJSON, "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateCreateAPIKeyRequest(validation.CreateAPIKeyRequest{
		Name:        req.Name,
		Description: req.Description,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, response.CodeValidation, "Input validation failed", fieldErrors, requestID)
		return
	}

	k, rawKey, err := h.keys.Create(r.Context(), o.ID, req.Name, req.Description, req.ExpiresAt)
	if err != nil {
		if errors.Is(err, apikey.ErrQuotaExceeded) {
			response.Err(w, http.StatusBadRequest, response.CodeQuotaExceeded, "Active API key limit reached", requestID)
			return
		}
		slog.Error("failed to create api key", "error", err)
		response.Err(w, http.StatusInternalServerError, response.CodeInternal, "Failed to create API key", requestID)
		return
	}

	response.Success(w, http.StatusCreated, map[string]any{
		"key":    toKeyResponse(k),
		"rawKey": rawKey,
	}, requestID)
}

// List handles GET /orgs/{slug}/api-keys. Previews only.
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	o := middleware.GetOrg(r.Context())

	keys, err := h.keys.List(r.Context(), o.ID)
	if err != nil {
		slog.Error("failed to list api keys", "error", err)
		response.Err(w, http.StatusInternalServerError, response.CodeInternal, "Failed to list API keys", requestID)
		return
	}

	items := make([]keyResponse, 0, len(keys))
	for i := range keys {
		items = append(items, toKeyResponse(&keys[i]))
	}

	response.Success(w, http.StatusOK, items, requestID)
}

// Toggle handles PATCH /orgs/{slug}/api-keys/{id}: soft revoke / re-enable.
func (h *APIKeyHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	o := middleware.GetOrg(r.Context())
	keyID := chi.URLParam(r, "id")

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req toggleKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, response.CodeInvalidJSON, "Request body must be valid JSON", requestID)
		return
	}

	if err := h.keys.SetActive(r.Context(), o.ID, keyID, req.IsActive); err != nil {
		writeKeyError(w, err, requestID)
		return
	}

	response.NoContent(w)
}

// Delete handles DELETE /orgs/{slug}/api-keys/{id}: hard delete.
func (h *APIKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	o := middleware.GetOrg(r.Context())
	keyID := chi.URLParam(r, "id")

	if err := h.keys.Delete(r.Context(), o.ID, keyID); err != nil {
		writeKeyError(w, err, requestID)
		return
	}

	response.NoContent(w)
}

func writeKeyError(w http.ResponseWriter, err error, requestID string) {
	switch {
	case errors.Is(err, apikey.ErrKeyNotFound):
		response.Err(w, http.StatusNotFound, response.CodeNotFound, "API key not found", requestID)
	case errors.Is(err, apikey.ErrQuotaExceeded):
		response.Err(w, http.StatusBadRequest, response.CodeQuotaExceeded, "Active API key limit reached", requestID)
	default:
		slog.Error("api key operation failed", "error", err)
		response.Err(w, http.StatusInternalServerError, response.CodeInternal, "API key operation failed", requestID)
	}
}
