package handler

import (
	"context"
	"net/http"

	"github.com/echofeed/echofeed/internal/api/middleware"
	"github.com/echofeed/echofeed/internal/api/response"
)

// DBPinger verifies database connectivity for the health check.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles the GET /health endpoint.
type HealthHandler struct {
	db      DBPinger
	version string
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db DBPinger, version string) *HealthHandler {
	return &HealthHandler{db: db, version: version}
}

type healthData struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

// ServeHTTP handles the health check request.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	status, db := "healthy", "connected"
	if h.db == nil || h.db.Ping(r.Context()) != nil {
		status, db = "degraded", "disconnected"
	}

	response.Success(w, http.StatusOK, healthData{
		Status:   status,
		Version:  h.version,
		Database: db,
	}, requestID)
}
