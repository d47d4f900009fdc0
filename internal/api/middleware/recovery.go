package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/echofeed/echofeed/internal/api/response"
)

// Recovery turns handler panics into enveloped 500 responses. The auth
// endpoints sit on untrusted input end to end, so a panic must never take the
// connection down bare.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				requestID := GetRequestID(r.Context())
				slog.Error("panic recovered",
					"error", err,
					"requestId", requestID,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				response.Err(w, http.StatusInternalServerError, response.CodeInternal, "An unexpected error occurred", requestID)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
