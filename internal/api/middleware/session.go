package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/echofeed/echofeed/internal/api/response"
	"github.com/echofeed/echofeed/internal/org"
	"github.com/echofeed/echofeed/internal/session"
)

const sessionKey contextKey = "session"
const orgKey contextKey = "org"

// RequireAdminSession gates the admin surfaces (API key management, provider
// integrations). It resolves the session cookie, rejects identified sessions
// outright, resolves the {slug} organization, and requires the caller to be a
// member of it. An identified session is never usable here no matter what
// role rows exist elsewhere.
func RequireAdminSession(sessions *session.Service, orgs org.Repository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			cookie, err := r.Cookie(session.CookieName)
			if err != nil || cookie.Value == "" {
				response.Err(w, http.StatusUnauthorized, response.CodeUnauthorized, "Session is required", requestID)
				return
			}

			sess, err := sessions.Get(r.Context(), cookie.Value)
			if err != nil {
				if errors.Is(err, session.ErrSessionNotFound) {
					response.Err(w, http.StatusUnauthorized, response.CodeUnauthorized, "Invalid or expired session", requestID)
					return
				}
				response.Err(w, http.StatusInternalServerError, response.CodeInternal, "Authentication failed", requestID)
				return
			}

			if sess.Identified() {
				response.Err(w, http.StatusForbidden, response.CodeForbidden, "Admin access requires direct authentication", requestID)
				return
			}

			slug := chi.URLParam(r, "slug")
			o, err := orgs.GetBySlug(r.Context(), slug)
			if err != nil {
				if errors.Is(err, org.ErrOrgNotFound) {
					response.Err(w, http.StatusNotFound, response.CodeNotFound, "Organization not found", requestID)
					return
				}
				response.Err(w, http.StatusInternalServerError, response.CodeInternal, "Authentication failed", requestID)
				return
			}

			member, err := orgs.IsMember(r.Context(), o.ID, sess.UserID)
			if err != nil {
				response.Err(w, http.StatusInternalServerError, response.CodeInternal, "Authentication failed", requestID)
				return
			}
			if !member {
				response.Err(w, http.StatusForbidden, response.CodeForbidden, "Not a member of this organization", requestID)
				return
			}

			ctx := context.WithValue(r.Context(), sessionKey, sess)
			ctx = context.WithValue(ctx, orgKey, o)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession retrieves the authenticated session from the request context.
func GetSession(ctx context.Context) *session.Session {
	if s, ok := ctx.Value(sessionKey).(*session.Session); ok {
		return s
	}
	return nil
}

// GetOrg retrieves the resolved organization from the request context.
func GetOrg(ctx context.Context) *org.Organization {
	if o, ok := ctx.Value(orgKey).(*org.Organization); ok {
		return o
	}
	return nil
}
