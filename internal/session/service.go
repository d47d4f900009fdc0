package session

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Service issues sessions and builds the matching first-party cookie.
type Service struct {
	repo         Repository
	ttl          time.Duration
	cookieDomain string
	cookieSecure bool
}

// NewService creates a new session Service.
func NewService(repo Repository, ttl time.Duration, cookieDomain string, cookieSecure bool) *Service {
	return &Service{
		repo:         repo,
		ttl:          ttl,
		cookieDomain: cookieDomain,
		cookieSecure: cookieSecure,
	}
}

// Issue creates a session row of the given type for the user, scoped to one
// organization.
func (s *Service) Issue(ctx context.Context, userID, orgID, sessionType, authMethod string) (*Session, error) {
	sess := &Session{
		UserID:               userID,
		ActiveOrganizationID: orgID,
		Type:                 sessionType,
		AuthMethod:           authMethod,
		ExpiresAt:            time.Now().UTC().Add(s.ttl),
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("issuing session: %w", err)
	}
	return sess, nil
}

// Get resolves an unexpired session by ID.
func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	return s.repo.GetByID(ctx, id)
}

// Revoke deletes a session row. Revoking an already-gone session is not an
// error.
func (s *Service) Revoke(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Cookie builds the Set-Cookie value for a session. HttpOnly always;
// SameSite=Lax because the cookie is only ever set on same-origin endpoints
// (the cross-origin embed path uses bearer tokens instead).
func (s *Service) Cookie(sess *Session) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    sess.ID,
		Path:     "/",
		Domain:   s.cookieDomain,
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie builds the Set-Cookie value that removes the session cookie.
func (s *Service) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Domain:   s.cookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
