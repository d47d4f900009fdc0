package session

import (
	"context"
	"errors"
)

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

// Repository provides operations on the sessions table.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	// GetByID returns the session only while it is unexpired.
	GetByID(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}
