package apikey

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned when an API key record is not found.
var ErrKeyNotFound = errors.New("api key not found")

// Repository provides operations on the api_keys table.
type Repository interface {
	Create(ctx context.Context, k *Key) error
	GetByID(ctx context.Context, id string) (*Key, error)
	GetByFingerprint(ctx context.Context, fingerprint string) (*Key, error)
	ListByOrg(ctx context.Context, orgID string) ([]Key, error)
	CountActive(ctx context.Context, orgID string) (int, error)
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
	TouchLastUsed(ctx context.Context, id string) error
}
