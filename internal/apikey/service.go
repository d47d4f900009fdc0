package apikey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/echofeed/echofeed/internal/org"
)

// MaxActiveKeys caps the number of active keys a single organization may hold.
const MaxActiveKeys = 10

// ErrInvalidKey is returned when a presented API key does not resolve to an
// active, unexpired key. The reason is deliberately not distinguished.
var ErrInvalidKey = errors.New("invalid or revoked API key")

// ErrQuotaExceeded is returned when an organization already holds the maximum
// number of active keys.
var ErrQuotaExceeded = errors.New("active API key quota exceeded")

// Service provides API key issuance and validation.
type Service struct {
	repo       Repository
	orgRepo    org.Repository
	bcryptCost int
}

// NewService creates a new API key Service.
func NewService(repo Repository, orgRepo org.Repository, bcryptCost int) *Service {
	return &Service{repo: repo, orgRepo: orgRepo, bcryptCost: bcryptCost}
}

// Create mints a new key for an organization. The returned raw key is shown
// to the caller once and is not recoverable afterwards.
func (s *Service) Create(ctx context.Context, orgID, name, description string, expiresAt *time.Time) (*Key, string, error) {
	active, err := s.repo.CountActive(ctx, orgID)
	if err != nil {
		return nil, "", fmt.Errorf("checking key quota: %w", err)
	}
	if active >= MaxActiveKeys {
		return nil, "", ErrQuotaExceeded
	}

	rawKey, err := Generate()
	if err != nil {
		return nil, "", err
	}
	hash, err := Hash(rawKey, s.bcryptCost)
	if err != nil {
		return nil, "", err
	}

	k := &Key{
		OrganizationID: orgID,
		Name:           name,
		Description:    description,
		Fingerprint:    Fingerprint(rawKey),
		SecretHash:     hash,
		Preview:        Preview(rawKey),
		IsActive:       true,
		ExpiresAt:      expiresAt,
	}
	if err := s.repo.Create(ctx, k); err != nil {
		return nil, "", err
	}

	return k, rawKey, nil
}

// List returns all keys for an organization. Raw keys are long gone; callers
// see previews only.
func (s *Service) List(ctx context.Context, orgID string) ([]Key, error) {
	return s.repo.ListByOrg(ctx, orgID)
}

// SetActive soft-revokes or re-enables a key. Re-enabling counts against the
// active quota.
func (s *Service) SetActive(ctx context.Context, orgID, keyID string, active bool) error {
	k, err := s.repo.GetByID(ctx, keyID)
	if err != nil {
		return err
	}
	if k.OrganizationID != orgID {
		return ErrKeyNotFound
	}

	if active && !k.IsActive {
		count, err := s.repo.CountActive(ctx, orgID)
		if err != nil {
			return fmt.Errorf("checking key quota: %w", err)
		}
		if count >= MaxActiveKeys {
			return ErrQuotaExceeded
		}
	}

	return s.repo.SetActive(ctx, keyID, active)
}

// Delete hard-deletes a key.
func (s *Service) Delete(ctx context.Context, orgID, keyID string) error {
	k, err := s.repo.GetByID(ctx, keyID)
	if err != nil {
		return err
	}
	if k.OrganizationID != orgID {
		return ErrKeyNotFound
	}
	return s.repo.Delete(ctx, keyID)
}

// Validate resolves a presented raw key to its record and owning
// organization. Lookup is by SHA-256 fingerprint; format, active flag and
// expiry are all checked before the organization is resolved. Every failure
// collapses to ErrInvalidKey.
func (s *Service) Validate(ctx context.Context, rawKey string) (*Key, *org.Organization, error) {
	if !FormatValid(rawKey) {
		return nil, nil, ErrInvalidKey
	}

	k, err := s.repo.GetByFingerprint(ctx, Fingerprint(rawKey))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, nil, ErrInvalidKey
		}
		return nil, nil, fmt.Errorf("looking up api key: %w", err)
	}

	if !k.IsActive || k.Expired(time.Now().UTC()) {
		return nil, nil, ErrInvalidKey
	}

	o, err := s.orgRepo.GetByID(ctx, k.OrganizationID)
	if err != nil {
		if errors.Is(err, org.ErrOrgNotFound) {
			return nil, nil, ErrInvalidKey
		}
		return nil, nil, fmt.Errorf("resolving key organization: %w", err)
	}

	if err := s.repo.TouchLastUsed(ctx, k.ID); err != nil {
		slog.Warn("failed to bump api key last_used_at", "keyId", k.ID, "error", err)
	}

	return k, o, nil
}
