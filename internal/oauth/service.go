// Package oauth implements the device-authorization grant this product uses
// as an OAuth client of the AI coding provider that powers the PR worker.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/echofeed/echofeed/internal/crypto"
)

// Status is the flow state reported to the admin UI on each poll.
type Status struct {
	State               string
	UserCode            string
	VerificationURI     string
	DeviceAuthExpiresAt *time.Time
	IntervalSeconds     int
	AccountID           string
}

// Service drives the per-organization device-flow state machine:
// not_connected → pending → (active | expired | denied), with pending
// reachable from itself on every poll until the device code expires. Safe to
// poll concurrently; once active, polling short-circuits without a provider
// call.
type Service struct {
	repo          Repository
	provider      ProviderClient
	encryptionKey []byte
}

// NewService creates a new oauth Service.
func NewService(repo Repository, provider ProviderClient, encryptionKey []byte) *Service {
	return &Service{repo: repo, provider: provider, encryptionKey: encryptionKey}
}

// Connect initiates a device-authorization grant and persists the pending
// state, invalidating any previous connection for the pair.
func (s *Service) Connect(ctx context.Context, orgID, provider string) (*Status, error) {
	auth, err := s.provider.Authorize(ctx)
	if err != nil {
		return nil, fmt.Errorf("initiating device authorization: %w", err)
	}

	expiresAt := time.Now().UTC().Add(time.Duration(auth.ExpiresIn) * time.Second)
	conn := &Connection{
		OrganizationID:      orgID,
		Provider:            provider,
		Status:              StatusPending,
		DeviceAuthID:        &auth.DeviceCode,
		UserCode:            &auth.UserCode,
		VerificationURI:     &auth.VerificationURI,
		DeviceAuthExpiresAt: &expiresAt,
		IntervalSeconds:     &auth.Interval,
	}
	if err := s.repo.Upsert(ctx, conn); err != nil {
		return nil, err
	}

	return pendingStatus(conn), nil
}

// Poll advances the state machine one step. Active rows and locally-expired
// device codes return without a network call; otherwise the provider's token
// endpoint is asked once and its answer mapped onto the flow states. Provider
// transport errors bubble up for the caller's next tick, they are not retried
// here.
func (s *Service) Poll(ctx context.Context, orgID, provider string) (*Status, error) {
	conn, err := s.repo.Get(ctx, orgID, provider)
	if err != nil {
		if errors.Is(err, ErrConnectionNotFound) {
			return &Status{State: StateNotConnected}, nil
		}
		return nil, err
	}

	if conn.Status == StatusActive {
		st := &Status{State: StateActive}
		if conn.AccountID != nil {
			st.AccountID = *conn.AccountID
		}
		return st, nil
	}

	if conn.DeviceAuthExpiresAt != nil && time.Now().UTC().After(*conn.DeviceAuthExpiresAt) {
		return &Status{State: StateExpired}, nil
	}
	if conn.DeviceAuthID == nil {
		return &Status{State: StateExpired}, nil
	}

	res, err := s.provider.Token(ctx, *conn.DeviceAuthID)
	if err != nil {
		return nil, err
	}

	switch res.Outcome {
	case OutcomePending:
		return pendingStatus(conn), nil
	case OutcomeExpired:
		return &Status{State: StateExpired}, nil
	case OutcomeDenied:
		return &Status{State: StateDenied}, nil
	case OutcomeOK:
		return s.activate(ctx, conn, res)
	default:
		return nil, fmt.Errorf("unknown token outcome %q", res.Outcome)
	}
}

// Disconnect removes the connection and its stored tokens.
func (s *Service) Disconnect(ctx context.Context, orgID, provider string) error {
	return s.repo.Delete(ctx, orgID, provider)
}

func (s *Service) activate(ctx context.Context, conn *Connection, res *TokenResult) (*Status, error) {
	accessEnc, err := crypto.Encrypt(res.AccessToken, s.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encrypting access token: %w", err)
	}

	refreshEnc := ""
	if res.RefreshToken != "" {
		refreshEnc, err = crypto.Encrypt(res.RefreshToken, s.encryptionKey)
		if err != nil {
			return nil, fmt.Errorf("encrypting refresh token: %w", err)
		}
	}

	var tokenExpiresAt *time.Time
	if res.ExpiresIn > 0 {
		t := time.Now().UTC().Add(time.Duration(res.ExpiresIn) * time.Second)
		tokenExpiresAt = &t
	}

	accountID := accountIDFromIDToken(res.IDToken)

	if err := s.repo.Activate(ctx, conn.ID, accessEnc, refreshEnc, tokenExpiresAt, accountID); err != nil {
		return nil, err
	}

	return &Status{State: StateActive, AccountID: accountID}, nil
}

// accountIDFromIDToken pulls the subject out of the provider's id_token
// without verifying the provider's signature on it. The value is advisory,
// shown in the admin UI only; it is never an input to an authorization
// decision.
func accountIDFromIDToken(idToken string) string {
	if idToken == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return ""
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}

func pendingStatus(conn *Connection) *Status {
	st := &Status{State: StatePending, DeviceAuthExpiresAt: conn.DeviceAuthExpiresAt}
	if conn.UserCode != nil {
		st.UserCode = *conn.UserCode
	}
	if conn.VerificationURI != nil {
		st.VerificationURI = *conn.VerificationURI
	}
	if conn.IntervalSeconds != nil {
		st.IntervalSeconds = *conn.IntervalSeconds
	}
	return st
}
