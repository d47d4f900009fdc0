package oauth_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echofeed/echofeed/internal/crypto"
	"github.com/echofeed/echofeed/internal/oauth"
)

var encryptionKey = []byte("0123456789abcdef0123456789abcdef")

// --- Mocks ---

type mockConnRepo struct {
	conn        *oauth.Connection
	upsertCalls int
	activated   *activation
}

type activation struct {
	accessTokenEnc  string
	refreshTokenEnc string
	tokenExpiresAt  *time.Time
	accountID       string
}

func (m *mockConnRepo) Upsert(_ context.Context, c *oauth.Connection) error {
	m.upsertCalls++
	c.ID = "conn_1"
	m.conn = c
	return nil
}

func (m *mockConnRepo) Get(_ context.Context, orgID, provider string) (*oauth.Connection, error) {
	if m.conn == nil || m.conn.OrganizationID != orgID || m.conn.Provider != provider {
		return nil, oauth.ErrConnectionNotFound
	}
	return m.conn, nil
}

func (m *mockConnRepo) Activate(_ context.Context, id, accessEnc, refreshEnc string, tokenExpiresAt *time.Time, accountID string) error {
	m.activated = &activation{
		accessTokenEnc:  accessEnc,
		refreshTokenEnc: refreshEnc,
		tokenExpiresAt:  tokenExpiresAt,
		accountID:       accountID,
	}
	m.conn.Status = oauth.StatusActive
	m.conn.DeviceAuthID = nil
	m.conn.UserCode = nil
	m.conn.VerificationURI = nil
	m.conn.DeviceAuthExpiresAt = nil
	m.conn.IntervalSeconds = nil
	m.conn.AccessTokenEnc = &accessEnc
	m.conn.AccountID = &accountID
	return nil
}

func (m *mockConnRepo) Delete(_ context.Context, orgID, provider string) error {
	m.conn = nil
	return nil
}

type mockProvider struct {
	authorizeFn func(ctx context.Context) (*oauth.DeviceAuthorization, error)
	tokenFn     func(ctx context.Context, deviceCode string) (*oauth.TokenResult, error)
	tokenCalls  int
}

func (m *mockProvider) Authorize(ctx context.Context) (*oauth.DeviceAuthorization, error) {
	if m.authorizeFn != nil {
		return m.authorizeFn(ctx)
	}
	return &oauth.DeviceAuthorization{
		DeviceCode:      "dev-123",
		UserCode:        "WXYZ-ABCD",
		VerificationURI: "https://provider.example/activate",
		ExpiresIn:       900,
		Interval:        5,
	}, nil
}

func (m *mockProvider) Token(ctx context.Context, deviceCode string) (*oauth.TokenResult, error) {
	m.tokenCalls++
	if m.tokenFn != nil {
		return m.tokenFn(ctx, deviceCode)
	}
	return &oauth.TokenResult{Outcome: oauth.OutcomePending}, nil
}

func newService(repo *mockConnRepo, provider *mockProvider) *oauth.Service {
	return oauth.NewService(repo, provider, encryptionKey)
}

func connect(t *testing.T, svc *oauth.Service) {
	t.Helper()
	_, err := svc.Connect(context.Background(), "org_acme", "provider")
	require.NoError(t, err)
}

// unsignedIDToken builds a JWT-shaped token with the given subject and no
// signature, which is all the unverified decode path looks at.
func unsignedIDToken(sub string) string {
	enc := func(v any) string {
		b, _ := json.Marshal(v)
		return base64.RawURLEncoding.EncodeToString(b)
	}
	header := enc(map[string]string{"alg": "none", "typ": "JWT"})
	payload := enc(map[string]string{"sub": sub})
	return header + "." + payload + "."
}

// ===== Connect =====

func TestConnect_PersistsPending(t *testing.T) {
	t.Parallel()
	repo := &mockConnRepo{}
	svc := newService(repo, &mockProvider{})

	st, err := svc.Connect(context.Background(), "org_acme", "provider")
	require.NoError(t, err)

	assert.Equal(t, oauth.StatePending, st.State)
	assert.Equal(t, "WXYZ-ABCD", st.UserCode)
	assert.Equal(t, "https://provider.example/activate", st.VerificationURI)
	assert.Equal(t, 5, st.IntervalSeconds)

	require.NotNil(t, repo.conn)
	assert.Equal(t, oauth.StatusPending, repo.conn.Status)
	assert.Equal(t, "dev-123", *repo.conn.DeviceAuthID)
	assert.Nil(t, repo.conn.AccessTokenEnc, "initiation never carries tokens")
}

func TestConnect_ProviderDown(t *testing.T) {
	t.Parallel()
	repo := &mockConnRepo{}
	svc := newService(repo, &mockProvider{
		authorizeFn: func(context.Context) (*oauth.DeviceAuthorization, error) {
			return nil, errors.New("503 from provider")
		},
	})

	_, err := svc.Connect(context.Background(), "org_acme", "provider")
	require.Error(t, err)
	assert.Zero(t, repo.upsertCalls, "nothing persisted when initiation fails")
}

func TestConnect_ReInitiateResetsRow(t *testing.T) {
	t.Parallel()
	repo := &mockConnRepo{}
	svc := newService(repo, &mockProvider{})

	connect(t, svc)
	connect(t, svc)

	assert.Equal(t, 2, repo.upsertCalls)
	assert.Equal(t, oauth.StatusPending, repo.conn.Status)
}

// ===== Poll =====

func TestPoll_NoConnection(t *testing.T) {
	t.Parallel()
	provider := &mockProvider{}
	svc := newService(&mockConnRepo{}, provider)

	st, err := svc.Poll(context.Background(), "org_acme", "provider")
	require.NoError(t, err)
	assert.Equal(t, oauth.StateNotConnected, st.State)
	assert.Zero(t, provider.tokenCalls)
}

func TestPoll_AuthorizationPending(t *testing.T) {
	t.Parallel()
	repo := &mockConnRepo{}
	provider := &mockProvider{}
	svc := newService(repo, provider)
	connect(t, svc)

	st, err := svc.Poll(context.Background(), "org_acme", "provider")
	require.NoError(t, err)
	assert.Equal(t, oauth.StatePending, st.State)
	assert.Equal(t, "WXYZ-ABCD", st.UserCode)
	assert.Equal(t, 1, provider.tokenCalls)
}

func TestPoll_ProviderSaysExpired(t *testing.T) {
	t.Parallel()
	repo := &mockConnRepo{}
	svc := newService(repo, &mockProvider{
		tokenFn: func(context.Context, string) (*oauth.TokenResult, error) {
			return &oauth.TokenResult{Outcome: oauth.OutcomeExpired}, nil
		},
	})
	connect(t, svc)

	st, err := svc.Poll(context.Background(), "org_acme", "provider")
	require.NoError(t, err)
	assert.Equal(t, oauth.StateExpired, st.State)
}

func TestPoll_Denied(t *testing.T) {
	t.Parallel()
	repo := &mockConnRepo{}
	svc := newService(repo, &mockProvider{
		tokenFn: func(context.Context, string) (*oauth.TokenResult, error) {
			return &oauth.TokenResult{Outcome: oauth.OutcomeDenied}, nil
		},
	})
	connect(t, svc)

	st, err := svc.Poll(context.Background(), "org_acme", "provider")
	require.NoError(t, err)
	assert.Equal(t, oauth.StateDenied, st.State)
}

func TestPoll_LocalExpirySkipsNetwork(t *testing.T) {
	t.Parallel()
	repo := &mockConnRepo{}
	provider := &mockProvider{}
	svc := newService(repo, provider)
	connect(t, svc)

	past := time.Now().UTC().Add(-time.Minute)
	repo.conn.DeviceAuthExpiresAt = &past

	st, err := svc.Poll(context.Background(), "org_acme", "provider")
	require.NoError(t, err)
	assert.Equal(t, oauth.StateExpired, st.State)
	assert.Zero(t, provider.tokenCalls, "expired device codes are decided locally")
}

func TestPoll_ActiveShortCircuits(t *testing.T) {
	t.Parallel()
	repo := &mockConnRepo{}
	provider := &mockProvider{
		tokenFn: func(context.Context, string) (*oauth.TokenResult, error) {
			return &oauth.TokenResult{
				Outcome:     oauth.OutcomeOK,
				AccessToken: "at-secret",
				IDToken:     unsignedIDToken("acct-42"),
			}, nil
		},
	}
	svc := newService(repo, provider)
	connect(t, svc)

	st, err := svc.Poll(context.Background(), "org_acme", "provider")
	require.NoError(t, err)
	require.Equal(t, oauth.StateActive, st.State)
	require.Equal(t, 1, provider.tokenCalls)

	st, err = svc.Poll(context.Background(), "org_acme", "provider")
	require.NoError(t, err)
	assert.Equal(t, oauth.StateActive, st.State)
	assert.Equal(t, "acct-42", st.AccountID)
	assert.Equal(t, 1, provider.tokenCalls, "active rows never hit the provider again")
}

func TestPoll_SuccessEncryptsTokensAndClearsPendingFields(t *testing.T) {
	t.Parallel()
	repo := &mockConnRepo{}
	svc := newService(repo, &mockProvider{
		tokenFn: func(context.Context, string) (*oauth.TokenResult, error) {
			return &oauth.TokenResult{
				Outcome:      oauth.OutcomeOK,
				AccessToken:  "at-secret",
				RefreshToken: "rt-secret",
				IDToken:      unsignedIDToken("acct-42"),
				ExpiresIn:    3600,
			}, nil
		},
	})
	connect(t, svc)

	st, err := svc.Poll(context.Background(), "org_acme", "provider")
	require.NoError(t, err)
	assert.Equal(t, oauth.StateActive, st.State)
	assert.Equal(t, "acct-42", st.AccountID)

	require.NotNil(t, repo.activated)
	assert.Equal(t, "acct-42", repo.activated.accountID)
	require.NotNil(t, repo.activated.tokenExpiresAt)

	assert.NotEqual(t, "at-secret", repo.activated.accessTokenEnc, "tokens stored encrypted, never plaintext")
	access, err := crypto.Decrypt(repo.activated.accessTokenEnc, encryptionKey)
	require.NoError(t, err)
	assert.Equal(t, "at-secret", access)

	refresh, err := crypto.Decrypt(repo.activated.refreshTokenEnc, encryptionKey)
	require.NoError(t, err)
	assert.Equal(t, "rt-secret", refresh)

	assert.Nil(t, repo.conn.DeviceAuthID, "activation clears the device-flow fields")
}

func TestPoll_MalformedIDTokenIsNotFatal(t *testing.T) {
	t.Parallel()
	repo := &mockConnRepo{}
	svc := newService(repo, &mockProvider{
		tokenFn: func(context.Context, string) (*oauth.TokenResult, error) {
			return &oauth.TokenResult{
				Outcome:     oauth.OutcomeOK,
				AccessToken: "at-secret",
				IDToken:     "not-a-jwt",
			}, nil
		},
	})
	connect(t, svc)

	st, err := svc.Poll(context.Background(), "org_acme", "provider")
	require.NoError(t, err)
	assert.Equal(t, oauth.StateActive, st.State)
	assert.Empty(t, st.AccountID)
}

func TestPoll_ProviderTransportError(t *testing.T) {
	t.Parallel()
	repo := &mockConnRepo{}
	svc := newService(repo, &mockProvider{
		tokenFn: func(context.Context, string) (*oauth.TokenResult, error) {
			return nil, errors.New("connection refused")
		},
	})
	connect(t, svc)

	_, err := svc.Poll(context.Background(), "org_acme", "provider")
	require.Error(t, err)
	assert.Equal(t, oauth.StatusPending, repo.conn.Status, "a transport error leaves the row pending")
}

// ===== Disconnect =====

func TestDisconnect(t *testing.T) {
	t.Parallel()
	repo := &mockConnRepo{}
	svc := newService(repo, &mockProvider{})
	connect(t, svc)

	require.NoError(t, svc.Disconnect(context.Background(), "org_acme", "provider"))

	st, err := svc.Poll(context.Background(), "org_acme", "provider")
	require.NoError(t, err)
	assert.Equal(t, oauth.StateNotConnected, st.State)
}
