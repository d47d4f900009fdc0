package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Token-endpoint outcomes, mapped from the provider's OAuth error codes.
const (
	OutcomeOK      = "ok"
	OutcomePending = "pending"
	OutcomeExpired = "expired"
	OutcomeDenied  = "denied"
)

// DeviceAuthorization is the provider's response to initiating the device
// flow. UserCode and VerificationURI are shown to the admin; DeviceCode is
// the server-side handle used for polling.
type DeviceAuthorization struct {
	DeviceCode      string
	UserCode        string
	VerificationURI string
	ExpiresIn       int
	Interval        int
}

// TokenResult is one poll of the provider's token endpoint. Outcome is always
// set; the token fields are populated only for OutcomeOK.
type TokenResult struct {
	Outcome      string
	AccessToken  string
	RefreshToken string
	IDToken      string
	ExpiresIn    int
}

// ProviderClient is the slice of an OAuth provider the device flow needs.
type ProviderClient interface {
	Authorize(ctx context.Context) (*DeviceAuthorization, error)
	Token(ctx context.Context, deviceCode string) (*TokenResult, error)
}

// HTTPProvider talks to a real provider over HTTP.
type HTTPProvider struct {
	ClientID      string
	DeviceAuthURL string
	TokenURL      string
	Client        *http.Client
}

// NewHTTPProvider creates a provider client with a bounded request timeout.
func NewHTTPProvider(clientID, deviceAuthURL, tokenURL string) *HTTPProvider {
	return &HTTPProvider{
		ClientID:      clientID,
		DeviceAuthURL: deviceAuthURL,
		TokenURL:      tokenURL,
		Client:        &http.Client{Timeout: 15 * time.Second},
	}
}

// Authorize calls the provider's device-authorization endpoint.
func (p *HTTPProvider) Authorize(ctx context.Context) (*DeviceAuthorization, error) {
	form := url.Values{}
	form.Set("client_id", p.ClientID)

	body, err := p.post(ctx, p.DeviceAuthURL, form)
	if err != nil {
		return nil, err
	}

	var result struct {
		DeviceCode      string `json:"device_code"`
		UserCode        string `json:"user_code"`
		VerificationURI string `json:"verification_uri"`
		ExpiresIn       int    `json:"expires_in"`
		Interval        int    `json:"interval"`
		Error           string `json:"error"`
		ErrorDesc       string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("invalid device authorization response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("provider error: %s: %s", result.Error, result.ErrorDesc)
	}

	if result.Interval < 5 {
		result.Interval = 5
	}

	return &DeviceAuthorization{
		DeviceCode:      result.DeviceCode,
		UserCode:        result.UserCode,
		VerificationURI: result.VerificationURI,
		ExpiresIn:       result.ExpiresIn,
		Interval:        result.Interval,
	}, nil
}

// Token polls the provider's token endpoint once. The grant's well-known
// error codes become outcomes; anything else is a real error surfaced to the
// caller to retry at the next poll tick.
func (p *HTTPProvider) Token(ctx context.Context, deviceCode string) (*TokenResult, error) {
	form := url.Values{}
	form.Set("client_id", p.ClientID)
	form.Set("device_code", deviceCode)
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:device_code")

	body, err := p.post(ctx, p.TokenURL, form)
	if err != nil {
		return nil, err
	}

	var result struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		IDToken      string `json:"id_token"`
		ExpiresIn    int    `json:"expires_in"`
		Error        string `json:"error"`
		ErrorDesc    string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("invalid token response: %w", err)
	}

	switch result.Error {
	case "":
		return &TokenResult{
			Outcome:      OutcomeOK,
			AccessToken:  result.AccessToken,
			RefreshToken: result.RefreshToken,
			IDToken:      result.IDToken,
			ExpiresIn:    result.ExpiresIn,
		}, nil
	case "authorization_pending", "slow_down":
		return &TokenResult{Outcome: OutcomePending}, nil
	case "expired_token":
		return &TokenResult{Outcome: OutcomeExpired}, nil
	case "access_denied":
		return &TokenResult{Outcome: OutcomeDenied}, nil
	default:
		return nil, fmt.Errorf("provider error: %s: %s", result.Error, result.ErrorDesc)
	}
}

func (p *HTTPProvider) post(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building provider request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling provider: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading provider response: %w", err)
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	return body, nil
}
