// Package identity implements the trust core's sign-in flows: verifying
// HMAC-signed claims from host backends, the cross-origin embed bridge, and
// the rules that keep identified visitors away from admin accounts.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/echofeed/echofeed/internal/apikey"
	"github.com/echofeed/echofeed/internal/crypto"
	"github.com/echofeed/echofeed/internal/org"
	"github.com/echofeed/echofeed/internal/session"
	"github.com/echofeed/echofeed/internal/user"
)

// ErrStaleTimestamp is returned when a claim's timestamp falls outside the
// freshness window, in either direction.
var ErrStaleTimestamp = errors.New("timestamp outside accepted window")

// ErrBadSignature is returned when a claim's HMAC does not verify.
var ErrBadSignature = errors.New("signature verification failed")

// ErrAdminBlocked is returned when an organization member's account is
// presented on an external path. Staff accounts must never receive an
// identified session; this is a privilege boundary, not a data error.
var ErrAdminBlocked = errors.New("account not eligible for external sign-in")

// Config carries the crypto material and windows the flows operate under.
type Config struct {
	EncryptionKey   []byte
	TokenSecret     []byte
	TimestampMaxAge time.Duration
	AuthTokenTTL    time.Duration
}

// Service runs the external sign-in flow and the embed identify/session
// bridge. Stateless; every call is a single fail-fast pass over its gates.
type Service struct {
	orgs     org.Repository
	users    user.Repository
	sessions *session.Service
	keys     *apikey.Service
	cfg      Config
}

// NewService creates a new identity Service.
func NewService(orgs org.Repository, users user.Repository, sessions *session.Service, keys *apikey.Service, cfg Config) *Service {
	return &Service{orgs: orgs, users: users, sessions: sessions, keys: keys, cfg: cfg}
}

// SignInInput is the body a host backend posts, signed with its tenant
// secret.
type SignInInput struct {
	ExternalID       string
	Email            string
	Name             string
	Avatar           *string
	Timestamp        int64
	OrganizationSlug string
	Signature        string
}

// SignIn verifies a signed identity claim and issues an identified session.
// Gates run in order and fail fast with no partial state: timestamp, org
// resolution, signature, user resolution, link upsert, session. Verification
// failures never touch persistence.
func (s *Service) SignIn(ctx context.Context, in SignInInput) (*session.Session, *user.User, error) {
	if !crypto.TimestampValid(in.Timestamp, s.cfg.TimestampMaxAge, time.Now().UTC()) {
		return nil, nil, ErrStaleTimestamp
	}

	o, err := s.orgs.GetBySlug(ctx, in.OrganizationSlug)
	if err != nil {
		return nil, nil, err
	}

	secret, err := crypto.Decrypt(o.SecretKeyEnc, s.cfg.EncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("decrypting organization secret: %w", err)
	}

	claim := crypto.Claim{
		ExternalID:       in.ExternalID,
		Email:            in.Email,
		Name:             in.Name,
		Timestamp:        in.Timestamp,
		OrganizationSlug: in.OrganizationSlug,
	}
	if !crypto.VerifyClaim(claim, in.Signature, []byte(secret)) {
		return nil, nil, ErrBadSignature
	}

	u, err := s.resolveUser(ctx, o, in.ExternalID, in.Email, in.Name, in.Avatar)
	if err != nil {
		return nil, nil, err
	}

	sess, err := s.sessions.Issue(ctx, u.ID, o.ID, session.TypeIdentified, session.MethodExternal)
	if err != nil {
		return nil, nil, err
	}

	return sess, u, nil
}

// IdentifyInput is the body a host frontend posts from inside the embed
// iframe, authenticated by API key and optionally by an HMAC+timestamp pair.
type IdentifyInput struct {
	ExternalID       string
	Email            string
	Name             string
	Avatar           *string
	HMAC             string
	Timestamp        *int64
	OrganizationSlug string
}

// IdentifyResult is what the embed receives in place of a cookie: a sealed
// bearer token plus the resolved user.
type IdentifyResult struct {
	Token            string
	User             *user.User
	OrganizationSlug string
}

// Identify is the cross-origin variant of SignIn. The caller runs inside a
// third-party iframe where cookies are unreliable, so instead of a session it
// receives an encrypted bearer token binding (user, org, externalID).
func (s *Service) Identify(ctx context.Context, rawKey string, in IdentifyInput) (*IdentifyResult, error) {
	_, o, err := s.keys.Validate(ctx, rawKey)
	if err != nil {
		return nil, err
	}

	if in.HMAC != "" || in.Timestamp != nil {
		if in.HMAC == "" || in.Timestamp == nil {
			return nil, ErrBadSignature
		}
		if !crypto.TimestampValid(*in.Timestamp, s.cfg.TimestampMaxAge, time.Now().UTC()) {
			return nil, ErrStaleTimestamp
		}

		secret, err := crypto.Decrypt(o.SecretKeyEnc, s.cfg.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("decrypting organization secret: %w", err)
		}

		slug := in.OrganizationSlug
		if slug == "" {
			slug = o.Slug
		}
		claim := crypto.Claim{
			ExternalID:       in.ExternalID,
			Email:            in.Email,
			Name:             in.Name,
			Timestamp:        *in.Timestamp,
			OrganizationSlug: slug,
		}
		if !crypto.VerifyClaim(claim, in.HMAC, []byte(secret)) {
			return nil, ErrBadSignature
		}
	}

	u, err := s.resolveUser(ctx, o, in.ExternalID, in.Email, in.Name, in.Avatar)
	if err != nil {
		return nil, err
	}

	token, err := crypto.SealToken(crypto.TokenClaims{
		Sub: u.ID,
		Oid: o.ID,
		Eid: in.ExternalID,
		Exp: time.Now().UTC().Add(s.cfg.AuthTokenTTL).Unix(),
	}, s.cfg.TokenSecret)
	if err != nil {
		return nil, fmt.Errorf("sealing auth token: %w", err)
	}

	return &IdentifyResult{Token: token, User: u, OrganizationSlug: o.Slug}, nil
}

// ExchangeSession turns a previously-issued bearer token into a first-party
// cookie session. Called same-origin after a navigation out of the iframe.
// The token remains valid for its full lifetime; exchange does not consume
// it.
func (s *Service) ExchangeSession(ctx context.Context, token string) (*session.Session, *user.User, error) {
	claims, err := crypto.OpenToken(token, s.cfg.TokenSecret, time.Now().UTC())
	if err != nil {
		return nil, nil, err
	}

	u, err := s.users.GetByID(ctx, claims.Sub)
	if err != nil {
		return nil, nil, err
	}

	sess, err := s.sessions.Issue(ctx, u.ID, claims.Oid, session.TypeIdentified, session.MethodExternal)
	if err != nil {
		return nil, nil, err
	}

	return sess, u, nil
}

// resolveUser finds or creates the local user for a verified claim, applies
// the admin-account block, refreshes profile fields, and upserts the
// identified-user link.
func (s *Service) resolveUser(ctx context.Context, o *org.Organization, externalID, email, name string, avatar *string) (*user.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if o.BlockAdminAccounts {
			member, err := s.orgs.HasAnyMembership(ctx, u.ID)
			if err != nil {
				return nil, fmt.Errorf("checking memberships: %w", err)
			}
			if member {
				return nil, ErrAdminBlocked
			}
		}

		newName := name
		if newName == "" {
			newName = u.Name
		}
		if err := s.users.UpdateProfile(ctx, u.ID, newName, avatar); err != nil {
			return nil, err
		}
		u.Name = newName
		if avatar != nil {
			u.Image = avatar
		}

	case errors.Is(err, user.ErrUserNotFound):
		newName := name
		if newName == "" {
			newName = fallbackName(email)
		}
		u = &user.User{Email: email, Name: newName, Image: avatar}
		if err := s.users.Create(ctx, u); err != nil {
			return nil, err
		}

	default:
		return nil, err
	}

	link := &user.Link{
		OrganizationID: o.ID,
		ExternalID:     externalID,
		UserID:         u.ID,
	}
	if err := s.users.UpsertLink(ctx, link); err != nil {
		return nil, err
	}

	return u, nil
}

// fallbackName derives a display name from the local part of an email
// address, keeping letters and digits and collapsing everything else to
// single spaces.
func fallbackName(email string) string {
	local, _, _ := strings.Cut(email, "@")

	var b strings.Builder
	lastSpace := true
	for _, r := range local {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
		} else if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}

	name := strings.TrimSpace(b.String())
	if name == "" {
		return "Guest"
	}
	return name
}
