// Package validator verifies bearer tokens issued by the configured identity provider.
package validator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/boogy/drinks-warden/pkg/autherr"
	"github.com/boogy/drinks-warden/pkg/config"
	"github.com/boogy/drinks-warden/pkg/jwks"
	"github.com/golang-jwt/jwt/v5"
)

// KeyProvider resolves a token's kid to a public key.
type KeyProvider interface {
	GetSigningKey(ctx context.Context, kid string) (jwks.SigningKey, error)
}

// tokenClaims is the wire form of the access token payload.
type tokenClaims struct {
	jwt.RegisteredClaims
	Permissions json.RawMessage `json:"permissions,omitempty"`
}

type TokenValidator struct {
	ExpectedIssuer   string
	ExpectedAudience string
	Algorithm        string

	keys   KeyProvider
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a TokenValidator
type Option func(*TokenValidator)

// WithClock replaces the time source used for exp checks.
func WithClock(now func() time.Time) Option {
	return func(v *TokenValidator) { v.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(v *TokenValidator) {
		if l != nil {
			v.logger = l
		}
	}
}

// NewTokenValidator expects a validated config.
func NewTokenValidator(cfg *config.Config, keys KeyProvider, opts ...Option) *TokenValidator {
	alg := config.SupportedAlgorithms[0]
	if len(cfg.Algorithms) > 0 {
		alg = cfg.Algorithms[0]
	}

	v := &TokenValidator{
		ExpectedIssuer:   cfg.Issuer,
		ExpectedAudience: cfg.Audience,
		Algorithm:        alg,
		keys:             keys,
		now:              time.Now,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate verifies token and returns its claims. Every error is an
// *autherr.Failure.
func (v *TokenValidator) Validate(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, autherr.Wrap(autherr.ErrMalformedToken, errors.New("empty token"))
	}

	// The header is untrusted until the signature checks out; it only selects the key.
	unverified, _, err := jwt.NewParser().ParseUnverified(token, &tokenClaims{})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenUnverifiable) {
			// unknown alg
			return nil, autherr.Wrap(autherr.ErrInvalidSignature, err)
		}
		return nil, autherr.Wrap(autherr.ErrMalformedToken, err)
	}

	kid, ok := unverified.Header["kid"].(string)
	if !ok || kid == "" {
		return nil, autherr.Wrap(autherr.ErrMalformedToken, errors.New("missing or invalid kid in token header"))
	}

	alg, _ := unverified.Header["alg"].(string)
	if alg != v.Algorithm {
		return nil, autherr.Wrapf(autherr.ErrInvalidSignature, "unexpected signing algorithm %q", alg)
	}

	key, err := v.keys.GetSigningKey(ctx, kid)
	if err != nil {
		if _, ok := autherr.As(err); ok {
			return nil, err
		}
		return nil, autherr.Wrap(autherr.ErrKeySetUnavailable, err)
	}
	if key.Algorithm != "" && key.Algorithm != v.Algorithm {
		return nil, autherr.Wrapf(autherr.ErrInvalidSignature, "key %q is published for %s", kid, key.Algorithm)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{v.Algorithm}),
		jwt.WithIssuer(v.ExpectedIssuer),
		jwt.WithAudience(v.ExpectedAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
		jwt.WithLeeway(0),
	)

	var claims tokenClaims
	parsed, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return key.PublicKey, nil
	})
	if err != nil {
		return nil, classify(err)
	}
	if !parsed.Valid {
		return nil, autherr.Wrap(autherr.ErrInvalidSignature, errors.New("token is invalid"))
	}

	return newClaims(&claims)
}

// classify maps parser errors onto failure reasons. Expiry wins over the
// other claim checks when several fail.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return autherr.Wrap(autherr.ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return autherr.Wrap(autherr.ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return autherr.Wrap(autherr.ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenInvalidIssuer),
		errors.Is(err, jwt.ErrTokenInvalidAudience),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued),
		errors.Is(err, jwt.ErrTokenInvalidClaims):
		return autherr.Wrap(autherr.ErrClaimMismatch, err)
	default:
		return autherr.Wrap(autherr.ErrInvalidSignature, err)
	}
}

func newClaims(tc *tokenClaims) (*Claims, error) {
	c := &Claims{
		issuer:   tc.Issuer,
		subject:  tc.Subject,
		audience: []string(tc.Audience),
	}
	if tc.ExpiresAt != nil {
		c.expiresAt = tc.ExpiresAt.Time
	}
	if tc.IssuedAt != nil {
		c.issuedAt = tc.IssuedAt.Time
	}

	raw := bytes.TrimSpace(tc.Permissions)
	if len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		var perms []string
		if err := json.Unmarshal(raw, &perms); err != nil {
			return nil, autherr.Wrap(autherr.ErrMalformedToken, fmt.Errorf("permissions claim: %w", err))
		}
		c.permissions = perms
		c.hasPermissions = true
	}

	return c, nil
}
