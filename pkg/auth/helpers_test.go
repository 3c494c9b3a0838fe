package auth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/boogy/drinks-warden/pkg/autherr"
	"github.com/boogy/drinks-warden/pkg/config"
	"github.com/boogy/drinks-warden/pkg/jwks"
	"github.com/boogy/drinks-warden/pkg/validator"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://tenant.auth0.com/"
	testAudience = "drinks"
	testKID      = "kid-1"
)

type staticKeys struct {
	key jwks.SigningKey
}

func (s staticKeys) GetSigningKey(_ context.Context, kid string) (jwks.SigningKey, error) {
	if kid != s.key.KeyID {
		return jwks.SigningKey{}, autherr.ErrKeyNotFound
	}
	return s.key, nil
}

// issuer signs test tokens and verifies them with a real TokenValidator.
type issuer struct {
	priv      *rsa.PrivateKey
	validator *validator.TokenValidator
}

func newIssuer(t *testing.T) *issuer {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	cfg := &config.Config{Issuer: testIssuer, Audience: testAudience, Algorithms: []string{"RS256"}}
	keys := staticKeys{key: jwks.SigningKey{KeyID: testKID, KeyType: "RSA", Algorithm: "RS256", PublicKey: &priv.PublicKey}}

	return &issuer{priv: priv, validator: validator.NewTokenValidator(cfg, keys)}
}

// token returns a valid token; a nil perms omits the permissions claim.
func (i *issuer) token(t *testing.T, perms []string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"iss": testIssuer,
		"sub": "auth0|manager",
		"aud": testAudience,
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	if perms != nil {
		claims["permissions"] = perms
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = testKID
	signed, err := tok.SignedString(i.priv)
	require.NoError(t, err)
	return signed
}

func (i *issuer) claims(t *testing.T, perms []string) *validator.Claims {
	t.Helper()
	c, err := i.validator.Validate(context.Background(), i.token(t, perms))
	require.NoError(t, err)
	return c
}
