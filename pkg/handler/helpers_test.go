package handler

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/boogy/drinks-warden/pkg/auth"
	"github.com/boogy/drinks-warden/pkg/autherr"
	"github.com/boogy/drinks-warden/pkg/config"
	"github.com/boogy/drinks-warden/pkg/drinks"
	"github.com/boogy/drinks-warden/pkg/jwks"
	"github.com/boogy/drinks-warden/pkg/metrics"
	"github.com/boogy/drinks-warden/pkg/validator"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://tenant.auth0.com/"
	testAudience = "drinks"
	testKID      = "handler-kid"
)

type staticKeys struct{ key jwks.SigningKey }

func (s staticKeys) GetSigningKey(_ context.Context, kid string) (jwks.SigningKey, error) {
	if kid != s.key.KeyID {
		return jwks.SigningKey{}, autherr.ErrKeyNotFound
	}
	return s.key, nil
}

type testEnv struct {
	priv    *rsa.PrivateKey
	store   *drinks.Store
	metrics *metrics.Metrics
	router  http.Handler
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	cfg := &config.Config{Issuer: testIssuer, Audience: testAudience, Algorithms: []string{"RS256"}}
	keys := staticKeys{key: jwks.SigningKey{KeyID: testKID, KeyType: "RSA", PublicKey: &priv.PublicKey}}
	m := metrics.NewMetrics()
	guard := auth.NewGuard(validator.NewTokenValidator(cfg, keys), auth.WithMetrics(m), auth.WithLogger(quietLogger()))

	store := drinks.NewStore()
	title := "Water"
	_, err = store.Create(drinks.Input{Title: &title, Recipe: drinks.Recipe{{Name: "water", Color: "blue", Parts: 1}}})
	require.NoError(t, err)

	return &testEnv{
		priv:    priv,
		store:   store,
		metrics: m,
		router:  NewRouter(RouterDeps{Store: store, Guard: guard, Metrics: m}),
	}
}

func (e *testEnv) token(t *testing.T, perms ...string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":         testIssuer,
		"aud":         testAudience,
		"sub":         "auth0|barista",
		"exp":         time.Now().Add(time.Hour).Unix(),
		"permissions": perms,
	})
	tok.Header["kid"] = testKID
	s, err := tok.SignedString(e.priv)
	require.NoError(t, err)
	return s
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}
