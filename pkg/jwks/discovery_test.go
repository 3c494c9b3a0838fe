package jwks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockOIDC(t *testing.T, jwksURI string) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                                srv.URL + "/",
			"authorization_endpoint":                srv.URL + "/authorize",
			"token_endpoint":                        srv.URL + "/oauth/token",
			"jwks_uri":                              jwksURI,
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestDiscoverJWKSURL(t *testing.T) {
	srv := mockOIDC(t, "https://keys.example.com/jwks.json")

	got, err := DiscoverJWKSURL(context.Background(), srv.URL+"/", srv.Client())
	require.NoError(t, err)
	assert.Equal(t, "https://keys.example.com/jwks.json", got)
}

func TestDiscoverJWKSURLIssuerMismatch(t *testing.T) {
	srv := mockOIDC(t, "https://keys.example.com/jwks.json")

	// Discovery document names srv.URL+"/" which differs from the requested issuer
	_, err := DiscoverJWKSURL(context.Background(), srv.URL, nil)
	assert.Error(t, err)
}

func TestDiscoverJWKSURLMissingURI(t *testing.T) {
	srv := mockOIDC(t, "")

	_, err := DiscoverJWKSURL(context.Background(), srv.URL+"/", nil)
	assert.Error(t, err)
}
