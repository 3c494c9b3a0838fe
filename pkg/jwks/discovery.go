package jwks

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
)

// DiscoverJWKSURL reads jwks_uri from the issuer's OpenID configuration
// document. The document must name exactly the given issuer.
func DiscoverJWKSURL(ctx context.Context, issuer string, client *http.Client) (string, error) {
	if client != nil {
		ctx = oidc.ClientContext(ctx, client)
	}

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return "", fmt.Errorf("oidc discovery for %s: %w", issuer, err)
	}

	var meta struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := provider.Claims(&meta); err != nil {
		return "", fmt.Errorf("decode discovery document: %w", err)
	}
	if meta.JWKSURI == "" {
		return "", errors.New("discovery document has no jwks_uri")
	}
	return meta.JWKSURI, nil
}
