package types

// JSONWebKey is a JSON web key as specified by RFC 7517.
type JSONWebKey struct {
	Algorithm string   `json:"alg,omitempty"`
	KeyID     string   `json:"kid,omitempty"`
	KeyType   string   `json:"kty,omitempty"`
	Use       string   `json:"use,omitempty"`
	N         string   `json:"n,omitempty"`   // RSA modulus
	E         string   `json:"e,omitempty"`   // RSA public exponent
	X5c       []string `json:"x5c,omitempty"` // X.509 certificate chain
	X5t       string   `json:"x5t,omitempty"` // X.509 certificate SHA-1 thumbprint
}

// JWKS represents a set of JSON Web Keys retrieved from a JWKS endpoint.
// A *JWKS handed out by a cache is shared between requests and must not be modified.
type JWKS struct {
	Keys []JSONWebKey `json:"keys"`
}

// Key returns the first key published under kid.
func (s *JWKS) Key(kid string) (JSONWebKey, bool) {
	if s == nil || kid == "" {
		return JSONWebKey{}, false
	}
	for _, k := range s.Keys {
		if k.KeyID == kid {
			return k, true
		}
	}
	return JSONWebKey{}, false
}

// KeyIDs lists the key identifiers in publication order.
func (s *JWKS) KeyIDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.Keys))
	for _, k := range s.Keys {
		ids = append(ids, k.KeyID)
	}
	return ids
}
