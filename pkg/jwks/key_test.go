package jwks

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"testing"

	"github.com/boogy/drinks-warden/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rsaJWK(t *testing.T, bits int) types.JSONWebKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, bits)
	require.NoError(t, err)
	return types.JSONWebKey{
		KeyID:   "kid-1",
		KeyType: "RSA",
		Use:     "sig",
		N:       base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
		E:       base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
	}
}

func TestParseSigningKey(t *testing.T) {
	jwk := rsaJWK(t, 2048)

	key, err := ParseSigningKey(jwk)
	require.NoError(t, err)
	assert.Equal(t, "kid-1", key.KeyID)
	assert.Equal(t, 65537, key.PublicKey.E)
	assert.Equal(t, 2048, key.PublicKey.N.BitLen())

	padded := jwk
	padded.E = "AQAB=="
	_, err = ParseSigningKey(padded)
	assert.NoError(t, err)
}

func TestParseSigningKeyRejects(t *testing.T) {
	good := rsaJWK(t, 2048)

	tests := []struct {
		name   string
		mutate func(*types.JSONWebKey)
	}{
		{"wrong key type", func(k *types.JSONWebKey) { k.KeyType = "EC" }},
		{"encryption key", func(k *types.JSONWebKey) { k.Use = "enc" }},
		{"bad modulus", func(k *types.JSONWebKey) { k.N = "!!not-base64!!" }},
		{"missing exponent", func(k *types.JSONWebKey) { k.E = "" }},
		{"exponent one", func(k *types.JSONWebKey) { k.E = "AQ" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jwk := good
			tt.mutate(&jwk)
			_, err := ParseSigningKey(jwk)
			assert.Error(t, err)
		})
	}
}

func TestParseSigningKeyRejectsShortModulus(t *testing.T) {
	_, err := ParseSigningKey(rsaJWK(t, 1024))
	assert.Error(t, err)
}
