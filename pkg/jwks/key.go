package jwks

import (
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/boogy/drinks-warden/pkg/types"
)

// MinRSAKeyBits is the smallest modulus accepted for a signing key.
const MinRSAKeyBits = 2048

// SigningKey is a verified, usable public key taken from a key set.
type SigningKey struct {
	KeyID     string
	KeyType   string
	Algorithm string // empty when the key set does not pin one
	Use       string
	PublicKey *rsa.PublicKey
}

// ParseSigningKey builds the RSA public key described by a JWK.
func ParseSigningKey(jwk types.JSONWebKey) (SigningKey, error) {
	if jwk.KeyType != "RSA" {
		return SigningKey{}, fmt.Errorf("unsupported key type %q", jwk.KeyType)
	}
	if jwk.Use != "" && jwk.Use != "sig" {
		return SigningKey{}, fmt.Errorf("key %q is not a signing key (use=%q)", jwk.KeyID, jwk.Use)
	}

	nBytes, err := decodeSegment(jwk.N)
	if err != nil {
		return SigningKey{}, fmt.Errorf("failed to decode modulus: %w", err)
	}
	eBytes, err := decodeSegment(jwk.E)
	if err != nil {
		return SigningKey{}, fmt.Errorf("failed to decode exponent: %w", err)
	}

	n := new(big.Int).SetBytes(nBytes)
	if n.BitLen() < MinRSAKeyBits {
		return SigningKey{}, fmt.Errorf("modulus too small: %d bits", n.BitLen())
	}

	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() < 3 || e.Int64() > 1<<31-1 {
		return SigningKey{}, errors.New("invalid public exponent")
	}

	return SigningKey{
		KeyID:     jwk.KeyID,
		KeyType:   jwk.KeyType,
		Algorithm: jwk.Algorithm,
		Use:       jwk.Use,
		PublicKey: &rsa.PublicKey{N: n, E: int(e.Int64())},
	}, nil
}

// decodeSegment accepts base64url with or without padding, as some providers pad.
func decodeSegment(s string) ([]byte, error) {
	if s == "" {
		return nil, errors.New("empty value")
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
