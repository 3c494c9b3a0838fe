// Package auth guards protected operations: it extracts the bearer token,
// has it verified and enforces the permission an operation requires.
package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/boogy/drinks-warden/pkg/autherr"
)

// MaxTokenLength bounds the accepted token size.
const MaxTokenLength = 16 * 1024

// ExtractBearerToken returns the token from an "Authorization: Bearer <token>" header.
func ExtractBearerToken(h http.Header) (string, error) {
	value := h.Get("Authorization")
	if strings.TrimSpace(value) == "" {
		return "", autherr.ErrMissingHeader
	}

	parts := strings.Split(value, " ")
	if len(parts) != 2 {
		return "", autherr.Wrapf(autherr.ErrMalformedHeader, "expected 2 parts, got %d", len(parts))
	}
	if !strings.EqualFold(parts[0], "bearer") {
		return "", autherr.Wrapf(autherr.ErrMalformedHeader, "unsupported scheme %q", parts[0])
	}
	if parts[1] == "" {
		return "", autherr.Wrap(autherr.ErrMalformedHeader, fmt.Errorf("empty token"))
	}
	if len(parts[1]) > MaxTokenLength {
		return "", autherr.Wrapf(autherr.ErrMalformedHeader, "token exceeds %d bytes", MaxTokenLength)
	}

	return parts[1], nil
}
