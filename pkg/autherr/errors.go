// Package autherr defines the authorization failures produced while guarding
// protected operations. Every failure is terminal for the request that
// produced it and renders as HTTP 401.
package autherr

import (
	"errors"
	"fmt"
	"net/http"
)

// Reason is the machine-readable classification of a failure.
type Reason string

const (
	ReasonMissingHeader           Reason = "missing_header"
	ReasonMalformedHeader         Reason = "malformed_header"
	ReasonMalformedToken          Reason = "malformed_token"
	ReasonKeyNotFound             Reason = "key_not_found"
	ReasonKeySetUnavailable       Reason = "key_set_unavailable"
	ReasonInvalidSignature        Reason = "invalid_signature"
	ReasonTokenExpired            Reason = "token_expired"
	ReasonClaimMismatch           Reason = "claim_mismatch"
	ReasonMissingPermissionsClaim Reason = "missing_permissions_claim"
	ReasonPermissionDenied        Reason = "permission_denied"
)

// Failure is a structured authorization error. The zero value is not useful;
// start from one of the Err* values and attach a cause with Wrap.
type Failure struct {
	Reason     Reason
	Message    string
	StatusCode int
	Err        error // underlying cause, logged but never rendered
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Reason, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Reason, f.Message)
}

func (f *Failure) Unwrap() error { return f.Err }

// Is reports whether target is a Failure with the same reason, so that
// errors.Is(err, autherr.ErrTokenExpired) matches wrapped copies.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	return ok && t.Reason == f.Reason
}

// Failures raised by the guard. Treat these as read-only.
var (
	ErrMissingHeader           = newFailure(ReasonMissingHeader, "JWT not found")
	ErrMalformedHeader         = newFailure(ReasonMalformedHeader, "Authorization header must be of the form 'Bearer <token>'")
	ErrMalformedToken          = newFailure(ReasonMalformedToken, "Authorization malformed")
	ErrKeyNotFound             = newFailure(ReasonKeyNotFound, "Unable to find the appropriate key")
	ErrKeySetUnavailable       = newFailure(ReasonKeySetUnavailable, "Unable to find the appropriate key")
	ErrInvalidSignature        = newFailure(ReasonInvalidSignature, "Unable to parse authentication token")
	ErrTokenExpired            = newFailure(ReasonTokenExpired, "Token expired")
	ErrClaimMismatch           = newFailure(ReasonClaimMismatch, "Please, check the audience and issuer")
	ErrMissingPermissionsClaim = newFailure(ReasonMissingPermissionsClaim, "Permission not found in JWT")
	ErrPermissionDenied        = newFailure(ReasonPermissionDenied, "Permission not found in JWT")
)

func newFailure(reason Reason, message string) *Failure {
	return &Failure{Reason: reason, Message: message, StatusCode: http.StatusUnauthorized}
}

// Wrap returns a copy of base carrying cause.
func Wrap(base *Failure, cause error) *Failure {
	f := *base
	f.Err = cause
	return &f
}

// Wrapf is Wrap with a formatted cause.
func Wrapf(base *Failure, format string, args ...any) *Failure {
	return Wrap(base, fmt.Errorf(format, args...))
}

// As extracts the Failure carried by err, if any.
func As(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
