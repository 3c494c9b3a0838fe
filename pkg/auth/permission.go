package auth

import (
	"errors"

	"github.com/boogy/drinks-warden/pkg/autherr"
	"github.com/boogy/drinks-warden/pkg/validator"
)

// CheckPermission requires claims to grant exactly the named permission.
func CheckPermission(required string, claims *validator.Claims) error {
	if !claims.HasPermissions() {
		return autherr.Wrap(autherr.ErrMissingPermissionsClaim, errors.New("token has no permissions claim"))
	}
	if !claims.HasPermission(required) {
		return autherr.Wrapf(autherr.ErrPermissionDenied, "%q not granted", required)
	}
	return nil
}
