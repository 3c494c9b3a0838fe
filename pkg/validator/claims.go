package validator

import (
	"slices"
	"time"
)

// Claims is the verified content of an access token. Values are only
// produced by TokenValidator after the signature and the registered claims
// have been checked, and cannot be modified afterwards.
type Claims struct {
	issuer         string
	subject        string
	audience       []string
	expiresAt      time.Time
	issuedAt       time.Time
	permissions    []string
	hasPermissions bool
}

func (c *Claims) Issuer() string { return c.issuer }

func (c *Claims) Subject() string { return c.subject }

// Audience returns a copy of the aud claim.
func (c *Claims) Audience() []string { return slices.Clone(c.audience) }

func (c *Claims) ExpiresAt() time.Time { return c.expiresAt }

// IssuedAt is the zero time when the token carries no iat.
func (c *Claims) IssuedAt() time.Time { return c.issuedAt }

// Permissions returns a copy of the permissions claim.
func (c *Claims) Permissions() []string { return slices.Clone(c.permissions) }

// HasPermissions reports whether the token carries a permissions claim at
// all, even an empty one.
func (c *Claims) HasPermissions() bool { return c != nil && c.hasPermissions }

// HasPermission reports whether perm is granted, compared exactly.
func (c *Claims) HasPermission(perm string) bool {
	return c != nil && slices.Contains(c.permissions, perm)
}
