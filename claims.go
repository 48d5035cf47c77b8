package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenPurpose tags email action tokens so a token minted for one flow can
// never drive the other.
type TokenPurpose string

const (
	// PurposeVerifyEmail drives the email verification flow
	PurposeVerifyEmail TokenPurpose = "verify"
	// PurposeResetPassword drives the password reset flow
	PurposeResetPassword TokenPurpose = "reset"
)

// AccessClaims is the claim set carried by short lived access tokens. Access
// tokens are stateless: once issued they cannot be revoked before expiry.
type AccessClaims struct {
	jwt.RegisteredClaims
	UID   string   `json:"uid,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

// UserID returns the authenticated user's id
func (c *AccessClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// RoleList returns the claim roles as typed tags
func (c *AccessClaims) RoleList() RoleList {
	return ParseRoles(c.Roles...)
}

// HasAnyRole checks the claim roles against an allow list
func (c *AccessClaims) HasAnyRole(allow ...Role) bool {
	return c.RoleList().HasAny(allow...)
}

// Expires returns the expiration time
func (c *AccessClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// RefreshClaims is the claim set carried by refresh tokens. A refresh token
// is only honored while it equals the single value stored on the identity.
type RefreshClaims struct {
	jwt.RegisteredClaims
	UID string `json:"uid,omitempty"`
}

// UserID returns the subject user's id
func (c *RefreshClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// EmailActionClaims is the claim set embedded in emailed links for the
// verification and password reset flows.
type EmailActionClaims struct {
	jwt.RegisteredClaims
	Email   string       `json:"email,omitempty"`
	Purpose TokenPurpose `json:"purpose,omitempty"`
}

// UserID returns the subject user's id
func (c *EmailActionClaims) UserID() string {
	return c.RegisteredClaims.Subject
}
