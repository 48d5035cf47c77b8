package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes surfaced to API clients alongside structured errors
const (
	TextCodeInvalidCreds      = "INVALID_CREDENTIALS"
	TextCodeEmailNotVerified  = "EMAIL_NOT_VERIFIED"
	TextCodeTooManyAttempts   = "TOO_MANY_ATTEMPTS"
	TextCodeEmptyPassword     = "EMPTY_PASSWORD"
	TextCodePasswordTooShort  = "PASSWORD_TOO_SHORT"
	TextCodeDuplicateIdentity = "DUPLICATE_IDENTITY"
	TextCodeInvalidRole       = "INVALID_ROLE"
	TextCodeSessionNotFound   = "SESSION_NOT_FOUND"
	TextCodeSessionRevoked    = "SESSION_REVOKED"
	TextCodeTokenExpired      = "TOKEN_EXPIRED"
	TextCodeTokenMalformed    = "TOKEN_MALFORMED"
	TextCodeAlreadyVerified   = "ALREADY_VERIFIED"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrMismatchedHashAndPassword covers both an unknown email and a wrong
// password. The message is deliberately identical for the two cases so the
// endpoint cannot be used to enumerate accounts.
var ErrMismatchedHashAndPassword = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCreds)

// ErrEmailNotVerified rejects logins on accounts that have not confirmed
// their address. Unlike the credential error this one does leak verification
// state, which is a product requirement.
var ErrEmailNotVerified = goerrors.New("email address has not been verified", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeEmailNotVerified)

// ErrTooManyLoginAttempts is returned when the cool down window is active
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts, try again later", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts)

// ErrNoEmptyString rejects empty passwords before hashing
var ErrNoEmptyString = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeEmptyPassword)

// ErrPasswordTooShort enforces the store layer's minimum password length
var ErrPasswordTooShort = goerrors.New("password is too short", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodePasswordTooShort)

// ErrDuplicateIdentity flags a signup against an email or username that is
// already taken
var ErrDuplicateIdentity = goerrors.New("an account with that email or username already exists", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict).
	WithTextCode(TextCodeDuplicateIdentity)

// ErrInvalidRole rejects unknown role tags
var ErrInvalidRole = goerrors.New("unknown or invalid role", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodeInvalidRole)

// ErrUnableToFindSession is the error when a request carries no session cookie
var ErrUnableToFindSession = goerrors.New("unable to find session", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeSessionNotFound)

// ErrSessionRevoked is returned when a refresh token verifies but no longer
// matches the stored value: it has been superseded by a newer login, a
// logout, or a password reset.
var ErrSessionRevoked = goerrors.New("session has been revoked", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode(TextCodeSessionRevoked)

// ErrTokenExpired is returned for tokens past their expiry
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed covers bad signatures, wrong purposes, and undecodable
// tokens
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuthz).
	WithCode(goerrors.CodeForbidden).
	WithTextCode(TextCodeTokenMalformed)

// ErrAlreadyVerified rejects a verification request for an account that is
// already verified
var ErrAlreadyVerified = goerrors.New("email address is already verified", goerrors.CategoryConflict).
	WithCode(goerrors.CodeConflict).
	WithTextCode(TextCodeAlreadyVerified)

// withMetadata attaches metadata to a clone of a shared error var. The vars
// above are package globals; WithMetadata mutates its receiver, so attaching
// request data directly would race and leak between requests. The clone keeps
// the original as Source so errors.Is still matches.
func withMetadata(base *goerrors.Error, meta map[string]any) *goerrors.Error {
	clone := base.Clone()
	if clone == nil {
		return base
	}
	clone.Source = base
	return clone.WithMetadata(meta)
}

// IsTokenExpiredError will check for expired tokens, structured or not
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
