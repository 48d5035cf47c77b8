package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
)

// UserTracker is a store we can use to retrieve and track users
type UserTracker interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	TrackAttemptedLogin(ctx context.Context, user *User) error
}

// UserProvider verifies credentials against the store
type UserProvider struct {
	store           UserTracker
	logger          Logger
	requireVerified bool
}

// MaxLoginAttempts is the maximum number of attempts a user gets
// in a period
var MaxLoginAttempts = 5

// CoolDownPeriod is the period in which we enforce a cool down
var CoolDownPeriod = "24h"

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserTracker) *UserProvider {
	return &UserProvider{
		store:           store,
		logger:          defLogger{},
		requireVerified: true,
	}
}

// WithRequireVerified controls whether an unverified email blocks login
func (u *UserProvider) WithRequireVerified(required bool) *UserProvider {
	u.requireVerified = required
	return u
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// VerifyCredentials finds the user by email and compares the password.
// An unknown email and a wrong password produce the exact same error; an
// unverified email is reported distinctly since the product wants clients
// to offer a "resend verification" action.
func (u *UserProvider) VerifyCredentials(ctx context.Context, email, password string) (*User, error) {
	user, err := u.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if user == nil {
		return nil, ErrMismatchedHashAndPassword
	}

	if u.requireVerified && !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	if user.LoginAttemptAt != nil {
		elapsed, err := cooldownElapsed(*user.LoginAttemptAt, CoolDownPeriod)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to calculate login attempt cooldown")
		}

		if elapsed {
			user.LoginAttempts = 0
		}
	}

	// if we have too many attempts in the given window, cool off!
	if user.LoginAttempts > MaxLoginAttempts {
		return nil, ErrTooManyLoginAttempts
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if err2 := u.store.TrackAttemptedLogin(ctx, user); err2 != nil {
			u.logger.Error("failed to track login attempt: %s", err2)
		}

		return nil, ErrMismatchedHashAndPassword
	}

	if err := user.Roles.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryAuth, "user has an unknown or invalid role").
			WithMetadata(map[string]any{"user_id": user.ID.String()})
	}

	return user, nil
}

// cooldownElapsed reports whether the last attempt happened longer ago than
// the window. The window uses time.ParseDuration syntax, e.g. "24h".
func cooldownElapsed(last time.Time, window string) (bool, error) {
	d, err := time.ParseDuration(window)
	if err != nil {
		return false, err
	}
	return time.Since(last) > d, nil
}
