package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-repository-bun"
	auth "github.com/hoteldesk/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct horse battery staple"

func newVerifiableUser(t *testing.T) *auth.User {
	t.Helper()

	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)

	user := newTestUser()
	user.PasswordHash = hash
	return user
}

func TestVerifyCredentialsSuccess(t *testing.T) {
	ctx := context.Background()
	user := newVerifiableUser(t)

	store := new(MockUserTracker)
	store.On("GetByEmail", ctx, user.Email).Return(user, nil)

	provider := auth.NewUserProvider(store)

	got, err := provider.VerifyCredentials(ctx, user.Email, testPassword)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	store.AssertExpectations(t)
	store.AssertNotCalled(t, "TrackAttemptedLogin", mock.Anything, mock.Anything)
}

func TestVerifyCredentialsUnknownEmail(t *testing.T) {
	ctx := context.Background()

	store := new(MockUserTracker)
	store.On("GetByEmail", ctx, "nobody@example.com").
		Return(nil, repository.NewRecordNotFound())

	provider := auth.NewUserProvider(store)

	_, err := provider.VerifyCredentials(ctx, "nobody@example.com", "whatever-pass")
	require.Error(t, err)
	// unknown email reads exactly like a wrong password
	assert.Equal(t, auth.ErrMismatchedHashAndPassword, err)
}

func TestVerifyCredentialsWrongPassword(t *testing.T) {
	ctx := context.Background()
	user := newVerifiableUser(t)

	store := new(MockUserTracker)
	store.On("GetByEmail", ctx, user.Email).Return(user, nil)
	store.On("TrackAttemptedLogin", ctx, user).Return(nil)

	provider := auth.NewUserProvider(store)

	_, err := provider.VerifyCredentials(ctx, user.Email, "not the password")
	require.Error(t, err)
	assert.Equal(t, auth.ErrMismatchedHashAndPassword, err)

	store.AssertExpectations(t)
}

func TestVerifyCredentialsUnverifiedEmail(t *testing.T) {
	ctx := context.Background()
	user := newVerifiableUser(t)
	user.EmailVerified = false

	store := new(MockUserTracker)
	store.On("GetByEmail", ctx, user.Email).Return(user, nil)

	provider := auth.NewUserProvider(store)

	_, err := provider.VerifyCredentials(ctx, user.Email, testPassword)
	require.Error(t, err)
	assert.Equal(t, auth.ErrEmailNotVerified, err)
}

func TestVerifyCredentialsUnverifiedEmailAllowed(t *testing.T) {
	ctx := context.Background()
	user := newVerifiableUser(t)
	user.EmailVerified = false

	store := new(MockUserTracker)
	store.On("GetByEmail", ctx, user.Email).Return(user, nil)

	provider := auth.NewUserProvider(store).WithRequireVerified(false)

	got, err := provider.VerifyCredentials(ctx, user.Email, testPassword)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestVerifyCredentialsTooManyAttempts(t *testing.T) {
	ctx := context.Background()
	user := newVerifiableUser(t)
	recent := time.Now().Add(-time.Minute)
	user.LoginAttemptAt = &recent
	user.LoginAttempts = auth.MaxLoginAttempts + 1

	store := new(MockUserTracker)
	store.On("GetByEmail", ctx, user.Email).Return(user, nil)

	provider := auth.NewUserProvider(store)

	_, err := provider.VerifyCredentials(ctx, user.Email, testPassword)
	require.Error(t, err)
	assert.Equal(t, auth.ErrTooManyLoginAttempts, err)
}

func TestVerifyCredentialsCooldownExpiredResetsAttempts(t *testing.T) {
	ctx := context.Background()
	user := newVerifiableUser(t)
	stale := time.Now().Add(-48 * time.Hour)
	user.LoginAttemptAt = &stale
	user.LoginAttempts = auth.MaxLoginAttempts + 10

	store := new(MockUserTracker)
	store.On("GetByEmail", ctx, user.Email).Return(user, nil)

	provider := auth.NewUserProvider(store)

	got, err := provider.VerifyCredentials(ctx, user.Email, testPassword)
	require.NoError(t, err)
	assert.Equal(t, 0, got.LoginAttempts)
}

func TestVerifyCredentialsInvalidCooldownWindow(t *testing.T) {
	ctx := context.Background()
	user := newVerifiableUser(t)
	recent := time.Now().Add(-time.Minute)
	user.LoginAttemptAt = &recent

	store := new(MockUserTracker)
	store.On("GetByEmail", ctx, user.Email).Return(user, nil)

	original := auth.CoolDownPeriod
	auth.CoolDownPeriod = "not a duration"
	defer func() { auth.CoolDownPeriod = original }()

	provider := auth.NewUserProvider(store)

	_, err := provider.VerifyCredentials(ctx, user.Email, testPassword)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cooldown")
}

func TestVerifyCredentialsInvalidStoredRole(t *testing.T) {
	ctx := context.Background()
	user := newVerifiableUser(t)
	user.Roles = auth.RoleList{auth.Role("banana")}

	store := new(MockUserTracker)
	store.On("GetByEmail", ctx, user.Email).Return(user, nil)

	provider := auth.NewUserProvider(store)

	_, err := provider.VerifyCredentials(ctx, user.Email, testPassword)
	require.Error(t, err)
}
