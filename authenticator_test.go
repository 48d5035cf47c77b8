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

func TestLoginIssuesTokenPairAndStoresRefresh(t *testing.T) {
	ctx := context.Background()
	user := newTestUser()
	expiresAt := time.Now().Add(7 * 24 * time.Hour)

	verifier := new(MockVerifier)
	verifier.On("VerifyCredentials", ctx, user.Email, "pass").Return(user, nil)

	tokens := new(MockTokenService)
	tokens.On("IssueAccessToken", mock.Anything).Return("access.jwt", nil)
	tokens.On("IssueRefreshToken", mock.Anything).Return("refresh.jwt", expiresAt, nil)

	users := new(MockUsers)
	users.On("StoreRefreshToken", ctx, user.ID, "refresh.jwt").Return(nil)

	sink := &recordingSink{}

	auther := auth.NewAuthenticator(verifier, users, tokens).WithActivitySink(sink)

	result, err := auther.Login(ctx, user.Email, "pass")
	require.NoError(t, err)

	assert.Equal(t, "access.jwt", result.AccessToken)
	assert.Equal(t, "refresh.jwt", result.RefreshToken)
	assert.Equal(t, expiresAt, result.RefreshExpiresAt)
	assert.Equal(t, "refresh.jwt", result.User.RefreshToken)
	assert.NotNil(t, result.User.LoggedInAt)

	assert.True(t, sink.has(auth.ActivityEventLoginSuccess))
	users.AssertExpectations(t)
	tokens.AssertExpectations(t)
}

func TestLoginRejectionRecordsFailure(t *testing.T) {
	ctx := context.Background()

	verifier := new(MockVerifier)
	verifier.On("VerifyCredentials", ctx, "a@b.com", "bad").
		Return(nil, auth.ErrMismatchedHashAndPassword)

	sink := &recordingSink{}

	auther := auth.NewAuthenticator(verifier, new(MockUsers), new(MockTokenService)).
		WithActivitySink(sink)

	_, err := auther.Login(ctx, "a@b.com", "bad")
	require.Error(t, err)
	assert.Equal(t, auth.ErrMismatchedHashAndPassword, err)
	assert.True(t, sink.has(auth.ActivityEventLoginFailure))
}

func TestRefreshWithEmptyToken(t *testing.T) {
	auther := auth.NewAuthenticator(new(MockVerifier), new(MockUsers), new(MockTokenService))

	_, err := auther.Refresh(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, auth.ErrUnableToFindSession, err)
}

func TestRefreshIssuesNewAccessToken(t *testing.T) {
	ctx := context.Background()
	user := newTestUser()
	user.RefreshToken = "refresh.jwt"

	tokens := new(MockTokenService)
	tokens.On("ValidateRefreshToken", "refresh.jwt").
		Return(&auth.RefreshClaims{UID: user.ID.String()}, nil)
	tokens.On("IssueAccessToken", mock.Anything).Return("fresh.access", nil)

	users := new(MockUsers)
	users.On("GetByID", ctx, user.ID.String()).Return(user, nil)

	auther := auth.NewAuthenticator(new(MockVerifier), users, tokens)

	result, err := auther.Refresh(ctx, "refresh.jwt")
	require.NoError(t, err)
	assert.Equal(t, "fresh.access", result.AccessToken)
	assert.Equal(t, user.ID, result.User.ID)

	// the refresh token is not rotated
	tokens.AssertNotCalled(t, "IssueRefreshToken", mock.Anything)
}

func TestRefreshWithSupersededToken(t *testing.T) {
	ctx := context.Background()
	user := newTestUser()
	user.RefreshToken = "newer.refresh.jwt"

	tokens := new(MockTokenService)
	tokens.On("ValidateRefreshToken", "old.refresh.jwt").
		Return(&auth.RefreshClaims{UID: user.ID.String()}, nil)

	users := new(MockUsers)
	users.On("GetByID", ctx, user.ID.String()).Return(user, nil)

	sink := &recordingSink{}

	auther := auth.NewAuthenticator(new(MockVerifier), users, tokens).WithActivitySink(sink)

	_, err := auther.Refresh(ctx, "old.refresh.jwt")
	require.Error(t, err)
	assert.Equal(t, auth.ErrSessionRevoked, err)
	assert.True(t, sink.has(auth.ActivityEventSessionRevoked))
}

func TestRefreshForDeletedUser(t *testing.T) {
	ctx := context.Background()

	tokens := new(MockTokenService)
	tokens.On("ValidateRefreshToken", "refresh.jwt").
		Return(&auth.RefreshClaims{UID: "a4a4e0f3-0000-0000-0000-000000000000"}, nil)

	users := new(MockUsers)
	users.On("GetByID", ctx, mock.Anything).
		Return(nil, repository.NewRecordNotFound())

	auther := auth.NewAuthenticator(new(MockVerifier), users, tokens)

	_, err := auther.Refresh(ctx, "refresh.jwt")
	require.Error(t, err)
	assert.Equal(t, auth.ErrSessionRevoked, err)
}

func TestRefreshWithExpiredToken(t *testing.T) {
	tokens := new(MockTokenService)
	tokens.On("ValidateRefreshToken", "expired.jwt").
		Return(nil, auth.ErrTokenExpired)

	auther := auth.NewAuthenticator(new(MockVerifier), new(MockUsers), tokens)

	_, err := auther.Refresh(context.Background(), "expired.jwt")
	require.Error(t, err)
	assert.Equal(t, auth.ErrTokenExpired, err)
}

func TestLogoutClearsStoredToken(t *testing.T) {
	ctx := context.Background()
	user := newTestUser()
	user.RefreshToken = "refresh.jwt"

	users := new(MockUsers)
	users.On("GetByRefreshToken", ctx, "refresh.jwt").Return(user, nil)
	users.On("ClearRefreshToken", ctx, user.ID).Return(nil)

	sink := &recordingSink{}

	auther := auth.NewAuthenticator(new(MockVerifier), users, new(MockTokenService)).
		WithActivitySink(sink)

	require.NoError(t, auther.Logout(ctx, "refresh.jwt"))
	assert.True(t, sink.has(auth.ActivityEventLogout))
	users.AssertExpectations(t)
}

func TestLogoutIsIdempotent(t *testing.T) {
	ctx := context.Background()

	users := new(MockUsers)
	users.On("GetByRefreshToken", ctx, "unknown.jwt").
		Return(nil, repository.NewRecordNotFound())

	auther := auth.NewAuthenticator(new(MockVerifier), users, new(MockTokenService))

	// unknown token and missing token both succeed
	assert.NoError(t, auther.Logout(ctx, "unknown.jwt"))
	assert.NoError(t, auther.Logout(ctx, ""))
}
