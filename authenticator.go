package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// CredentialVerifier validates an email/password pair against the store
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, email, password string) (*User, error)
}

// Authenticator drives login, session refresh, and logout
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Refresh(ctx context.Context, rawRefreshToken string) (*RefreshResult, error)
	Logout(ctx context.Context, rawRefreshToken string) error
}

// LoginResult carries the outcome of a successful login. The refresh token
// travels back to the client only through the session cookie, never the
// response body.
type LoginResult struct {
	User             *User
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// RefreshResult carries a freshly minted access token. The refresh token is
// not rotated on refresh, so there is nothing else to return.
type RefreshResult struct {
	User        *User
	AccessToken string
}

type Auther struct {
	verifier CredentialVerifier
	users    Users
	tokens   TokenService
	activity ActivitySink
	logger   Logger
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new authenticator
func NewAuthenticator(verifier CredentialVerifier, users Users, tokens TokenService) *Auther {
	return &Auther{
		verifier: verifier,
		users:    users,
		tokens:   tokens,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithActivitySink sets the sink used to emit session events
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activity = normalizeActivitySink(sink)
	return s
}

// WithLogger overrides the logger
func (s *Auther) WithLogger(l Logger) *Auther {
	if l != nil {
		s.logger = l
	}
	return s
}

// Login verifies the credentials and issues a fresh access/refresh pair.
// Storing the new refresh token overwrites whatever was there before, so a
// second login immediately invalidates the first session's refresh token.
// Two concurrent logins race on that column and the last writer wins, which
// is exactly the single-active-session semantics we want.
func (s *Auther) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.verifier.VerifyCredentials(ctx, email, password)
	if err != nil {
		s.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Message:   "login rejected",
			Metadata:  map[string]any{"email": email},
		})
		return nil, err
	}

	identity := IdentityFromUser(user)

	accessToken, err := s.tokens.IssueAccessToken(identity)
	if err != nil {
		return nil, err
	}

	refreshToken, refreshExpiresAt, err := s.tokens.IssueRefreshToken(identity)
	if err != nil {
		return nil, err
	}

	if err := s.users.StoreRefreshToken(ctx, user.ID, refreshToken); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist refresh token")
	}

	user.RefreshToken = refreshToken
	now := time.Now()
	user.LoggedInAt = &now

	s.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    user.ID.String(),
		Message:   "user logged in",
		Metadata:  map[string]any{"email": user.Email},
	})

	return &LoginResult{
		User:             user,
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// presented token must verify AND equal the stored value: a token that was
// superseded by a later login, a logout, or a password reset fails the
// equality check even though its signature is still good.
func (s *Auther) Refresh(ctx context.Context, rawRefreshToken string) (*RefreshResult, error) {
	if rawRefreshToken == "" {
		return nil, ErrUnableToFindSession
	}

	claims, err := s.tokens.ValidateRefreshToken(rawRefreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrSessionRevoked
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load identity during refresh")
	}

	if user.RefreshToken != rawRefreshToken {
		s.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventSessionRevoked,
			UserID:    user.ID.String(),
			Message:   "refresh attempted with superseded token",
		})
		return nil, ErrSessionRevoked
	}

	accessToken, err := s.tokens.IssueAccessToken(IdentityFromUser(user))
	if err != nil {
		return nil, err
	}

	s.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventSessionRefresh,
		UserID:    user.ID.String(),
		Message:   "access token refreshed",
	})

	return &RefreshResult{
		User:        user,
		AccessToken: accessToken,
	}, nil
}

// Logout clears the stored refresh token for whichever identity holds the
// presented one. A missing or unknown token is a successful no-op so the
// operation stays idempotent.
func (s *Auther) Logout(ctx context.Context, rawRefreshToken string) error {
	if rawRefreshToken == "" {
		return nil
	}

	user, err := s.users.GetByRefreshToken(ctx, rawRefreshToken)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up session during logout")
	}

	if err := s.users.ClearRefreshToken(ctx, user.ID); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to clear refresh token")
	}

	s.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventLogout,
		UserID:    user.ID.String(),
		Message:   "user logged out",
	})

	return nil
}

func (s *Auther) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := s.activity.Record(ctx, event); err != nil {
		s.logger.Error("failed to record activity %s: %s", event.EventType, err)
	}
}
