package auth_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	auth "github.com/hoteldesk/go-auth"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// recordingLogger captures formatted log lines for assertions
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Debug(format string, args ...any) { l.append("DBG", format, args...) }
func (l *recordingLogger) Info(format string, args ...any)  { l.append("INF", format, args...) }
func (l *recordingLogger) Error(format string, args ...any) { l.append("ERR", format, args...) }

func (l *recordingLogger) append(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, args...))
}

func (l *recordingLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// MockUsers stubs the subset of the users repository the flows touch. The
// embedded interface panics on anything unstubbed, which is what we want in a
// test.
type MockUsers struct {
	auth.Users
	mock.Mock
}

func (m *MockUsers) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*auth.User, error) {
	args := m.Called(ctx, id)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*auth.User, error) {
	args := m.Called(ctx, tx, email)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUsers) GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*auth.User, error) {
	args := m.Called(ctx, tx, username)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUsers) GetByRefreshToken(ctx context.Context, token string) (*auth.User, error) {
	args := m.Called(ctx, token)
	return userArg(args.Get(0)), args.Error(1)
}

// CreateTx echoes the inserted record when the stub supplies no explicit
// return value, mirroring what the real repository hands back.
func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *auth.User, criteria ...repository.InsertCriteria) (*auth.User, error) {
	args := m.Called(ctx, tx, record)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	if v := args.Get(0); v != nil {
		return v.(*auth.User), nil
	}
	return record, nil
}

func (m *MockUsers) StoreRefreshToken(ctx context.Context, id uuid.UUID, token string) error {
	args := m.Called(ctx, id, token)
	return args.Error(0)
}

func (m *MockUsers) ClearRefreshToken(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUsers) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUsers) TrackAttemptedLogin(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUsers) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func userArg(v any) *auth.User {
	if v == nil {
		return nil
	}
	return v.(*auth.User)
}

// MockAuditLogs stubs the audit log store
type MockAuditLogs struct {
	auth.AuditLogs
	mock.Mock
}

func (m *MockAuditLogs) Record(ctx context.Context, category, message string, detail map[string]any) error {
	args := m.Called(ctx, category, message, detail)
	return args.Error(0)
}

func (m *MockAuditLogs) PurgeExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockRepoManager hands out the mocked repositories. RunInTx executes the
// callback against a zero transaction and propagates its error, so the
// transactional body can be exercised without a database.
type MockRepoManager struct {
	users auth.Users
	logs  auth.AuditLogs
}

func (m *MockRepoManager) Users() auth.Users         { return m.users }
func (m *MockRepoManager) AuditLogs() auth.AuditLogs { return m.logs }
func (m *MockRepoManager) Validate() error           { return nil }
func (m *MockRepoManager) MustValidate()             {}

func (m *MockRepoManager) RunInTx(ctx context.Context, _ *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

// MockTokenService stubs minting and validation
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) IssueAccessToken(identity auth.Identity) (string, error) {
	args := m.Called(identity)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) IssueRefreshToken(identity auth.Identity) (string, time.Time, error) {
	args := m.Called(identity)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockTokenService) IssueEmailActionToken(identity auth.Identity, purpose auth.TokenPurpose) (string, error) {
	args := m.Called(identity, purpose)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) ValidateAccessToken(raw string) (*auth.AccessClaims, error) {
	args := m.Called(raw)
	if v := args.Get(0); v != nil {
		return v.(*auth.AccessClaims), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTokenService) ValidateRefreshToken(raw string) (*auth.RefreshClaims, error) {
	args := m.Called(raw)
	if v := args.Get(0); v != nil {
		return v.(*auth.RefreshClaims), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTokenService) ValidateEmailActionToken(raw string, purpose auth.TokenPurpose) (*auth.EmailActionClaims, error) {
	args := m.Called(raw, purpose)
	if v := args.Get(0); v != nil {
		return v.(*auth.EmailActionClaims), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockMailer records outbound email attempts
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendVerification(ctx context.Context, user *auth.User, token string) error {
	args := m.Called(ctx, user, token)
	return args.Error(0)
}

func (m *MockMailer) SendWelcome(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockMailer) SendPasswordReset(ctx context.Context, user *auth.User, token string) error {
	args := m.Called(ctx, user, token)
	return args.Error(0)
}

// MockVerifier stubs credential verification for authenticator tests
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) VerifyCredentials(ctx context.Context, email, password string) (*auth.User, error) {
	args := m.Called(ctx, email, password)
	return userArg(args.Get(0)), args.Error(1)
}

// MockUserTracker stubs the narrow store surface the credential provider uses
type MockUserTracker struct {
	mock.Mock
}

func (m *MockUserTracker) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUserTracker) TrackAttemptedLogin(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// recordingSink captures activity events for assertions
type recordingSink struct {
	events []auth.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) has(t auth.ActivityEventType) bool {
	for _, e := range s.events {
		if e.EventType == t {
			return true
		}
	}
	return false
}

func newTestUser() *auth.User {
	return &auth.User{
		ID:            uuid.New(),
		FirstName:     "Grace",
		LastName:      "Hopper",
		Username:      "ghopper",
		Email:         "grace@example.com",
		Roles:         auth.RoleList{auth.RoleUser},
		EmailVerified: true,
	}
}
