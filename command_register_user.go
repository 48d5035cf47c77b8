package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterUserMessage struct {
	FirstName  string   `json:"first_name"`
	LastName   string   `json:"last_name"`
	Username   string   `json:"username"`
	Email      string   `json:"email"`
	Phone      string   `json:"phone"`
	Roles      RoleList `json:"roles"`
	Password   string   `json:"password"`
	UseHashid  bool
	OnResponse func(resp *RegisterUserResponse)
}

func (e RegisterUserMessage) Type() string { return "user.register" }

type RegisterUserResponse struct {
	User      *User
	EmailSent bool
	Success   bool
}

type RegisterUserHandler struct {
	repo     RepositoryManager
	tokens   TokenService
	mailer   Mailer
	activity ActivitySink
	logger   Logger

	// requireVerification seeds new accounts as unverified and triggers the
	// verification email
	requireVerification bool
}

// NewRegisterUserHandler creates a handler with sane defaults
func NewRegisterUserHandler(repo RepositoryManager, tokens TokenService, mailer Mailer) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:     repo,
		tokens:   tokens,
		mailer:   mailer,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithRequireVerification controls whether new accounts start unverified
func (h *RegisterUserHandler) WithRequireVerification(required bool) *RegisterUserHandler {
	h.requireVerification = required
	return h
}

// WithActivitySink sets the sink used to emit signup events
func (h *RegisterUserHandler) WithActivitySink(sink ActivitySink) *RegisterUserHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler
func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	user := &User{}
	resp := &RegisterUserResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Roles.Validate(); err != nil {
		return err
	}

	// Uniqueness checks and the insert share one transaction: either the
	// whole identity lands or nothing does. Side effects wait for commit.
	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Users().GetByEmailTx(ctx, tx, event.Email); err == nil {
			return withMetadata(ErrDuplicateIdentity, map[string]any{"email": event.Email})
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email uniqueness")
		}

		username := getUsername(event.Username, event.Email)
		if _, err := h.repo.Users().GetByUsernameTx(ctx, tx, username); err == nil {
			return withMetadata(ErrDuplicateIdentity, map[string]any{"username": username})
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check username uniqueness")
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return richErr
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = event.Email
		user.Phone = event.Phone
		user.FirstName = event.FirstName
		user.LastName = event.LastName
		user.Username = username
		user.Roles = event.Roles
		user.EmailVerified = !h.requireVerification
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	h.recordActivity(ctx, user)

	resp.User = user
	resp.Success = true
	resp.EmailSent = h.sendVerificationEmail(ctx, user)

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

// sendVerificationEmail runs after commit. A delivery failure degrades the
// response (emailSent false) but the account stays created.
func (h *RegisterUserHandler) sendVerificationEmail(ctx context.Context, user *User) bool {
	if user.EmailVerified {
		return false
	}

	token, err := h.tokens.IssueEmailActionToken(IdentityFromUser(user), PurposeVerifyEmail)
	if err != nil {
		h.logger.Error("failed to mint verification token for %s: %s", user.Email, err)
		return false
	}

	if err := h.mailer.SendVerification(ctx, user, token); err != nil {
		h.logger.Error("failed to send verification email to %s: %s", user.Email, err)
		h.recordMailFailure(ctx, user)
		return false
	}

	return true
}

func (h *RegisterUserHandler) recordActivity(ctx context.Context, user *User) {
	event := ActivityEvent{
		EventType:  ActivityEventSignup,
		UserID:     user.ID.String(),
		Message:    "user account created",
		Metadata:   map[string]any{"email": user.Email},
		OccurredAt: time.Now(),
	}
	if err := h.activity.Record(ctx, event); err != nil {
		h.logger.Error("failed to record signup activity: %s", err)
	}
}

func (h *RegisterUserHandler) recordMailFailure(ctx context.Context, user *User) {
	event := ActivityEvent{
		EventType:  ActivityEventMailUndelivered,
		UserID:     user.ID.String(),
		Message:    "verification email could not be delivered",
		OccurredAt: time.Now(),
	}
	if err := h.activity.Record(ctx, event); err != nil {
		h.logger.Error("failed to record mail failure: %s", err)
	}
}
