package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// PasswordResetMessage completes the reset flow: the token from the emailed
// link plus the replacement password.
type PasswordResetMessage struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (e PasswordResetMessage) Type() string { return "password.reset" }

// PasswordResetHandler validates the reset token and swaps the password.
// The update also clears the stored refresh token, so every live session is
// forced back through login with the new credentials.
type PasswordResetHandler struct {
	users    Users
	tokens   TokenService
	activity ActivitySink
	logger   Logger
}

func NewPasswordResetHandler(users Users, tokens TokenService) *PasswordResetHandler {
	return &PasswordResetHandler{
		users:    users,
		tokens:   tokens,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

func (h *PasswordResetHandler) WithActivitySink(sink ActivitySink) *PasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *PasswordResetHandler) WithLogger(l Logger) *PasswordResetHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

func (h *PasswordResetHandler) Execute(ctx context.Context, event PasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *PasswordResetHandler) execute(ctx context.Context, event PasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	claims, err := h.tokens.ValidateEmailActionToken(event.Token, PurposeResetPassword)
	if err != nil {
		// expired, forged, or wrong purpose all read the same to the caller
		return ErrTokenMalformed
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return ErrTokenMalformed
	}

	hash, err := HashPassword(event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash replacement password")
	}

	if err := h.users.ResetPassword(ctx, id, hash); err != nil {
		if goerrors.IsNotFound(err) {
			return ErrTokenMalformed
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update password")
	}

	h.recordActivity(ctx, id)

	return nil
}

func (h *PasswordResetHandler) recordActivity(ctx context.Context, id uuid.UUID) {
	event := ActivityEvent{
		EventType:  ActivityEventPasswordReset,
		UserID:     id.String(),
		Message:    "password reset completed",
		OccurredAt: time.Now(),
	}
	if err := h.activity.Record(ctx, event); err != nil {
		h.logger.Error("failed to record password reset activity: %s", err)
	}
}
