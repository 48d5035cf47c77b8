package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// PasswordResetInitMessage starts the forgot password flow for an email
type PasswordResetInitMessage struct {
	Email string `json:"email"`
}

func (e PasswordResetInitMessage) Type() string { return "password.reset_init" }

// PasswordResetInitHandler mints a reset token and mails the reset link
type PasswordResetInitHandler struct {
	users  Users
	tokens TokenService
	mailer Mailer
	logger Logger
}

func NewPasswordResetInitHandler(users Users, tokens TokenService, mailer Mailer) *PasswordResetInitHandler {
	return &PasswordResetInitHandler{
		users:  users,
		tokens: tokens,
		mailer: mailer,
		logger: defLogger{},
	}
}

func (h *PasswordResetInitHandler) WithLogger(l Logger) *PasswordResetInitHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

func (h *PasswordResetInitHandler) Execute(ctx context.Context, event PasswordResetInitMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *PasswordResetInitHandler) execute(ctx context.Context, event PasswordResetInitMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.users.GetByEmail(ctx, event.Email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrIdentityNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user for password reset")
	}

	token, err := h.tokens.IssueEmailActionToken(IdentityFromUser(user), PurposeResetPassword)
	if err != nil {
		return err
	}

	if err := h.mailer.SendPasswordReset(ctx, user, token); err != nil {
		h.logger.Error("failed to send password reset email to %s: %s", user.Email, err)
		return err
	}

	return nil
}
