package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// SendVerificationMessage asks for a (re)send of the verification email
type SendVerificationMessage struct {
	Email string `json:"email"`
}

func (e SendVerificationMessage) Type() string { return "user.send_verification" }

// SendVerificationHandler mints a short lived verification token and mails it
type SendVerificationHandler struct {
	users  Users
	tokens TokenService
	mailer Mailer
	logger Logger
}

func NewSendVerificationHandler(users Users, tokens TokenService, mailer Mailer) *SendVerificationHandler {
	return &SendVerificationHandler{
		users:  users,
		tokens: tokens,
		mailer: mailer,
		logger: defLogger{},
	}
}

func (h *SendVerificationHandler) WithLogger(l Logger) *SendVerificationHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

func (h *SendVerificationHandler) Execute(ctx context.Context, event SendVerificationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during verification request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SendVerificationHandler) execute(ctx context.Context, event SendVerificationMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.users.GetByEmail(ctx, event.Email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrIdentityNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user for verification request")
	}

	if user.EmailVerified {
		return ErrAlreadyVerified
	}

	token, err := h.tokens.IssueEmailActionToken(IdentityFromUser(user), PurposeVerifyEmail)
	if err != nil {
		return err
	}

	// unlike signup, an explicit resend request surfaces delivery errors
	if err := h.mailer.SendVerification(ctx, user, token); err != nil {
		h.logger.Error("failed to send verification email to %s: %s", user.Email, err)
		return err
	}

	return nil
}
