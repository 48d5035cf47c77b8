package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// VerifyEmailMessage carries the raw token from the emailed link
type VerifyEmailMessage struct {
	Token      string `json:"token"`
	OnResponse func(resp *VerifyEmailResponse)
}

func (e VerifyEmailMessage) Type() string { return "user.verify_email" }

type VerifyEmailResponse struct {
	User            *User
	AlreadyVerified bool
}

// VerifyEmailHandler consumes a verification token and flips the account to
// verified. Replaying a link against an already verified account succeeds.
type VerifyEmailHandler struct {
	users    Users
	tokens   TokenService
	mailer   Mailer
	activity ActivitySink
	logger   Logger
}

func NewVerifyEmailHandler(users Users, tokens TokenService, mailer Mailer) *VerifyEmailHandler {
	return &VerifyEmailHandler{
		users:    users,
		tokens:   tokens,
		mailer:   mailer,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

func (h *VerifyEmailHandler) WithActivitySink(sink ActivitySink) *VerifyEmailHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *VerifyEmailHandler) WithLogger(l Logger) *VerifyEmailHandler {
	if l != nil {
		h.logger = l
	}
	return h
}

func (h *VerifyEmailHandler) Execute(ctx context.Context, event VerifyEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyEmailHandler) execute(ctx context.Context, event VerifyEmailMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	claims, err := h.tokens.ValidateEmailActionToken(event.Token, PurposeVerifyEmail)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return ErrTokenMalformed
	}

	user, err := h.users.GetByID(ctx, id.String())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrIdentityNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user during verification")
	}

	resp := &VerifyEmailResponse{User: user}

	if user.EmailVerified {
		resp.AlreadyVerified = true
		if event.OnResponse != nil {
			event.OnResponse(resp)
		}
		return nil
	}

	if err := h.users.MarkEmailVerified(ctx, user.ID); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark email as verified")
	}
	user.EmailVerified = true

	h.recordActivity(ctx, user)

	// welcome mail is best effort, the verification already succeeded
	go func(u User) {
		bg, cancel := context.WithTimeout(context.Background(), time.Second*30)
		defer cancel()
		if err := h.mailer.SendWelcome(bg, &u); err != nil {
			h.logger.Error("failed to send welcome email to %s: %s", u.Email, err)
		}
	}(*user)

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *VerifyEmailHandler) recordActivity(ctx context.Context, user *User) {
	event := ActivityEvent{
		EventType:  ActivityEventEmailVerified,
		UserID:     user.ID.String(),
		Message:    "email address verified",
		Metadata:   map[string]any{"email": user.Email},
		OccurredAt: time.Now(),
	}
	if err := h.activity.Record(ctx, event); err != nil {
		h.logger.Error("failed to record verification activity: %s", err)
	}
}
