package auth

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/template/django/v3"
	goerrors "github.com/goliatone/go-errors"
	"github.com/wneessen/go-mail"
)

// Mailer is the outbound email collaborator. Flows decide whether a send
// failure degrades the response or fails it; the mailer just reports.
type Mailer interface {
	SendVerification(ctx context.Context, user *User, token string) error
	SendWelcome(ctx context.Context, user *User) error
	SendPasswordReset(ctx context.Context, user *User, token string) error
}

// SMTPConfig carries the delivery settings for the SMTP mailer
type SMTPConfig struct {
	Host     string `json:"host" koanf:"host"`
	Port     int    `json:"port" koanf:"port"`
	Username string `json:"username" koanf:"username"`
	Password string `json:"password" koanf:"password"`
	From     string `json:"from" koanf:"from"`
}

// SMTPMailer delivers templated messages over SMTP
type SMTPMailer struct {
	client    *mail.Client
	from      string
	publicURL string
	templates *django.Engine
	logger    Logger
}

var _ Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer builds a mailer from delivery settings. publicURL is the
// externally reachable base used to build the emailed links.
func NewSMTPMailer(cfg SMTPConfig, publicURL string, logger Logger) (*SMTPMailer, error) {
	if logger == nil {
		logger = defLogger{}
	}

	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build SMTP client")
	}

	templates := django.NewFileSystem(http.FS(GetEmailTemplatesFS()), ".html")
	if err := templates.Load(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load email templates")
	}

	return &SMTPMailer{
		client:    client,
		from:      cfg.From,
		publicURL: publicURL,
		templates: templates,
		logger:    logger,
	}, nil
}

func (m *SMTPMailer) SendVerification(ctx context.Context, user *User, token string) error {
	return m.send(ctx, user, "Verify your email address", "emails/verification", map[string]any{
		"first_name": user.FirstName,
		"link":       fmt.Sprintf("%s/verify-email/%s", m.publicURL, token),
	})
}

func (m *SMTPMailer) SendWelcome(ctx context.Context, user *User) error {
	return m.send(ctx, user, "Welcome aboard", "emails/welcome", map[string]any{
		"first_name": user.FirstName,
	})
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, user *User, token string) error {
	return m.send(ctx, user, "Reset your password", "emails/password_reset", map[string]any{
		"first_name": user.FirstName,
		"link":       fmt.Sprintf("%s/reset-password/%s", m.publicURL, token),
	})
}

func (m *SMTPMailer) send(ctx context.Context, user *User, subject, template string, binding map[string]any) error {
	var body bytes.Buffer
	if err := m.templates.Render(&body, template, binding); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render email template")
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "invalid sender address")
	}
	if err := msg.To(user.Email); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "invalid recipient address")
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body.String())

	sendCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := m.client.DialAndSendWithContext(sendCtx, msg); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to deliver email")
	}

	return nil
}

// LogMailer writes outbound messages to the logger instead of delivering
// them. Useful for development and as a safe default.
type LogMailer struct {
	Logger Logger
}

var _ Mailer = (*LogMailer)(nil)

func (m LogMailer) logger() Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return defLogger{}
}

func (m LogMailer) SendVerification(_ context.Context, user *User, token string) error {
	m.logger().Info("verification email for %s, link: /verify-email/%s", user.Email, token)
	return nil
}

func (m LogMailer) SendWelcome(_ context.Context, user *User) error {
	m.logger().Info("welcome email for %s", user.Email)
	return nil
}

func (m LogMailer) SendPasswordReset(_ context.Context, user *User, token string) error {
	m.logger().Info("password reset email for %s, link: /reset-password/%s", user.Email, token)
	return nil
}
