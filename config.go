package auth

import (
	"fmt"
	"time"
)

// Logger is the minimal logging surface the package needs. Callers plug in
// their own implementation; everything falls back to defLogger.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

// Config holds auth options. The three signing secrets are independent by
// contract; sharing a value between families would let an email link token
// act as an API credential.
type Config interface {
	GetAccessTokenSecret() string
	GetRefreshTokenSecret() string
	GetEmailTokenSecret() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetEmailTokenTTL() time.Duration
	GetIssuer() string
	GetCookieName() string
	GetCookieSecure() bool
	GetRequireEmailVerification() bool
	GetPublicURL() string
}

// SimpleConfig is a plain struct implementation of Config, handy for tests
// and for processes that map their own configuration layer onto it.
type SimpleConfig struct {
	AccessTokenSecret        string        `json:"access_token_secret" koanf:"access_token_secret"`
	RefreshTokenSecret       string        `json:"refresh_token_secret" koanf:"refresh_token_secret"`
	EmailTokenSecret         string        `json:"email_token_secret" koanf:"email_token_secret"`
	AccessTokenTTL           time.Duration `json:"access_token_ttl" koanf:"access_token_ttl"`
	RefreshTokenTTL          time.Duration `json:"refresh_token_ttl" koanf:"refresh_token_ttl"`
	EmailTokenTTL            time.Duration `json:"email_token_ttl" koanf:"email_token_ttl"`
	Issuer                   string        `json:"issuer" koanf:"issuer"`
	CookieName               string        `json:"cookie_name" koanf:"cookie_name"`
	CookieSecure             bool          `json:"cookie_secure" koanf:"cookie_secure"`
	RequireEmailVerification bool          `json:"require_email_verification" koanf:"require_email_verification"`
	PublicURL                string        `json:"public_url" koanf:"public_url"`
}

var _ Config = (*SimpleConfig)(nil)

func (c *SimpleConfig) GetAccessTokenSecret() string  { return c.AccessTokenSecret }
func (c *SimpleConfig) GetRefreshTokenSecret() string { return c.RefreshTokenSecret }
func (c *SimpleConfig) GetEmailTokenSecret() string   { return c.EmailTokenSecret }

func (c *SimpleConfig) GetAccessTokenTTL() time.Duration {
	if c.AccessTokenTTL == 0 {
		return 15 * time.Minute
	}
	return c.AccessTokenTTL
}

func (c *SimpleConfig) GetRefreshTokenTTL() time.Duration {
	if c.RefreshTokenTTL == 0 {
		return 7 * 24 * time.Hour
	}
	return c.RefreshTokenTTL
}

func (c *SimpleConfig) GetEmailTokenTTL() time.Duration {
	if c.EmailTokenTTL == 0 {
		return time.Hour
	}
	return c.EmailTokenTTL
}

func (c *SimpleConfig) GetIssuer() string { return c.Issuer }

func (c *SimpleConfig) GetCookieName() string {
	if c.CookieName == "" {
		return "jwt"
	}
	return c.CookieName
}

func (c *SimpleConfig) GetCookieSecure() bool { return c.CookieSecure }

func (c *SimpleConfig) GetRequireEmailVerification() bool { return c.RequireEmailVerification }

func (c *SimpleConfig) GetPublicURL() string { return c.PublicURL }
