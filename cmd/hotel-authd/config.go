package main

import (
	"time"

	auth "github.com/hoteldesk/go-auth"
)

// AppConfig is the daemon's configuration tree, loaded through go-config from
// config files and environment variables.
type AppConfig struct {
	Server      Server            `json:"server" koanf:"server"`
	Auth        auth.SimpleConfig `json:"auth" koanf:"auth"`
	SMTP        auth.SMTPConfig   `json:"smtp" koanf:"smtp"`
	Persistence Persistence       `json:"persistence" koanf:"persistence"`
	Debug       bool              `json:"debug" koanf:"debug"`
}

func (c *AppConfig) Validate() error {
	return nil
}

type Server struct {
	Address string `json:"address" koanf:"address"`
}

func (s Server) GetAddress() string {
	if s.Address == "" {
		return ":8572"
	}
	return s.Address
}

// Persistence carries the database settings and satisfies the persistence
// client's config surface.
type Persistence struct {
	Debug                 bool   `json:"debug" koanf:"debug"`
	Driver                string `json:"driver" koanf:"driver"`
	Dialect               string `json:"dialect" koanf:"dialect"`
	DSN                   string `json:"dsn" koanf:"dsn"`
	Server                string `json:"server" koanf:"server"`
	Database              string `json:"database" koanf:"database"`
	Username              string `json:"username" koanf:"username"`
	Password              string `json:"password" koanf:"password"`
	SSLMode               string `json:"ssl_mode" koanf:"ssl_mode"`
	PingTimeoutExpression string `json:"ping_timeout" koanf:"ping_timeout"`
}

func (p Persistence) GetDebug() bool { return p.Debug }

func (p Persistence) GetDriver() string {
	if p.Driver == "" {
		return "sqlite"
	}
	return p.Driver
}

func (p Persistence) GetDialect() string {
	if p.Dialect == "" {
		return "sqlite"
	}
	return p.Dialect
}

func (p Persistence) GetDSN() string {
	if p.DSN == "" {
		return "file:hotel_auth.db?cache=shared&mode=rwc"
	}
	return p.DSN
}

func (p Persistence) GetServer() string   { return p.Server }
func (p Persistence) GetDatabase() string { return p.Database }
func (p Persistence) GetUsername() string { return p.Username }
func (p Persistence) GetPassword() string { return p.Password }
func (p Persistence) GetSSLMode() string  { return p.SSLMode }

func (p Persistence) GetOtelIdentifier() string { return "" }

func (p Persistence) GetPingTimeout() time.Duration {
	if p.PingTimeoutExpression == "" {
		return 5 * time.Second
	}
	dur, err := time.ParseDuration(p.PingTimeoutExpression)
	if err != nil {
		return 5 * time.Second
	}
	return dur
}
