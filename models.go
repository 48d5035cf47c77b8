package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the persisted identity record
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Roles          RoleList       `bun:"roles,notnull" json:"roles,omitempty"`
	FirstName      string         `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName       string         `bun:"last_name,notnull" json:"last_name,omitempty"`
	Username       string         `bun:"username,notnull,unique" json:"username,omitempty"`
	Email          string         `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone          string         `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash   string         `bun:"password_hash" json:"-"`
	EmailVerified  bool           `bun:"is_email_verified" json:"is_email_verified"`
	RefreshToken   string         `bun:"refresh_token" json:"-"`
	LoginAttempts  int            `bun:"login_attempts" json:"-"`
	LoginAttemptAt *time.Time     `bun:"login_attempt_at" json:"-"`
	LoggedInAt     *time.Time     `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	Metadata       map[string]any `bun:"metadata" json:"metadata,omitempty"`
	CreatedAt      *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// AddMetadata will append information to a metadata attribute
func (u *User) AddMetadata(key string, val any) *User {
	if u.Metadata == nil {
		u.Metadata = make(map[string]any)
	}
	u.Metadata[key] = val
	return u
}

// HasActiveSession reports whether a refresh token is currently stored
func (u *User) HasActiveSession() bool {
	return u.RefreshToken != ""
}

// PublicUser carries the identity fields safe to hand to clients. The
// password hash and refresh token never travel through it.
type PublicUser struct {
	ID            uuid.UUID  `json:"id"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	Username      string     `json:"userName,omitempty"`
	Email         string     `json:"email"`
	Phone         string     `json:"phoneNumber,omitempty"`
	Roles         []string   `json:"roles"`
	EmailVerified bool       `json:"emailVerified"`
	LoggedInAt    *time.Time `json:"lastLogin,omitempty"`
}

// Public projects the user onto its client safe representation
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:            u.ID,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Username:      u.Username,
		Email:         u.Email,
		Phone:         u.Phone,
		Roles:         u.Roles.Strings(),
		EmailVerified: u.EmailVerified,
		LoggedInAt:    u.LoggedInAt,
	}
}

// Identity holds the attributes of an authenticated identity
type Identity interface {
	ID() string
	Username() string
	Email() string
	Roles() RoleList
}

type userIdentity struct {
	id       string
	username string
	email    string
	roles    RoleList
}

func (a userIdentity) ID() string       { return a.id }
func (a userIdentity) Username() string { return a.username }
func (a userIdentity) Email() string    { return a.email }
func (a userIdentity) Roles() RoleList  { return a.roles }

var _ Identity = userIdentity{}

// IdentityFromUser adapts a stored user to the Identity interface
func IdentityFromUser(u *User) Identity {
	return userIdentity{
		id:       u.ID.String(),
		username: u.Username,
		email:    u.Email,
		roles:    u.Roles,
	}
}

// AuditLog is an immutable audit trail entry. Entries are append only and
// swept after the retention window by the cleanup task.
type AuditLog struct {
	bun.BaseModel `bun:"table:audit_logs,alias:alog"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Category      string         `bun:"category,notnull" json:"category,omitempty"`
	Message       string         `bun:"message" json:"message,omitempty"`
	Detail        map[string]any `bun:"detail" json:"detail,omitempty"`
	CreatedAt     *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
