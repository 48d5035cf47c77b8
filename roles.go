package auth

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Role is a user's role tag
type Role string

const (
	// RoleUser is the baseline role every account carries
	RoleUser Role = "user"
	// RoleManager is a hotel manager (i.e. room and content management)
	RoleManager Role = "manager"
	// RoleAdmin is an administrator (i.e. full account and settings control)
	RoleAdmin Role = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleManager, RoleAdmin:
		return true
	default:
		return false
	}
}

// RoleList is the ordered set of role tags attached to an identity.
// It is stored as a single comma separated column.
type RoleList []Role

var _ driver.Valuer = RoleList{}

// DefaultRoles returns the roles a new account gets when none are provided
func DefaultRoles() RoleList {
	return RoleList{RoleUser}
}

// Has checks if the list contains a specific role
func (rl RoleList) Has(role Role) bool {
	for _, r := range rl {
		if r == role {
			return true
		}
	}
	return false
}

// HasAny checks if the list intersects the given allow list
func (rl RoleList) HasAny(allow ...Role) bool {
	for _, a := range allow {
		if rl.Has(a) {
			return true
		}
	}
	return false
}

// Validate ensures every role tag is a known one
func (rl RoleList) Validate() error {
	for _, r := range rl {
		if !r.IsValid() {
			return withMetadata(ErrInvalidRole, map[string]any{"role": string(r)})
		}
	}
	return nil
}

// Strings returns the roles as plain strings, e.g. for token claims
func (rl RoleList) Strings() []string {
	out := make([]string, len(rl))
	for i, r := range rl {
		out[i] = string(r)
	}
	return out
}

// Value implements driver.Valuer
func (rl RoleList) Value() (driver.Value, error) {
	return strings.Join(rl.Strings(), ","), nil
}

// Scan implements sql.Scanner
func (rl *RoleList) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*rl = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("unsupported roles column type %T", src)
	}

	*rl = ParseRoles(strings.Split(raw, ",")...)
	return nil
}

// ParseRoles builds a RoleList from raw tags, dropping blanks and duplicates
func ParseRoles(tags ...string) RoleList {
	out := make(RoleList, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		role := Role(t)
		if !out.Has(role) {
			out = append(out, role)
		}
	}
	return out
}
