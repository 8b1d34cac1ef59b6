// Package models defines server-side data models persisted by the repositories.
package models

import (
	"fmt"
	"time"
)

// Role is the authority granted to a user.
type Role string

const (
	RoleUser  Role = "ROLE_USER"
	RoleAdmin Role = "ROLE_ADMIN"
)

// ParseRole accepts the canonical role names only.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Satisfies reports whether r grants access to something that requires
// the given role. Admin implies user.
func (r Role) Satisfies(required Role) bool {
	if r == required {
		return true
	}
	return r == RoleAdmin && required == RoleUser
}

// User is an account in the directory.
//
// Email is unique and compared exactly. Version is bumped by the store on
// every successful update; writing with a stale Version fails.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Enabled      bool
	Role         Role
	Version      int64
	CreatedAt    time.Time
}
