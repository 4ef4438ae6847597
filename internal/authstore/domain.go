// Package authstore holds the signed-in identity of a portal client and lets
// views observe it.
package authstore

import (
	"fmt"
	"strings"
)

// StorageNamespace is the fixed key under which sessions are persisted.
const StorageNamespace = "auth-storage"

// Role enumerates the account kinds known to the backend.
type Role string

const (
	RoleApplicant  Role = "applicant"
	RoleHR         Role = "hr"
	RoleUniversity Role = "university"
	RoleAdmin      Role = "admin"
)

// Roles lists every valid role.
var Roles = []Role{RoleApplicant, RoleHR, RoleUniversity, RoleAdmin}

// ParseRole validates a role string coming from the backend or a token claim.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if role.Valid() {
		return role, nil
	}
	return "", fmt.Errorf("authstore: unknown role %q", raw)
}

// Valid reports whether r belongs to the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleApplicant, RoleHR, RoleUniversity, RoleAdmin:
		return true
	}
	return false
}

// User is the identity decoded at login.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Snapshot is an immutable copy of the session.
type Snapshot struct {
	Token string `json:"token,omitempty"`
	User  *User  `json:"user,omitempty"`
}

// IsAuthenticated is derived from the token; it is never stored.
func (s Snapshot) IsAuthenticated() bool {
	return s.Token != ""
}

// Role returns the user's role or the empty role when signed out.
func (s Snapshot) Role() Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

func (s Snapshot) clone() Snapshot {
	if s.User == nil {
		return Snapshot{Token: s.Token}
	}
	u := *s.User
	return Snapshot{Token: s.Token, User: &u}
}

// normalize enforces user-iff-token on data read back from storage.
func (s Snapshot) normalize() Snapshot {
	if s.Token == "" || s.User == nil {
		return Snapshot{}
	}
	return s.clone()
}
