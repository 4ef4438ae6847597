package rbac

import (
	"slices"

	"github.com/technopolis/careers-portal/internal/authstore"
)

const (
	// LoginPath is where unauthenticated visitors are sent.
	LoginPath = "/login"
	// HomePath is where authenticated visitors lacking a role are sent.
	HomePath = "/"
	// RedirectParam carries the originally requested location through login.
	RedirectParam = "redirect_uri"
)

// Policy describes who may enter a route. An empty Roles list admits any
// authenticated user.
type Policy struct {
	Roles []authstore.Role
}

// AnyAuthenticated admits every signed-in user regardless of role.
var AnyAuthenticated = Policy{}

// RequireRoles builds a policy admitting only the listed roles.
func RequireRoles(roles ...authstore.Role) Policy {
	return Policy{Roles: roles}
}

// HasRole is the single capability check used by guards, navigation and
// templates. It is false for a nil user.
func HasRole(user *authstore.User, allowed ...authstore.Role) bool {
	if user == nil {
		return false
	}
	if len(allowed) == 0 {
		return true
	}
	return slices.Contains(allowed, user.Role)
}
