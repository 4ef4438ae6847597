package rbac

import (
	"net/url"
	"strings"

	"github.com/technopolis/careers-portal/internal/authstore"
)

// Outcome is the terminal state of a guard evaluation.
type Outcome int

const (
	// Allow renders the protected content.
	Allow Outcome = iota
	// RedirectLogin sends the visitor to the login page.
	RedirectLogin
	// RedirectHome sends an authenticated visitor without the role home.
	RedirectHome
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "unauthenticated"
	case RedirectHome:
		return "denied"
	default:
		return "unknown"
	}
}

// Decision is the result of Decide. Location is the redirect target and is
// empty for Allow.
type Decision struct {
	Outcome  Outcome
	Location string
}

// Decide evaluates policy against snap for a request to location. A missing
// token always yields RedirectLogin regardless of any role; a role outside the
// policy yields RedirectHome. Decide has no side effects.
func Decide(snap authstore.Snapshot, policy Policy, location string) Decision {
	if snap.Token == "" || snap.User == nil {
		return Decision{Outcome: RedirectLogin, Location: LoginURL(location)}
	}
	if !HasRole(snap.User, policy.Roles...) {
		return Decision{Outcome: RedirectHome, Location: HomePath}
	}
	return Decision{Outcome: Allow}
}

// LoginURL builds the login address carrying location for the post-login
// redirect. Unsafe or empty locations are dropped.
func LoginURL(location string) string {
	target := SafeRedirectPath(location)
	if target == HomePath {
		return LoginPath
	}
	return LoginPath + "?" + url.Values{RedirectParam: {target}}.Encode()
}

// SafeRedirectPath returns candidate when it is a same-origin relative path,
// otherwise "/".
func SafeRedirectPath(candidate string) string {
	if candidate == "" {
		return HomePath
	}
	if strings.HasPrefix(candidate, "//") || strings.Contains(candidate, `\`) {
		return HomePath
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return HomePath
	}
	if u.Path == LoginPath {
		return HomePath
	}
	return candidate
}
