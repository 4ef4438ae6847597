package rbac

import (
	"log/slog"
	"net/http"

	"github.com/technopolis/careers-portal/internal/authstore"
	"github.com/technopolis/careers-portal/internal/platform/backend"
)

// Recorder counts guard outcomes.
type Recorder interface {
	RecordGuard(policy string, outcome string)
}

// Middleware wires route guards into HTTP handlers.
type Middleware struct {
	Logger  *slog.Logger
	Metrics Recorder
}

// Require admits the request only when the current auth snapshot satisfies
// policy. Otherwise it answers 303 to the login page or home.
func (m Middleware) Require(policy Policy) func(http.Handler) http.Handler {
	label := policyLabel(policy)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap := authstore.SnapshotFromContext(r.Context())
			decision := Decide(snap, policy, r.URL.RequestURI())
			if m.Metrics != nil {
				m.Metrics.RecordGuard(label, decision.Outcome.String())
			}
			if decision.Outcome == Allow {
				next.ServeHTTP(w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Debug("route guard redirect",
					slog.String("path", r.URL.Path),
					slog.String("outcome", decision.Outcome.String()))
			}
			http.Redirect(w, r, decision.Location, http.StatusSeeOther)
		})
	}
}

// Expire handles a backend 401 observed while serving r: the browser's auth
// store is cleared and the visitor is sent to login with the current location.
// It reports whether it wrote a response.
func (m Middleware) Expire(w http.ResponseWriter, r *http.Request, err error) bool {
	if !backend.IsUnauthorized(err) {
		return false
	}
	if store := authstore.FromContext(r.Context()); store != nil {
		store.Logout()
	}
	if m.Logger != nil {
		m.Logger.Info("backend rejected token, session cleared", slog.String("path", r.URL.Path))
	}
	location := r.URL.RequestURI()
	if r.Method != http.MethodGet {
		location = r.Referer()
		if u, perr := r.URL.Parse(location); perr == nil && u.Host == r.Host {
			location = u.RequestURI()
		}
	}
	http.Redirect(w, r, LoginURL(location), http.StatusSeeOther)
	return true
}

func policyLabel(policy Policy) string {
	if len(policy.Roles) == 0 {
		return "authenticated"
	}
	label := ""
	for i, role := range policy.Roles {
		if i > 0 {
			label += "|"
		}
		label += string(role)
	}
	return label
}
