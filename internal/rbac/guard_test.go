package rbac

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technopolis/careers-portal/internal/authstore"
	"github.com/technopolis/careers-portal/internal/platform/backend"
)

func session(role authstore.Role) authstore.Snapshot {
	return authstore.Snapshot{Token: "tok", User: &authstore.User{ID: 1, Email: "u@example.com", Role: role}}
}

func TestDecideWithoutTokenAlwaysRedirectsToLogin(t *testing.T) {
	policies := []Policy{AnyAuthenticated}
	for _, role := range authstore.Roles {
		policies = append(policies, RequireRoles(role))
	}
	snaps := []authstore.Snapshot{
		{},
		{User: &authstore.User{ID: 1, Role: authstore.RoleAdmin}},
		{Token: "tok"},
	}
	for _, policy := range policies {
		for _, snap := range snaps {
			decision := Decide(snap, policy, "/profile")
			assert.Equal(t, RedirectLogin, decision.Outcome)
			assert.Equal(t, "/login?redirect_uri=%2Fprofile", decision.Location)
		}
	}
}

func TestDecideWrongRoleAlwaysRedirectsHome(t *testing.T) {
	for _, required := range authstore.Roles {
		for _, actual := range authstore.Roles {
			decision := Decide(session(actual), RequireRoles(required), "/x")
			if actual == required {
				assert.Equal(t, Allow, decision.Outcome, "%s on %s", actual, required)
				assert.Empty(t, decision.Location)
				continue
			}
			assert.Equal(t, RedirectHome, decision.Outcome, "%s on %s", actual, required)
			assert.Equal(t, HomePath, decision.Location)
		}
	}
}

func TestDecideAnyAuthenticated(t *testing.T) {
	for _, role := range authstore.Roles {
		assert.Equal(t, Allow, Decide(session(role), AnyAuthenticated, "/profile").Outcome)
	}
}

func TestHasRole(t *testing.T) {
	hr := &authstore.User{Role: authstore.RoleHR}
	assert.True(t, HasRole(hr, authstore.RoleHR))
	assert.True(t, HasRole(hr, authstore.RoleAdmin, authstore.RoleHR))
	assert.False(t, HasRole(hr, authstore.RoleUniversity))
	assert.True(t, HasRole(hr))
	assert.False(t, HasRole(nil, authstore.RoleHR))
	assert.False(t, HasRole(nil))
}

func TestSafeRedirectPath(t *testing.T) {
	cases := map[string]string{
		"":                         "/",
		"/apply/vacancy/3":         "/apply/vacancy/3",
		"/profile?tab=mine":        "/profile?tab=mine",
		"https://evil.example/":    "/",
		"//evil.example/path":      "/",
		`/\evil.example`:           "/",
		"relative":                 "/",
		"/login?redirect_uri=%2Fx": "/",
	}
	for in, want := range cases {
		assert.Equal(t, want, SafeRedirectPath(in), in)
	}
	assert.Equal(t, LoginPath, LoginURL("/"))
}

func requestWith(snap authstore.Snapshot, target string) (*http.Request, *authstore.Store) {
	store := authstore.New("test", nil)
	if snap.IsAuthenticated() {
		store.Login(snap.Token, snap.User)
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return req.WithContext(authstore.WithStore(context.Background(), store)), store
}

type guardCounter map[string]int

func (g guardCounter) RecordGuard(policy, outcome string) { g[policy+":"+outcome]++ }

func TestRequireMiddleware(t *testing.T) {
	counter := guardCounter{}
	mw := Middleware{Metrics: counter}
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	guarded := mw.Require(RequireRoles(authstore.RoleHR))(ok)

	req, _ := requestWith(session(authstore.RoleHR), "/create-vacancy")
	rec := httptest.NewRecorder()
	guarded.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTeapot, rec.Code)

	req, _ = requestWith(session(authstore.RoleApplicant), "/create-vacancy")
	rec = httptest.NewRecorder()
	guarded.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	req, _ = requestWith(authstore.Snapshot{}, "/create-vacancy")
	rec = httptest.NewRecorder()
	guarded.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?redirect_uri=%2Fcreate-vacancy", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	guarded.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/create-vacancy", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	assert.Equal(t, 1, counter["hr:allow"])
	assert.Equal(t, 1, counter["hr:denied"])
	assert.Equal(t, 2, counter["hr:unauthenticated"])
}

func TestExpireLogsOutOnUnauthorized(t *testing.T) {
	mw := Middleware{}
	req, store := requestWith(session(authstore.RoleHR), "/profile")

	rec := httptest.NewRecorder()
	assert.False(t, mw.Expire(rec, req, errors.New("boom")))
	assert.True(t, store.Snapshot().IsAuthenticated())

	rec = httptest.NewRecorder()
	require.True(t, mw.Expire(rec, req, &backend.APIError{Status: http.StatusUnauthorized}))
	assert.False(t, store.Snapshot().IsAuthenticated())
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?redirect_uri=%2Fprofile", rec.Header().Get("Location"))
}

func TestExpireOnPostUsesReferer(t *testing.T) {
	mw := Middleware{}
	store := authstore.New("test", nil)
	store.Login("tok", &authstore.User{ID: 9, Role: authstore.RoleAdmin})
	req := httptest.NewRequest(http.MethodPost, "http://portal.test/admin-dashboard/vacancies/4/publish", nil)
	req.Header.Set("Referer", "http://portal.test/admin-dashboard")
	req = req.WithContext(authstore.WithStore(req.Context(), store))

	rec := httptest.NewRecorder()
	require.True(t, mw.Expire(rec, req, &backend.APIError{Status: http.StatusUnauthorized}))
	assert.Equal(t, "/login?redirect_uri=%2Fadmin-dashboard", rec.Header().Get("Location"))
}
