package app_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technopolis/careers-portal/internal/app"
	"github.com/technopolis/careers-portal/internal/observability"
	"github.com/technopolis/careers-portal/internal/testing/portaltest"
)

func newPortal(t *testing.T) (*portaltest.Env, *app.Portal, *portaltest.Browser) {
	t.Helper()
	env := portaltest.New(t)
	cfg := &app.Config{
		AppEnv:             "test",
		BackendURL:         env.Backend.URL(),
		BackendTimeout:     5 * time.Second,
		SessionSecret:      "secret",
		SessionTTL:         time.Hour,
		StoreIdleTTL:       time.Minute,
		CSRFSecret:         "csrf-secret",
		RateLimitPerMinute: 1000,
		ResumeMaxBytes:     1 << 20,
	}
	portal, err := app.NewPortal(app.PortalParams{
		Config:  cfg,
		Redis:   env.Client,
		Metrics: observability.NewMetrics(),
	})
	require.NoError(t, err)
	return env, portal, env.Browser(portal.Handler)
}

func loginAs(t *testing.T, env *portaltest.Env, browser *portaltest.Browser, email, role string) {
	t.Helper()
	env.Backend.On(http.MethodPost, "/auth/token", http.StatusOK,
		`{"access_token":"tok-`+role+`","token_type":"bearer","user":{"id":3,"email":"`+email+`","role":"`+role+`"}}`)
	page := browser.PostForm("/login", url.Values{"email": {email}, "password": {"secret"}})
	require.Equal(t, http.StatusSeeOther, page.Status)
	require.Equal(t, "/", page.Location)
}

func TestHRSeesVacancyFormButNotModeration(t *testing.T) {
	env, _, browser := newPortal(t)
	loginAs(t, env, browser, "a@b.com", "hr")

	page := browser.Get("/create-vacancy")
	require.Equal(t, http.StatusOK, page.Status)
	assert.Contains(t, page.Body, `action="/create-vacancy"`)
	assert.Contains(t, page.Body, "a@b.com")

	page = browser.Get("/admin-dashboard")
	assert.Equal(t, http.StatusSeeOther, page.Status)
	assert.Equal(t, "/", page.Location)
	assert.Empty(t, env.Backend.Find(http.MethodGet, "/moderation/vacancies/pending"))

	page = browser.Get("/create-internship")
	assert.Equal(t, http.StatusSeeOther, page.Status)
	assert.Equal(t, "/", page.Location)
}

func TestLogoutSendsProtectedPageToLogin(t *testing.T) {
	env, portal, browser := newPortal(t)
	loginAs(t, env, browser, "a@b.com", "hr")

	page := browser.PostForm("/logout", nil)
	require.Equal(t, http.StatusSeeOther, page.Status)

	page = browser.Get("/profile")
	assert.Equal(t, http.StatusSeeOther, page.Status)
	assert.Equal(t, "/login?redirect_uri=%2Fprofile", page.Location)

	store := portal.Hub.Open(context.Background(), browser.SessionID())
	assert.False(t, store.Snapshot().IsAuthenticated())
}

func TestSignedOutVisitorIsSentToLogin(t *testing.T) {
	_, _, browser := newPortal(t)

	page := browser.Get("/create-vacancy")
	assert.Equal(t, http.StatusSeeOther, page.Status)
	assert.Equal(t, "/login?redirect_uri=%2Fcreate-vacancy", page.Location)
}

func TestPostWithoutCSRFTokenIsRejected(t *testing.T) {
	_, _, browser := newPortal(t)
	browser.SessionID()

	resp, err := http.PostForm(browser.Server.URL+"/login", url.Values{"email": {"a@b.com"}, "password": {"x"}})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestInfrastructureRoutes(t *testing.T) {
	_, _, browser := newPortal(t)

	page := browser.Get("/healthz")
	assert.Equal(t, http.StatusOK, page.Status)
	assert.JSONEq(t, `{"status":"ok"}`, page.Body)

	resp, err := http.Get(browser.Server.URL + "/static/css/app.css")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "public, max-age=3600", resp.Header.Get("Cache-Control"))

	browser.Get("/login")
	page = browser.Get("/metrics")
	assert.Equal(t, http.StatusOK, page.Status)
	assert.Contains(t, page.Body, "portal_http_requests_total")
}

func TestHealthzReportsFailingDependency(t *testing.T) {
	router := app.NewRouter(app.RouterParams{
		Health: func(context.Context) error { return errors.New("redis down") },
	})
	env := portaltest.New(t)
	browser := env.Browser(router)

	page := browser.Get("/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, page.Status)
}

func TestPagesCarrySecurityHeaders(t *testing.T) {
	_, _, browser := newPortal(t)

	resp, err := http.Get(browser.Server.URL + "/login")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "default-src 'self'")
}
