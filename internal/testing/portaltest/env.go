// Package portaltest wires a miniredis-backed session stack, a fake backend
// and a cookie-carrying browser for handler tests.
package portaltest

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/technopolis/careers-portal/internal/authstore"
	"github.com/technopolis/careers-portal/internal/platform/backend"
	"github.com/technopolis/careers-portal/internal/rbac"
	"github.com/technopolis/careers-portal/internal/shared"
	"github.com/technopolis/careers-portal/internal/view"
	_ "github.com/technopolis/careers-portal/testing"
)

const cookieName = "portal_session"

// Env bundles the collaborators every handler needs.
type Env struct {
	T         *testing.T
	Redis     *miniredis.Miniredis
	Client    *redis.Client
	Sessions  *shared.SessionManager
	CSRF      *shared.CSRFManager
	Hub       *authstore.Hub
	Backend   *FakeBackend
	API       *backend.Client
	Templates *view.Engine
	Guard     rbac.Middleware
}

// New builds an Env whose API client reads tokens from the request store.
func New(t *testing.T) *Env {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	templates, err := view.NewEngine()
	require.NoError(t, err)
	fake := NewFakeBackend(t)
	return &Env{
		T:         t,
		Redis:     mr,
		Client:    client,
		Sessions:  shared.NewSessionManager(client, cookieName, "secret", time.Hour, false),
		CSRF:      shared.NewCSRFManager([]byte("csrf-secret")),
		Hub:       authstore.NewHub(authstore.NewRedisPersister(client, time.Hour)),
		Backend:   fake,
		API:       backend.NewClient(fake.URL(), authstore.ContextTokens{}),
		Templates: templates,
	}
}

// Router returns a chi router carrying the session and CSRF middleware with
// mount applied.
func (e *Env) Router(mount func(chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Use(shared.LoadSession(e.Sessions, e.Hub, nil))
	r.Use(shared.RequireCSRF(e.CSRF, nil))
	mount(r)
	return r
}

// Browser is an HTTP client that keeps cookies and never follows redirects.
type Browser struct {
	env    *Env
	Server *httptest.Server
	client *http.Client
}

// Browser starts handler and returns a client talking to it.
func (e *Env) Browser(handler http.Handler) *Browser {
	e.T.Helper()
	srv := httptest.NewServer(handler)
	e.T.Cleanup(srv.Close)
	jar, err := cookiejar.New(nil)
	require.NoError(e.T, err)
	return &Browser{
		env:    e,
		Server: srv,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Page is a fully read response.
type Page struct {
	Status   int
	Location string
	Body     string
}

func (b *Browser) do(req *http.Request) Page {
	b.env.T.Helper()
	resp, err := b.client.Do(req)
	require.NoError(b.env.T, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(b.env.T, err)
	return Page{Status: resp.StatusCode, Location: resp.Header.Get("Location"), Body: string(data)}
}

// Get fetches path.
func (b *Browser) Get(path string) Page {
	b.env.T.Helper()
	req, err := http.NewRequest(http.MethodGet, b.Server.URL+path, nil)
	require.NoError(b.env.T, err)
	return b.do(req)
}

// PostForm submits values to path with the session CSRF token.
func (b *Browser) PostForm(path string, values url.Values) Page {
	b.env.T.Helper()
	if values == nil {
		values = url.Values{}
	}
	values.Set(shared.CSRFFormField, b.CSRFToken())
	req, err := http.NewRequest(http.MethodPost, b.Server.URL+path, bytes.NewBufferString(values.Encode()))
	require.NoError(b.env.T, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

// Upload is one file of a multipart submission.
type Upload struct {
	Field    string
	Filename string
	Content  []byte
}

// PostMultipart submits fields and files with the session CSRF token.
func (b *Browser) PostMultipart(path string, fields map[string]string, files ...Upload) Page {
	b.env.T.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	require.NoError(b.env.T, w.WriteField(shared.CSRFFormField, b.CSRFToken()))
	for k, v := range fields {
		require.NoError(b.env.T, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.Field, f.Filename)
		require.NoError(b.env.T, err)
		_, err = part.Write(f.Content)
		require.NoError(b.env.T, err)
	}
	require.NoError(b.env.T, w.Close())
	req, err := http.NewRequest(http.MethodPost, b.Server.URL+path, buf)
	require.NoError(b.env.T, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return b.do(req)
}

func (b *Browser) sessionRequest() *http.Request {
	u, _ := url.Parse(b.Server.URL)
	req := httptest.NewRequest(http.MethodGet, b.Server.URL+"/", nil)
	for _, c := range b.client.Jar.Cookies(u) {
		req.AddCookie(c)
	}
	return req
}

// SessionID returns the browser session ID, starting a session if needed.
func (b *Browser) SessionID() string {
	b.env.T.Helper()
	u, _ := url.Parse(b.Server.URL)
	for _, c := range b.client.Jar.Cookies(u) {
		if c.Name == cookieName {
			return c.Value
		}
	}
	ctx := context.Background()
	sess, err := b.env.Sessions.Load(ctx, b.sessionRequest())
	require.NoError(b.env.T, err)
	rec := httptest.NewRecorder()
	require.NoError(b.env.T, b.env.Sessions.Commit(ctx, rec, sess))
	b.client.Jar.SetCookies(u, rec.Result().Cookies())
	return sess.ID
}

// CSRFToken returns the token bound to the browser session.
func (b *Browser) CSRFToken() string {
	b.env.T.Helper()
	b.SessionID()
	ctx := context.Background()
	sess, err := b.env.Sessions.Load(ctx, b.sessionRequest())
	require.NoError(b.env.T, err)
	token, err := b.env.CSRF.EnsureToken(sess)
	require.NoError(b.env.T, err)
	require.NoError(b.env.T, b.env.Sessions.Commit(ctx, httptest.NewRecorder(), sess))
	return token
}

// Store returns the auth store of the browser session.
func (b *Browser) Store() *authstore.Store {
	b.env.T.Helper()
	return b.env.Hub.Open(context.Background(), b.SessionID())
}

// LoginAs signs the browser in directly through its auth store.
func (b *Browser) LoginAs(role authstore.Role) *authstore.User {
	b.env.T.Helper()
	user := &authstore.User{ID: 7, Email: string(role) + "@example.com", Role: role}
	b.Store().Login("token-"+string(role), user)
	return user
}

// Jar exposes the browser cookies, for clients such as websocket dialers.
func (b *Browser) Jar() http.CookieJar {
	return b.client.Jar
}
