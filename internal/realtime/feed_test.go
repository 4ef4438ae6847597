package realtime_test

import (
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technopolis/careers-portal/internal/authstore"
	"github.com/technopolis/careers-portal/internal/realtime"
	"github.com/technopolis/careers-portal/internal/testing/portaltest"
)

type gauge struct {
	open atomic.Int64
}

func (g *gauge) LiveFeedOpened() func() {
	g.open.Add(1)
	return func() { g.open.Add(-1) }
}

func dial(t *testing.T, browser *portaltest.Browser) *websocket.Conn {
	t.Helper()
	browser.SessionID()
	base, err := url.Parse(browser.Server.URL)
	require.NoError(t, err)
	header := http.Header{}
	for _, c := range browser.Jar().Cookies(base) {
		header.Add("Cookie", c.String())
	}
	wsURL := "ws" + strings.TrimPrefix(browser.Server.URL, "http") + "/ws/session"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func next(t *testing.T, conn *websocket.Conn) realtime.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg realtime.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestFeedPushesLoginAndLogout(t *testing.T) {
	env := portaltest.New(t)
	g := &gauge{}
	feed := realtime.NewFeed(nil, g)
	browser := env.Browser(env.Router(func(r chi.Router) {
		r.Get("/ws/session", feed.ServeHTTP)
	}))

	conn := dial(t, browser)
	assert.Equal(t, realtime.Message{Type: "session"}, next(t, conn))
	assert.Eventually(t, func() bool { return g.open.Load() == 1 }, time.Second, 10*time.Millisecond)

	browser.LoginAs(authstore.RoleHR)
	assert.Equal(t, realtime.Message{Type: "session", Authenticated: true, Role: authstore.RoleHR}, next(t, conn))

	browser.Store().Logout()
	assert.Equal(t, realtime.Message{Type: "session"}, next(t, conn))

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return g.open.Load() == 0 && browser.Store().Subscribers() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFeedStartsFromCurrentState(t *testing.T) {
	env := portaltest.New(t)
	feed := realtime.NewFeed(nil, nil)
	browser := env.Browser(env.Router(func(r chi.Router) {
		r.Get("/ws/session", feed.ServeHTTP)
	}))
	browser.LoginAs(authstore.RoleAdmin)

	conn := dial(t, browser)
	assert.Equal(t, realtime.Message{Type: "session", Authenticated: true, Role: authstore.RoleAdmin}, next(t, conn))
}

func TestStateOf(t *testing.T) {
	assert.Equal(t, realtime.State{}, realtime.StateOf(authstore.Snapshot{}))
	snap := authstore.Snapshot{Token: "t", User: &authstore.User{ID: 1, Role: authstore.RoleApplicant}}
	assert.Equal(t, realtime.State{Authenticated: true, Role: authstore.RoleApplicant}, realtime.StateOf(snap))
}
