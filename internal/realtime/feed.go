// Package realtime pushes auth-state changes of a browser session to its open
// tabs over a websocket, so a login or logout in one tab re-renders the rest.
package realtime

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/technopolis/careers-portal/internal/authstore"
	"github.com/technopolis/careers-portal/internal/platform/httpx"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Message is one frame sent to the browser.
type Message struct {
	Type          string         `json:"type"`
	Authenticated bool           `json:"authenticated"`
	Role          authstore.Role `json:"role,omitempty"`
}

// State is the part of a snapshot the feed reports.
type State struct {
	Authenticated bool
	Role          authstore.Role
}

// StateOf projects snap onto State.
func StateOf(snap authstore.Snapshot) State {
	return State{Authenticated: snap.IsAuthenticated(), Role: snap.Role()}
}

func (s State) message() Message {
	return Message{Type: "session", Authenticated: s.Authenticated, Role: s.Role}
}

// Gauge tracks open feeds.
type Gauge interface {
	LiveFeedOpened() func()
}

// Feed serves GET /ws/session.
type Feed struct {
	logger   *slog.Logger
	gauge    Gauge
	upgrader websocket.Upgrader
}

// NewFeed constructs a Feed. gauge may be nil. The upgrader keeps gorilla's
// same-origin check.
func NewFeed(logger *slog.Logger, gauge Gauge) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		logger: logger,
		gauge:  gauge,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// ServeHTTP upgrades the request and streams state changes of the request's
// auth store until either side goes away.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	store := authstore.FromContext(r.Context())
	if store == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "auth store unavailable")
		return
	}
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Debug("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer func() { _ = conn.Close() }()

	if f.gauge != nil {
		closeGauge := f.gauge.LiveFeedOpened()
		defer closeGauge()
	}

	updates := make(chan State, 1)
	unsubscribe := authstore.Watch(store, StateOf, func(s State) {
		for {
			select {
			case updates <- s:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := write(conn, StateOf(store.Snapshot()).message()); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case s := <-updates:
			if err := write(conn, s.message()); err != nil {
				f.logger.Debug("websocket write failed", slog.Any("error", err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func write(conn *websocket.Conn, msg Message) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}
