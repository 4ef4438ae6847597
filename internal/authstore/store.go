package authstore

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const persistTimeout = 5 * time.Second

// Listener receives the new snapshot after every change.
type Listener func(Snapshot)

// Store is the single source of truth for who is signed in on one client.
// Login and Logout are the only mutations; both replace token and user
// together, persist the result and notify subscribers.
type Store struct {
	writeMu   sync.Mutex
	mu        sync.RWMutex
	key       string
	state     Snapshot
	persister Persister
	logger    *slog.Logger
	observer  Listener

	subMu  sync.Mutex
	nextID uint64
	subs   []subscription
}

type subscription struct {
	id uint64
	fn Listener
}

// Option customises a Store.
type Option func(*Store)

// WithLogger routes persistence failures to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithObserver attaches fn as a silent listener: it sees every change but is
// not counted by Subscribers and cannot be cancelled.
func WithObserver(fn Listener) Option {
	return func(s *Store) { s.observer = fn }
}

// New returns an empty store that persists under key.
func New(key string, persister Persister, opts ...Option) *Store {
	if persister == nil {
		persister = NewMemoryPersister()
	}
	s := &Store{key: key, persister: persister}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open rehydrates the store for key from persister. A missing or unreadable
// entry yields a signed-out store.
func Open(ctx context.Context, key string, persister Persister, opts ...Option) *Store {
	s := New(key, persister, opts...)
	snap, err := s.persister.Load(ctx, key)
	if err != nil {
		s.logError("load session", err)
		return s
	}
	s.state = snap.normalize()
	return s
}

// Key identifies the persisted entry backing this store.
func (s *Store) Key() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

// Rekey moves the persisted entry to key. Subscribers stay attached and are
// not notified: the session itself is unchanged.
func (s *Store) Rekey(ctx context.Context, key string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	old := s.key
	s.key = key
	snap := s.state.clone()
	s.mu.Unlock()
	if old == key {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	if err := s.persister.Save(ctx, key, snap); err != nil {
		s.logError("persist rekeyed session", err)
	}
	if err := s.persister.Delete(ctx, old); err != nil {
		s.logError("delete previous session", err)
	}
}

// Login replaces the session. An empty token or nil user signs out instead so
// that user and token are always present together.
func (s *Store) Login(token string, user *User) {
	if token == "" || user == nil {
		s.Logout()
		return
	}
	u := *user
	s.set(Snapshot{Token: token, User: &u})
}

// Logout clears the session.
func (s *Store) Logout() {
	s.set(Snapshot{})
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Token returns the bearer token at the moment of the call.
func (s *Store) Token(context.Context) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// Subscribe registers fn for every change and returns its cancel func.
// Listeners run synchronously after the change is persisted and must not
// call Login or Logout.
func (s *Store) Subscribe(fn Listener) func() {
	s.subMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Subscribers reports how many listeners are attached.
func (s *Store) Subscribers() int {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return len(s.subs)
}

// Watch calls fn only when the value picked by selector changes.
func Watch[T comparable](s *Store, selector func(Snapshot) T, fn func(T)) func() {
	var mu sync.Mutex
	last := selector(s.Snapshot())
	return s.Subscribe(func(snap Snapshot) {
		next := selector(snap)
		mu.Lock()
		if next == last {
			mu.Unlock()
			return
		}
		last = next
		mu.Unlock()
		fn(next)
	})
}

func (s *Store) set(next Snapshot) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.state = next
	snap := next.clone()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	err := s.persister.Save(ctx, s.key, snap)
	cancel()
	if err != nil {
		s.logError("persist session", err)
	}

	if s.observer != nil {
		s.observer(snap.clone())
	}

	s.subMu.Lock()
	listeners := make([]Listener, len(s.subs))
	for i, sub := range s.subs {
		listeners[i] = sub.fn
	}
	s.subMu.Unlock()

	for _, fn := range listeners {
		fn(snap.clone())
	}
}

func (s *Store) logError(msg string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.Warn(msg, slog.String("key", s.key), slog.Any("error", err))
}
