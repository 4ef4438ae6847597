package authstore

import (
	"context"
	"sync"
	"time"
)

// Hub hands out one live Store per browser session so that every request of
// that browser, and every subscriber, shares the same state.
type Hub struct {
	persister Persister
	opts      []Option
	now       func() time.Time

	mu     sync.Mutex
	stores map[string]*hubEntry
}

type hubEntry struct {
	store    *Store
	lastSeen time.Time
}

// NewHub constructs a Hub whose stores persist through persister.
func NewHub(persister Persister, opts ...Option) *Hub {
	return &Hub{
		persister: persister,
		opts:      opts,
		now:       time.Now,
		stores:    make(map[string]*hubEntry),
	}
}

// Open returns the live store for key, rehydrating it on first use.
func (h *Hub) Open(ctx context.Context, key string) *Store {
	h.mu.Lock()
	if entry, ok := h.stores[key]; ok {
		entry.lastSeen = h.now()
		h.mu.Unlock()
		return entry.store
	}
	h.mu.Unlock()

	store := Open(ctx, key, h.persister, h.opts...)

	h.mu.Lock()
	defer h.mu.Unlock()
	if entry, ok := h.stores[key]; ok {
		entry.lastSeen = h.now()
		return entry.store
	}
	h.stores[key] = &hubEntry{store: store, lastSeen: h.now()}
	return store
}

// Rekey moves the live store of oldKey to newKey and returns it. Used when a
// browser session ID is rotated; listeners of the store keep receiving changes.
func (h *Hub) Rekey(ctx context.Context, oldKey, newKey string) *Store {
	store := h.Open(ctx, oldKey)

	h.mu.Lock()
	delete(h.stores, oldKey)
	h.stores[newKey] = &hubEntry{store: store, lastSeen: h.now()}
	h.mu.Unlock()

	store.Rekey(ctx, newKey)
	return store
}

// Forget drops the live store for key; the persisted entry is kept.
func (h *Hub) Forget(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.stores, key)
}

// Len reports how many stores are live.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.stores)
}

// Sweep evicts stores idle for longer than idle that have no subscribers.
func (h *Hub) Sweep(idle time.Duration) int {
	cutoff := h.now().Add(-idle)
	h.mu.Lock()
	defer h.mu.Unlock()
	evicted := 0
	for key, entry := range h.stores {
		if entry.lastSeen.After(cutoff) || entry.store.Subscribers() > 0 {
			continue
		}
		delete(h.stores, key)
		evicted++
	}
	return evicted
}

// Run sweeps every interval until ctx is done.
func (h *Hub) Run(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Sweep(idle)
		}
	}
}
