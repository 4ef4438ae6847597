package moderation

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type localBoard struct {
	board    Board
	loaded   bool
	inflight map[string]struct{}
	touched  time.Time
}

// Queue keeps one Board per browser session in memory. Entries untouched for
// longer than the sweep TTL are dropped and reloaded on the next visit.
type Queue struct {
	mu     sync.Mutex
	boards map[string]*localBoard
	now    func() time.Time
}

// NewQueue constructs an empty Queue.
func NewQueue() *Queue {
	return &Queue{boards: make(map[string]*localBoard), now: time.Now}
}

// Put replaces the board of session. Actions still in flight are kept.
func (q *Queue) Put(session string, board Board) {
	q.mu.Lock()
	defer q.mu.Unlock()
	entry, ok := q.boards[session]
	if !ok {
		entry = &localBoard{inflight: make(map[string]struct{})}
		q.boards[session] = entry
	}
	entry.board = board
	entry.loaded = true
	entry.touched = q.now()
}

// Board returns the local board of session. ok is false until Put has been
// called for it.
func (q *Queue) Board(session string) (board Board, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	entry, found := q.boards[session]
	if !found || !entry.loaded {
		return Board{}, false
	}
	entry.touched = q.now()
	return entry.board, true
}

func itemKey(section Section, id int64) string {
	return string(section) + "/" + strconv.FormatInt(id, 10)
}

// Begin marks an action on section/id as running. The returned func ends it;
// when removed is true the item also leaves the local board.
func (q *Queue) Begin(session string, section Section, id int64) (func(removed bool), error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	entry, ok := q.boards[session]
	if !ok {
		entry = &localBoard{inflight: make(map[string]struct{}), touched: q.now()}
		q.boards[session] = entry
	}
	key := itemKey(section, id)
	if _, busy := entry.inflight[key]; busy {
		return nil, ErrActionInFlight
	}
	entry.inflight[key] = struct{}{}

	var once sync.Once
	return func(removed bool) {
		once.Do(func() {
			q.mu.Lock()
			defer q.mu.Unlock()
			delete(entry.inflight, key)
			if removed {
				entry.board = entry.board.Without(section, id)
			}
			entry.touched = q.now()
		})
	}, nil
}

// Forget drops the board of session.
func (q *Queue) Forget(session string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.boards, session)
}

// Len reports how many sessions hold a board.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.boards)
}

// Sweep drops boards idle for longer than ttl with nothing in flight and
// returns how many were dropped.
func (q *Queue) Sweep(ttl time.Duration) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	cutoff := q.now().Add(-ttl)
	dropped := 0
	for session, entry := range q.boards {
		if len(entry.inflight) == 0 && entry.touched.Before(cutoff) {
			delete(q.boards, session)
			dropped++
		}
	}
	return dropped
}

// Run sweeps every interval until ctx is done.
func (q *Queue) Run(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.Sweep(ttl)
		}
	}
}
