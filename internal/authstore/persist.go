package authstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Persister stores one serialized session per key.
type Persister interface {
	Load(ctx context.Context, key string) (Snapshot, error)
	Save(ctx context.Context, key string, snap Snapshot) error
	Delete(ctx context.Context, key string) error
}

// RedisPersister keeps sessions under "auth-storage:<key>".
type RedisPersister struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPersister constructs a RedisPersister. A zero ttl keeps entries forever.
func NewRedisPersister(client *redis.Client, ttl time.Duration) *RedisPersister {
	return &RedisPersister{client: client, ttl: ttl}
}

// Load reads the session for key; a missing entry is a signed-out session.
func (p *RedisPersister) Load(ctx context.Context, key string) (Snapshot, error) {
	payload, err := p.client.Get(ctx, p.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Snapshot{}, nil
		}
		return Snapshot{}, fmt.Errorf("authstore: redis get: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("authstore: decode session: %w", err)
	}
	return snap, nil
}

// Save writes snap, refreshing the entry's TTL.
func (p *RedisPersister) Save(ctx context.Context, key string, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := p.client.Set(ctx, p.redisKey(key), data, p.ttl).Err(); err != nil {
		return fmt.Errorf("authstore: redis set: %w", err)
	}
	return nil
}

func (p *RedisPersister) redisKey(key string) string {
	return StorageNamespace + ":" + key
}

// Delete removes the entry for key.
func (p *RedisPersister) Delete(ctx context.Context, key string) error {
	if err := p.client.Del(ctx, p.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("authstore: redis del: %w", err)
	}
	return nil
}

// FilePersister keeps a single session in a JSON file, for terminal clients.
// The key is ignored: the file itself is the namespace.
type FilePersister struct {
	path string
	mu   sync.Mutex
}

// NewFilePersister stores the session at path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// DefaultFilePath returns <user config dir>/<app>/auth-storage.json.
func DefaultFilePath(app string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, app, StorageNamespace+".json"), nil
}

// Path reports where the session is stored.
func (p *FilePersister) Path() string {
	return p.path
}

func (p *FilePersister) Load(_ context.Context, _ string) (Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{}, nil
		}
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("authstore: decode %s: %w", p.path, err)
	}
	return snap, nil
}

func (p *FilePersister) Save(_ context.Context, _ string, snap Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o700); err != nil {
		return err
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, p.path)
}

// Delete is a no-op: the file belongs to whichever key saves next.
func (p *FilePersister) Delete(context.Context, string) error {
	return nil
}

// MemoryPersister keeps sessions in process memory.
type MemoryPersister struct {
	mu      sync.Mutex
	entries map[string]Snapshot
	saves   int
}

// NewMemoryPersister returns an empty MemoryPersister.
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{entries: make(map[string]Snapshot)}
}

func (p *MemoryPersister) Load(_ context.Context, key string) (Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.entries[key].clone(), nil
}

func (p *MemoryPersister) Save(_ context.Context, key string, snap Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[key] = snap.clone()
	p.saves++
	return nil
}

func (p *MemoryPersister) Delete(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, key)
	return nil
}

// Has reports whether key has a persisted entry.
func (p *MemoryPersister) Has(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.entries[key]
	return ok
}

// Saves reports how many writes happened.
func (p *MemoryPersister) Saves() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}
