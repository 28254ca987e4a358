// Package sessiondb persists serialized conversation contexts per session.
// Redis is the production backend; MemDB serves tests and single-process
// development. The payload is opaque JSON produced by convo.Serialize, so
// unknown fields written by newer versions survive a round-trip here.
package sessiondb

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is the session lifetime refreshed on every save.
const DefaultTTL = 24 * time.Hour

// ErrNotFound is returned when a session has no stored context.
var ErrNotFound = errors.New("sessiondb: session not found")

// DB stores one serialized context per session id.
type DB interface {
	// Load returns the stored context payload, or ErrNotFound.
	Load(ctx context.Context, sessionID string) (json.RawMessage, error)

	// Save writes the payload and refreshes the session TTL.
	Save(ctx context.Context, sessionID string, data json.RawMessage) error

	// Delete removes the session.
	Delete(ctx context.Context, sessionID string) error

	Close() error
}

// RedisDB is the redis-backed DB.
type RedisDB struct {
	client *redis.Client
	ttl    time.Duration
}

var _ DB = (*RedisDB)(nil)

// NewRedis connects to redis and verifies the connection with a ping.
// A non-positive ttl falls back to DefaultTTL.
func NewRedis(url string, ttl time.Duration) (*RedisDB, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, errors.Wrap(err, "connect to redis")
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	slog.Info("sessiondb: redis connected", "ttl", ttl.String())
	return &RedisDB{client: client, ttl: ttl}, nil
}

func (r *RedisDB) Load(ctx context.Context, sessionID string) (json.RawMessage, error) {
	data, err := r.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "load session context")
	}
	return data, nil
}

func (r *RedisDB) Save(ctx context.Context, sessionID string, data json.RawMessage) error {
	if err := r.client.Set(ctx, sessionKey(sessionID), []byte(data), r.ttl).Err(); err != nil {
		return errors.Wrap(err, "save session context")
	}
	return nil
}

func (r *RedisDB) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return errors.Wrap(err, "delete session context")
	}
	return nil
}

func (r *RedisDB) Close() error {
	return r.client.Close()
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("travelgo:session:%s", sessionID)
}

// MemDB is an in-process DB with lazy TTL expiry.
type MemDB struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memEntry

	// now is swappable for expiry tests.
	now func() time.Time
}

type memEntry struct {
	data      json.RawMessage
	expiresAt time.Time
}

var _ DB = (*MemDB)(nil)

// NewMem returns an in-memory DB. A non-positive ttl falls back to DefaultTTL.
func NewMem(ttl time.Duration) *MemDB {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemDB{
		ttl:     ttl,
		entries: make(map[string]memEntry),
		now:     time.Now,
	}
}

func (m *MemDB) Load(_ context.Context, sessionID string) (json.RawMessage, error) {
	m.mu.RLock()
	entry, ok := m.entries[sessionID]
	m.mu.RUnlock()
	if !ok || m.now().After(entry.expiresAt) {
		return nil, ErrNotFound
	}
	return entry.data, nil
}

func (m *MemDB) Save(_ context.Context, sessionID string, data json.RawMessage) error {
	copied := make(json.RawMessage, len(data))
	copy(copied, data)
	m.mu.Lock()
	m.entries[sessionID] = memEntry{data: copied, expiresAt: m.now().Add(m.ttl)}
	m.mu.Unlock()
	return nil
}

func (m *MemDB) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.entries, sessionID)
	m.mu.Unlock()
	return nil
}

func (m *MemDB) Close() error { return nil }
