// Package idempotency maps client-supplied keys to previously produced
// responses so retransmitted mutations replay instead of re-executing.
package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const TTL = 24 * time.Hour

type Ledger interface {
	// Check returns the cached response for key, if any.
	Check(ctx context.Context, key string) ([]byte, bool, error)
	// Store caches the response under key for the ledger TTL.
	Store(ctx context.Context, key string, response []byte) error
}

// MemoryLedger is the single-process fallback. It is not durable across
// restarts and not shared across instances; deployments running more than
// one process must configure the Redis ledger instead.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	response []byte
	storedAt time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[string]memoryEntry)}
}

func (l *MemoryLedger) Check(_ context.Context, key string) ([]byte, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	entry, ok := l.entries[key]
	if !ok || time.Since(entry.storedAt) > TTL {
		return nil, false, nil
	}
	return entry.response, true, nil
}

func (l *MemoryLedger) Store(_ context.Context, key string, response []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[key] = memoryEntry{response: response, storedAt: time.Now()}
	return nil
}

// StartSweeper evicts expired entries periodically until ctx is cancelled.
func (l *MemoryLedger) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.sweep()
			}
		}
	}()
}

func (l *MemoryLedger) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, entry := range l.entries {
		if now.Sub(entry.storedAt) > TTL {
			delete(l.entries, key)
		}
	}
}

// RedisLedger shares the ledger across instances via the cache the rest of
// the service already depends on.
type RedisLedger struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisLedger(rdb *redis.Client) *RedisLedger {
	return &RedisLedger{rdb: rdb, prefix: "idempotency:"}
}

func (l *RedisLedger) Check(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := l.rdb.Get(ctx, l.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (l *RedisLedger) Store(ctx context.Context, key string, response []byte) error {
	return l.rdb.Set(ctx, l.prefix+key, response, TTL).Err()
}
