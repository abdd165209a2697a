// Package memstore offers an in-memory cooldown store for ratefunc.
package memstore

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/throttled/ratefunc"
)

// MemStore is an in-memory CooldownStore. It only shares cooldowns within
// one process; use a Redis-based store to share them between processes.
type MemStore struct {
	// Clock returns the current time. It defaults to time.Now.
	Clock func() time.Time

	mu   sync.Mutex
	keys *lru.Cache
	m    map[string]time.Time
}

// New sets up an in-memory store. If maxKeys > 0, the number of keys is
// bounded and the least recently used key is evicted to make room; an
// evicted key acquires again as if its window had ended. If maxKeys <= 0
// there is no bound on the number of keys.
func New(maxKeys int) (*MemStore, error) {
	if maxKeys <= 0 {
		return &MemStore{m: make(map[string]time.Time)}, nil
	}
	keys, err := lru.New(maxKeys)
	if err != nil {
		return nil, errors.Wrap(err, "memstore")
	}
	return &MemStore{keys: keys}, nil
}

// Acquire opens a window for key unless one is active. Like the Redis
// stores, it never opens a window shorter than ratefunc.MinCooldown.
func (ms *MemStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	now := ms.now()

	ms.mu.Lock()
	defer ms.mu.Unlock()
	if until, ok := ms.get(key); ok && now.Before(until) {
		return false, nil
	}
	ms.set(key, now.Add(ratefunc.StoreTTL(ttl)))
	return true, nil
}

// Len returns the number of keys held, expired or not.
func (ms *MemStore) Len() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.keys != nil {
		return ms.keys.Len()
	}
	return len(ms.m)
}

func (ms *MemStore) get(key string) (time.Time, bool) {
	if ms.keys != nil {
		v, ok := ms.keys.Get(key)
		if !ok {
			return time.Time{}, false
		}
		return v.(time.Time), true
	}
	v, ok := ms.m[key]
	return v, ok
}

func (ms *MemStore) set(key string, until time.Time) {
	if ms.keys != nil {
		ms.keys.Add(key, until)
		return
	}
	ms.m[key] = until
}

func (ms *MemStore) now() time.Time {
	if ms.Clock != nil {
		return ms.Clock()
	}
	return time.Now()
}
