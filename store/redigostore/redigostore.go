// Package redigostore offers a Redis-based cooldown store for ratefunc
// using redigo.
package redigostore

import (
	"context"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/pkg/errors"

	"github.com/throttled/ratefunc"
)

// RedigoStore implements a Redis-based CooldownStore on a redigo pool.
type RedigoStore struct {
	pool   *redis.Pool
	prefix string
	db     int
}

// New creates a store that gets its connections from pool and selects db
// on each of them. Keys get the specified keyPrefix, which may be an empty
// string.
func New(pool *redis.Pool, keyPrefix string, db int) (*RedigoStore, error) {
	if pool == nil {
		return nil, errors.New("redigostore: nil pool")
	}
	return &RedigoStore{
		pool:   pool,
		prefix: keyPrefix,
		db:     db,
	}, nil
}

// Acquire runs SET key 1 PX ttl NX. A nil reply means the key, and so the
// window, already exists. Windows shorter than ratefunc.MinCooldown are
// stretched to it.
func (r *RedigoStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ms := int64(ratefunc.StoreTTL(ttl) / time.Millisecond)

	conn := r.pool.Get()
	defer conn.Close()
	if _, err := redis.String(conn.Do("SELECT", r.db)); err != nil {
		return false, errors.Wrapf(err, "redigostore: cannot select db %d", r.db)
	}

	_, err := redis.String(conn.Do("SET", r.prefix+key, 1, "PX", ms, "NX"))
	if err == redis.ErrNil {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "redigostore: cannot acquire %s", r.prefix+key)
	}
	return true, nil
}
