// Package goredisstore offers a Redis-based cooldown store for ratefunc
// using go-redis.
package goredisstore

import (
	"context"
	"time"

	"github.com/go-redis/redis"
	"github.com/pkg/errors"

	"github.com/throttled/ratefunc"
)

// Client is the part of the go-redis API the store needs. Both
// *redis.Client and *redis.ClusterClient implement it.
type Client interface {
	SetNX(key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// GoRedisStore implements a Redis-based CooldownStore. A window is a key
// set with NX and a millisecond expiry, so Redis ends it on its own.
type GoRedisStore struct {
	client Client
	prefix string
}

// New creates a store on client. Keys get the specified keyPrefix, which
// may be an empty string.
func New(client Client, keyPrefix string) (*GoRedisStore, error) {
	if client == nil {
		return nil, errors.New("goredisstore: nil client")
	}
	return &GoRedisStore{
		client: client,
		prefix: keyPrefix,
	}, nil
}

// Acquire sets the key only if it does not exist. Windows shorter than
// ratefunc.MinCooldown are stretched to it; an expiry of zero would make
// the key permanent.
func (r *GoRedisStore) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	ok, err := r.client.SetNX(r.prefix+key, 1, ratefunc.StoreTTL(ttl)).Result()
	if err != nil {
		return false, errors.Wrapf(err, "goredisstore: cannot acquire %s", r.prefix+key)
	}
	return ok, nil
}
