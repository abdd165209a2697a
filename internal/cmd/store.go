package cmd

import (
	"time"

	goredis "github.com/go-redis/redis"
	"github.com/gomodule/redigo/redis"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/throttled/ratefunc"
	"github.com/throttled/ratefunc/internal/config"
	"github.com/throttled/ratefunc/store/goredisstore"
	"github.com/throttled/ratefunc/store/memstore"
	"github.com/throttled/ratefunc/store/redigostore"
)

// openStore returns the cooldown store selected by cfg, or nil for the
// none driver, and a func releasing its connections.
func openStore(cfg config.StoreConfig, log *zap.Logger) (ratefunc.CooldownStore, func() error, error) {
	noop := func() error { return nil }
	log = log.With(zap.String("driver", cfg.Driver))

	switch cfg.Driver {
	case config.DriverNone:
		return nil, noop, nil

	case config.DriverMemory:
		st, err := memstore.New(cfg.MaxKeys)
		if err != nil {
			return nil, nil, err
		}
		log.Debug("cooldown store opened", zap.Int("max_keys", cfg.MaxKeys))
		return st, noop, nil

	case config.DriverGoRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		st, err := goredisstore.New(client, cfg.Prefix)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		log.Debug("cooldown store opened", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
		return st, client.Close, nil

	case config.DriverRedigo:
		addr, password := cfg.Addr, cfg.Password
		pool := &redis.Pool{
			MaxIdle:     3,
			IdleTimeout: 240 * time.Second,
			Dial: func() (redis.Conn, error) {
				return redis.Dial("tcp", addr, redis.DialPassword(password))
			},
		}
		st, err := redigostore.New(pool, cfg.Prefix, cfg.DB)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Debug("cooldown store opened", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
		return st, pool.Close, nil
	}
	return nil, nil, errors.Errorf("unknown store driver %q", cfg.Driver)
}

// storeOptions returns the throttle options for st, named key when st is
// not nil.
func storeOptions(st ratefunc.CooldownStore, key string) []ratefunc.Option {
	if st == nil {
		return nil
	}
	opts := []ratefunc.Option{ratefunc.WithStore(st)}
	if key != "" {
		opts = append(opts, ratefunc.WithKey(key))
	}
	return opts
}

// closeQuietly runs closeFn at shutdown; a failure only matters for
// debugging by then.
func closeQuietly(log *zap.Logger, closeFn func() error) {
	if err := closeFn(); err != nil {
		log.Debug("cooldown store close failed", zap.Error(err))
	}
}
