package ratefunc

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// An Option customizes a debouncer, a throttler or a keyed group of them.
type Option func(*config) error

type config struct {
	scheduler Scheduler
	logger    *zap.Logger
	store     CooldownStore
	key       string
	onError   func(error)
}

// WithScheduler replaces the SystemScheduler used for deferred calls.
func WithScheduler(s Scheduler) Option {
	return func(c *config) error {
		if s == nil {
			return invalidArg("scheduler", nil, "nil Scheduler")
		}
		c.scheduler = s
		return nil
	}
}

// WithLogger sets the logger that receives drop, reschedule and store
// failure events. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) error {
		if l == nil {
			return invalidArg("logger", nil, "nil Logger")
		}
		c.logger = l
		return nil
	}
}

// WithStore keeps throttle cooldown windows in st instead of in memory.
// The store's key expiry then ends the window. Only throttles accept it.
func WithStore(st CooldownStore) Option {
	return func(c *config) error {
		if st == nil {
			return invalidArg("store", nil, "nil CooldownStore")
		}
		c.store = st
		return nil
	}
}

// WithKey names the store key of a store-backed throttle. Throttlers that
// share a key and a store share their cooldown, which is how several
// processes throttle one action together. Without it every throttler gets
// a random key of its own.
func WithKey(key string) Option {
	return func(c *config) error {
		if key == "" {
			return invalidArg("key", nil, "empty key")
		}
		c.key = key
		return nil
	}
}

// WithErrorHandler receives cooldown store failures. The default logs them
// at error level.
func WithErrorHandler(fn func(error)) Option {
	return func(c *config) error {
		if fn == nil {
			return invalidArg("error handler", nil, "nil func")
		}
		c.onError = fn
		return nil
	}
}

func newConfig(opts []Option) (*config, error) {
	c := &config{
		scheduler: SystemScheduler{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		if opt == nil {
			return nil, invalidArg("option", nil, "nil Option")
		}
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.store != nil && c.key == "" {
		c.key = "throttle:" + uuid.NewString()
	}
	if c.onError == nil {
		logger := c.logger
		c.onError = func(err error) {
			logger.Error("cooldown store failed", zap.Error(err))
		}
	}
	return c, nil
}
