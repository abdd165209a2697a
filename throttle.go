package ratefunc

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// dropLogInterval bounds how often a single throttler logs dropped calls.
const dropLogInterval = time.Second

// A Throttler runs an action at most once per cooldown window. The first
// call of a window fires immediately, on the caller's goroutine; later
// calls in the same window are dropped. Nothing fires when a window ends.
//
// The window is [fire, fire+cooldown): once the Scheduler has run the
// reset, the next call fires again. Cooldowns below MinCooldown, zero
// included, open a window of MinCooldown.
type Throttler[A any] struct {
	action   func(A)
	cooldown time.Duration
	sched    Scheduler
	log      *zap.Logger
	store    CooldownStore
	key      string
	onError  func(error)
	drops    rate.Sometimes

	mu      sync.Mutex
	cooling bool
}

// NewThrottler returns a Throttler for action with the given cooldown.
func NewThrottler[A any](action func(A), cooldown Delayer, opts ...Option) (*Throttler[A], error) {
	if action == nil {
		return nil, invalidArg("action", nil, "nil func")
	}
	d, err := resolveDelay("cooldown", cooldown)
	if err != nil {
		return nil, err
	}
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	return newThrottler(action, d, cfg, cfg.key), nil
}

func newThrottler[A any](action func(A), cooldown time.Duration, cfg *config, key string) *Throttler[A] {
	return &Throttler[A]{
		action:   action,
		cooldown: StoreTTL(cooldown),
		sched:    cfg.scheduler,
		log:      cfg.logger,
		store:    cfg.store,
		key:      key,
		onError:  cfg.onError,
		drops:    rate.Sometimes{First: 1, Interval: dropLogInterval},
	}
}

// Call runs the action with arg unless a cooldown window is active.
func (t *Throttler[A]) Call(arg A) {
	t.Try(arg)
}

// Try is Call that also reports whether the action ran. The error is
// non-nil only for store-backed throttlers whose store failed; the call is
// then dropped and the error has already been passed to the error handler.
func (t *Throttler[A]) Try(arg A) (bool, error) {
	ok, err := t.acquire()
	if err != nil {
		t.onError(err)
		return false, err
	}
	if !ok {
		t.drops.Do(func() {
			t.log.Debug("throttle: call dropped during cooldown", zap.Duration("cooldown", t.cooldown))
		})
		return false, nil
	}
	t.action(arg)
	return true, nil
}

func (t *Throttler[A]) acquire() (bool, error) {
	if t.store != nil {
		ok, err := t.store.Acquire(context.Background(), t.key, t.cooldown)
		if err != nil {
			return false, errors.Wrapf(err, "ratefunc: acquire cooldown %q", t.key)
		}
		return ok, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cooling {
		return false, nil
	}
	// Arm the reset before the action runs so a panicking action cannot
	// leave the throttler stuck in cooldown.
	t.cooling = true
	t.sched.AfterFunc(t.cooldown, t.reset)
	return true, nil
}

// inCooldown reports whether an in-memory window is open. Store-backed
// throttlers never report one.
func (t *Throttler[A]) inCooldown() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cooling
}

func (t *Throttler[A]) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cooling = false
}

// Throttle wraps action so that it fires on the first call and then
// ignores calls until cooldown has elapsed. Dropped calls are not queued.
func Throttle[A any](action func(A), cooldown Delayer, opts ...Option) (func(A), error) {
	t, err := NewThrottler(action, cooldown, opts...)
	if err != nil {
		return nil, err
	}
	return t.Call, nil
}

// ThrottleFunc is Throttle for actions without arguments.
func ThrottleFunc(action func(), cooldown Delayer, opts ...Option) (func(), error) {
	if action == nil {
		return nil, invalidArg("action", nil, "nil func")
	}
	fn, err := Throttle(func(struct{}) { action() }, cooldown, opts...)
	if err != nil {
		return nil, err
	}
	return func() { fn(struct{}{}) }, nil
}
