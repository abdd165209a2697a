package ratefunc

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// A Debouncer delays an action until calls to it have stopped arriving for
// a quiet period, then runs it once with the arguments of the last call.
//
// A Debouncer is safe for concurrent use. The action runs on whatever
// goroutine the Scheduler uses for its callbacks and is never invoked
// while the Debouncer holds its lock, so it may call back into the
// Debouncer.
type Debouncer[A any] struct {
	action func(A)
	delay  time.Duration
	sched  Scheduler
	log    *zap.Logger

	mu      sync.Mutex
	gen     uint64
	pending Timer
}

// NewDebouncer returns a Debouncer for action with the given quiet period.
// A zero delay still defers the action through the Scheduler.
func NewDebouncer[A any](action func(A), delay Delayer, opts ...Option) (*Debouncer[A], error) {
	if action == nil {
		return nil, invalidArg("action", nil, "nil func")
	}
	d, err := resolveDelay("delay", delay)
	if err != nil {
		return nil, err
	}
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	if cfg.store != nil {
		return nil, invalidArg("store", nil, "debounce does not use a cooldown store")
	}
	return newDebouncer(action, d, cfg), nil
}

func newDebouncer[A any](action func(A), delay time.Duration, cfg *config) *Debouncer[A] {
	return &Debouncer[A]{
		action: action,
		delay:  delay,
		sched:  cfg.scheduler,
		log:    cfg.logger,
	}
}

// Call cancels the pending invocation, if any, and schedules a new one
// with arg after the quiet period.
func (d *Debouncer[A]) Call(arg A) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending != nil && d.pending.Stop() {
		d.log.Debug("debounce: pending call superseded", zap.Duration("delay", d.delay))
	}
	// A callback that already left the scheduler when Stop was called sees
	// a stale generation and returns without firing.
	d.gen++
	gen := d.gen
	d.pending = d.sched.AfterFunc(d.delay, func() {
		d.fire(gen, arg)
	})
}

// Pending reports whether an invocation is scheduled and has not run yet.
// A callback its Scheduler discarded, as a Loop does once Run has
// returned, stays pending.
func (d *Debouncer[A]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

func (d *Debouncer[A]) fire(gen uint64, arg A) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.pending = nil
	d.mu.Unlock()

	d.action(arg)
}

// Debounce wraps action so that only the last of a burst of calls runs it,
// once delay has passed without a further call. The returned func never
// blocks and reports nothing back; panics raised by action surface through
// the Scheduler, not through the caller.
func Debounce[A any](action func(A), delay Delayer, opts ...Option) (func(A), error) {
	d, err := NewDebouncer(action, delay, opts...)
	if err != nil {
		return nil, err
	}
	return d.Call, nil
}

// DebounceFunc is Debounce for actions without arguments.
func DebounceFunc(action func(), delay Delayer, opts ...Option) (func(), error) {
	if action == nil {
		return nil, invalidArg("action", nil, "nil func")
	}
	fn, err := Debounce(func(struct{}) { action() }, delay, opts...)
	if err != nil {
		return nil, err
	}
	return func() { fn(struct{}{}) }, nil
}
