package ratefunc

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

// Loop is a single-goroutine event loop. Posted tasks and the callbacks of
// timers armed through AfterFunc all run one at a time, in order, on the
// goroutine that called Run. Event producers that post their calls to a
// Loop, and wrappers that use it as their Scheduler, never observe two
// callbacks running at once.
//
// A task that panics is recovered, logged and handed to the LoopOnPanic
// hook; the loop then moves on to the next task.
type Loop struct {
	log     *zap.Logger
	onPanic func(error)

	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}
}

var _ Scheduler = (*Loop)(nil)

// A LoopOption customizes a Loop.
type LoopOption func(*Loop)

// LoopLogger sets the logger used to report task panics.
func LoopLogger(l *zap.Logger) LoopOption {
	return func(lp *Loop) {
		if l != nil {
			lp.log = l
		}
	}
}

// LoopOnPanic registers fn to receive the panics of failed tasks.
func LoopOnPanic(fn func(error)) LoopOption {
	return func(lp *Loop) {
		lp.onPanic = fn
	}
}

func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		log:  zap.NewNop(),
		wake: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Post queues f to run on the loop. It never blocks and returns false once
// Run has returned.
func (l *Loop) Post(f func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, f)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Run executes tasks until ctx is done and returns ctx.Err(). Tasks still
// queued at that point are discarded. Run must not be called twice.
func (l *Loop) Run(ctx context.Context) error {
	defer l.close()
	for {
		if err := l.drain(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

func (l *Loop) drain(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return nil
		}
		f := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.exec(f)
	}
}

func (l *Loop) exec(f func()) {
	r := panics.Try(f)
	if r == nil {
		return
	}
	err := r.AsError()
	l.log.Error("loop: task panicked", zap.Error(err))
	if l.onPanic != nil {
		l.onPanic(err)
	}
}

func (l *Loop) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.queue = nil
}

const (
	timerPending int32 = iota
	timerFired
	timerStopped
)

type loopTimer struct {
	t     *time.Timer
	state atomic.Int32
}

// AfterFunc posts f to the loop once d has elapsed. If Run has returned by
// then, f is discarded and the timer counts as stopped; wrappers using the
// loop, such as a Debouncer, keep reporting the call as pending.
func (l *Loop) AfterFunc(d time.Duration, f func()) Timer {
	lt := &loopTimer{}
	lt.t = time.AfterFunc(d, func() {
		posted := l.Post(func() {
			if lt.state.CompareAndSwap(timerPending, timerFired) {
				f()
			}
		})
		if !posted {
			lt.state.CompareAndSwap(timerPending, timerStopped)
		}
	})
	return lt
}

// Stop reports true only if it kept the callback from running, including
// when the callback was already queued on the loop. It reports false for a
// callback discarded by a loop that is no longer running.
func (lt *loopTimer) Stop() bool {
	if !lt.state.CompareAndSwap(timerPending, timerStopped) {
		return false
	}
	lt.t.Stop()
	return true
}
