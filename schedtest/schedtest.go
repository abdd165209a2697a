// Package schedtest provides a manually driven ratefunc.Scheduler for
// deterministic tests of timing behavior.
package schedtest

import (
	"sync"
	"time"

	"github.com/throttled/ratefunc"
)

// Scheduler keeps virtual time that only moves when Advance is called.
// Callbacks run on the goroutine calling Advance.
type Scheduler struct {
	mu     sync.Mutex
	start  time.Time
	now    time.Duration
	seq    uint64
	timers []*timer
}

var _ ratefunc.Scheduler = (*Scheduler)(nil)

type timer struct {
	s    *Scheduler
	at   time.Duration
	seq  uint64
	f    func()
	done bool
}

// New returns a Scheduler whose clock starts at the Unix epoch.
func New() *Scheduler {
	return &Scheduler{start: time.Unix(0, 0).UTC()}
}

func (s *Scheduler) AfterFunc(d time.Duration, f func()) ratefunc.Timer {
	if d < 0 {
		d = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &timer{s: s, at: s.now + d, seq: s.seq, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (t *timer) Stop() bool {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	for i, o := range s.timers {
		if o == t {
			s.timers = append(s.timers[:i], s.timers[i+1:]...)
			break
		}
	}
	return true
}

// Advance moves the clock forward by d, running every callback that comes
// due on the way in deadline order, ties in arming order. Callbacks armed
// by other callbacks run too if they fall due before the end of d.
// Advance(0) runs callbacks armed with a zero delay.
func (s *Scheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		s.mu.Lock()
		t := s.popDue(target)
		if t == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		s.now = t.at
		s.mu.Unlock()

		t.f()
	}
}

func (s *Scheduler) popDue(target time.Duration) *timer {
	idx := -1
	for i, t := range s.timers {
		if t.at > target {
			continue
		}
		if idx < 0 || t.at < s.timers[idx].at || (t.at == s.timers[idx].at && t.seq < s.timers[idx].seq) {
			idx = i
		}
	}
	if idx < 0 {
		return nil
	}
	t := s.timers[idx]
	s.timers = append(s.timers[:idx], s.timers[idx+1:]...)
	t.done = true
	return t
}

// Elapsed returns the virtual time passed since New.
func (s *Scheduler) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Now returns the virtual wall clock, suitable as a store clock.
func (s *Scheduler) Now() time.Time {
	return s.start.Add(s.Elapsed())
}

// Pending returns the number of armed callbacks that have not run.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
