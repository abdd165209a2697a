package ratefunc

import "time"

// A Timer is the handle of a deferred call returned by a Scheduler.
type Timer interface {
	// Stop prevents the deferred call from running. It returns false if the
	// call already ran or was already stopped.
	Stop() bool
}

// A Scheduler runs callbacks after a delay without blocking the caller.
// Debouncers and throttlers never sleep; every wait they need is a
// callback registered here.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemScheduler schedules callbacks with time.AfterFunc. Each callback
// runs on its own goroutine, so a panic in it takes the process down like
// any other unrecovered goroutine panic.
type SystemScheduler struct{}

var _ Scheduler = SystemScheduler{}

func (SystemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
