package ratefunc

import "time"

// A Delayer describes the length of a debounce quiet period or of a
// throttle cooldown window.
type Delayer interface {
	Delay() time.Duration
}

// PerSec spaces calls so that at most n of them fire each second.
// PerSec(0) means no spacing at all; a negative count yields a negative
// delay, which the constructors reject.
type PerSec int

func (ps PerSec) Delay() time.Duration {
	return per(int(ps), time.Second)
}

type PerMin int

func (pm PerMin) Delay() time.Duration {
	return per(int(pm), time.Minute)
}

type PerHour int

func (ph PerHour) Delay() time.Duration {
	return per(int(ph), time.Hour)
}

type PerDay int

func (pd PerDay) Delay() time.Duration {
	return per(int(pd), 24*time.Hour)
}

// Delay is a fixed duration.
type Delay time.Duration

func (d Delay) Delay() time.Duration {
	return time.Duration(d)
}

func per(n int, period time.Duration) time.Duration {
	if n == 0 {
		return 0
	}
	return time.Duration(1.0 / float64(n) * float64(period))
}

// resolveDelay turns a Delayer into a usable duration, failing on nil or
// negative values.
func resolveDelay(name string, d Delayer) (time.Duration, error) {
	if d == nil {
		return 0, invalidArg(name, nil, "nil Delayer")
	}
	v := d.Delay()
	if v < 0 {
		return 0, invalidArg(name, v, "negative duration")
	}
	return v, nil
}
