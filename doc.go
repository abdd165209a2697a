// Package ratefunc wraps functions with debounce and throttle semantics.
//
// Debounce coalesces a burst of calls into one invocation carrying the
// arguments of the last call, made once the calls have stopped for a quiet
// period:
//
//	search, err := ratefunc.Debounce(runQuery, ratefunc.Delay(300*time.Millisecond))
//	...
//	search(query) // on every keystroke
//
// Throttle runs the first call of a cooldown window immediately and drops
// the rest of the window:
//
//	onScroll, err := ratefunc.Throttle(logPosition, ratefunc.PerSec(2))
//
// Arguments are forwarded through the type parameter; actions that take
// several values take a struct. Every wait is a callback registered with a
// Scheduler, so wrapped funcs never block. Use WithScheduler to run the
// callbacks on a Loop, or on a manual scheduler from package schedtest in
// tests.
//
// Keyed variants (DebounceGroup, ThrottleGroup, HTTPThrottler) keep
// independent state per key. Throttles can keep their cooldown windows in a
// CooldownStore, see the store subpackages.
package ratefunc
