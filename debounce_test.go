package ratefunc_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/throttled/ratefunc"
	"github.com/throttled/ratefunc/schedtest"
	"github.com/throttled/ratefunc/store/memstore"
)

type fired struct {
	at  time.Duration
	arg string
}

func recorder(s *schedtest.Scheduler, log *[]fired) func(string) {
	return func(arg string) {
		*log = append(*log, fired{s.Elapsed(), arg})
	}
}

func TestDebounceCoalesces(t *testing.T) {
	s := schedtest.New()
	var got []fired
	fn, err := ratefunc.Debounce(recorder(s, &got), ratefunc.Delay(100*time.Millisecond), ratefunc.WithScheduler(s))
	require.NoError(t, err)

	fn("a")
	s.Advance(50 * time.Millisecond)
	fn("b")
	s.Advance(99 * time.Millisecond)
	assert.Empty(t, got, "nothing fires before the quiet period ends")

	s.Advance(time.Millisecond)
	assert.Equal(t, []fired{{150 * time.Millisecond, "b"}}, got)

	s.Advance(time.Second)
	assert.Len(t, got, 1, "a burst fires exactly once")
}

func TestDebounceBurst(t *testing.T) {
	s := schedtest.New()
	var got []fired
	fn, err := ratefunc.Debounce(recorder(s, &got), ratefunc.Delay(100*time.Millisecond), ratefunc.WithScheduler(s))
	require.NoError(t, err)

	for _, arg := range []string{"m", "ma", "man", "mang", "mango"} {
		fn(arg)
		s.Advance(60 * time.Millisecond)
	}
	s.Advance(time.Second)

	// The last call happened at 240ms.
	assert.Equal(t, []fired{{340 * time.Millisecond, "mango"}}, got)
	assert.Equal(t, 0, s.Pending())
}

func TestDebounceSingleCall(t *testing.T) {
	s := schedtest.New()
	var got []fired
	fn, err := ratefunc.Debounce(recorder(s, &got), ratefunc.Delay(100*time.Millisecond), ratefunc.WithScheduler(s))
	require.NoError(t, err)

	fn("only")
	s.Advance(time.Second)
	assert.Equal(t, []fired{{100 * time.Millisecond, "only"}}, got)
}

func TestDebounceSeparateBursts(t *testing.T) {
	s := schedtest.New()
	var got []fired
	fn, err := ratefunc.Debounce(recorder(s, &got), ratefunc.Delay(100*time.Millisecond), ratefunc.WithScheduler(s))
	require.NoError(t, err)

	fn("first")
	s.Advance(200 * time.Millisecond)
	fn("second")
	s.Advance(200 * time.Millisecond)

	assert.Equal(t, []fired{
		{100 * time.Millisecond, "first"},
		{300 * time.Millisecond, "second"},
	}, got)
}

func TestDebounceZeroDelayIsDeferred(t *testing.T) {
	s := schedtest.New()
	var got []fired
	fn, err := ratefunc.Debounce(recorder(s, &got), ratefunc.Delay(0), ratefunc.WithScheduler(s))
	require.NoError(t, err)

	fn("a")
	fn("b")
	assert.Empty(t, got, "a zero delay still goes through the scheduler")

	s.Advance(0)
	assert.Equal(t, []fired{{0, "b"}}, got)
}

func TestDebounceIsolation(t *testing.T) {
	s := schedtest.New()
	var got []fired
	action := recorder(s, &got)
	one, err := ratefunc.Debounce(action, ratefunc.Delay(100*time.Millisecond), ratefunc.WithScheduler(s))
	require.NoError(t, err)
	two, err := ratefunc.Debounce(action, ratefunc.Delay(100*time.Millisecond), ratefunc.WithScheduler(s))
	require.NoError(t, err)

	one("x")
	s.Advance(50 * time.Millisecond)
	two("y")
	s.Advance(time.Second)

	assert.Equal(t, []fired{
		{100 * time.Millisecond, "x"},
		{150 * time.Millisecond, "y"},
	}, got)
}

type searchArgs struct {
	Query string
	Page  int
	Tags  []string
}

func TestDebounceForwardsArguments(t *testing.T) {
	s := schedtest.New()
	var got []searchArgs
	fn, err := ratefunc.Debounce(func(a searchArgs) {
		got = append(got, a)
	}, ratefunc.Delay(10*time.Millisecond), ratefunc.WithScheduler(s))
	require.NoError(t, err)

	fn(searchArgs{Query: "kiw", Page: 1})
	fn(searchArgs{Query: "kiwi", Page: 2, Tags: []string{"fruit", "green"}})
	s.Advance(10 * time.Millisecond)

	assert.Equal(t, []searchArgs{{Query: "kiwi", Page: 2, Tags: []string{"fruit", "green"}}}, got)
}

func TestDebounceFunc(t *testing.T) {
	s := schedtest.New()
	n := 0
	fn, err := ratefunc.DebounceFunc(func() { n++ }, ratefunc.PerSec(10), ratefunc.WithScheduler(s))
	require.NoError(t, err)

	fn()
	fn()
	fn()
	s.Advance(100 * time.Millisecond)
	assert.Equal(t, 1, n)
}

func TestDebouncerPending(t *testing.T) {
	s := schedtest.New()
	d, err := ratefunc.NewDebouncer(func(string) {}, ratefunc.Delay(10*time.Millisecond), ratefunc.WithScheduler(s))
	require.NoError(t, err)

	assert.False(t, d.Pending())
	d.Call("a")
	assert.True(t, d.Pending())
	s.Advance(10 * time.Millisecond)
	assert.False(t, d.Pending())
}

// lateStop wraps a scheduler whose timers cannot be stopped, as happens
// when a callback has already left time.AfterFunc when Stop is called.
type lateStop struct {
	s *schedtest.Scheduler
}

type unstoppable struct{}

func (unstoppable) Stop() bool { return false }

func (l lateStop) AfterFunc(d time.Duration, f func()) ratefunc.Timer {
	l.s.AfterFunc(d, f)
	return unstoppable{}
}

func TestDebounceIgnoresStaleCallbacks(t *testing.T) {
	s := schedtest.New()
	var got []fired
	fn, err := ratefunc.Debounce(recorder(s, &got), ratefunc.Delay(100*time.Millisecond), ratefunc.WithScheduler(lateStop{s}))
	require.NoError(t, err)

	fn("a")
	s.Advance(50 * time.Millisecond)
	fn("b")
	s.Advance(time.Second)

	assert.Equal(t, []fired{{150 * time.Millisecond, "b"}}, got)
}

func TestDebouncePanicReachesScheduler(t *testing.T) {
	s := schedtest.New()
	fn, err := ratefunc.Debounce(func(string) {
		panic("boom")
	}, ratefunc.Delay(10*time.Millisecond), ratefunc.WithScheduler(s))
	require.NoError(t, err)

	assert.NotPanics(t, func() { fn("a") }, "the caller never sees the failure")
	assert.PanicsWithValue(t, "boom", func() { s.Advance(10 * time.Millisecond) })
}

func TestDebounceLogsSupersededCalls(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	s := schedtest.New()
	fn, err := ratefunc.Debounce(func(string) {}, ratefunc.Delay(10*time.Millisecond),
		ratefunc.WithScheduler(s), ratefunc.WithLogger(zap.New(core)))
	require.NoError(t, err)

	fn("a")
	fn("b")
	fn("c")
	s.Advance(10 * time.Millisecond)

	assert.Equal(t, 2, logs.FilterMessage("debounce: pending call superseded").Len())
}

func TestDebounceSystemScheduler(t *testing.T) {
	var (
		mu  sync.Mutex
		got []string
	)
	done := make(chan struct{}, 1)
	fn, err := ratefunc.Debounce(func(arg string) {
		mu.Lock()
		got = append(got, arg)
		mu.Unlock()
		done <- struct{}{}
	}, ratefunc.Delay(20*time.Millisecond))
	require.NoError(t, err)

	for _, arg := range []string{"a", "b", "c", "d"} {
		fn(arg)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("debounced func never fired")
	}
	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"d"}, got)
}

func TestDebounceInvalidConfig(t *testing.T) {
	st, err := memstore.New(0)
	require.NoError(t, err)
	action := func(string) {}

	cases := []struct {
		action func(string)
		delay  ratefunc.Delayer
		opts   []ratefunc.Option
		name   string
	}{
		0: {nil, ratefunc.Delay(time.Second), nil, "action"},
		1: {action, nil, nil, "delay"},
		2: {action, ratefunc.Delay(-time.Millisecond), nil, "delay"},
		3: {action, ratefunc.PerSec(-1), nil, "delay"},
		4: {action, ratefunc.Delay(0), []ratefunc.Option{nil}, "option"},
		5: {action, ratefunc.Delay(0), []ratefunc.Option{ratefunc.WithScheduler(nil)}, "scheduler"},
		6: {action, ratefunc.Delay(0), []ratefunc.Option{ratefunc.WithLogger(nil)}, "logger"},
		7: {action, ratefunc.Delay(0), []ratefunc.Option{ratefunc.WithStore(st)}, "store"},
	}
	for i, c := range cases {
		fn, err := ratefunc.Debounce(c.action, c.delay, c.opts...)
		if fn != nil {
			t.Errorf("%d: expected no func", i)
		}
		require.ErrorIs(t, err, ratefunc.ErrInvalidArgument, "case %d", i)
		var ae *ratefunc.ArgumentError
		require.ErrorAs(t, err, &ae, "case %d", i)
		assert.Equal(t, c.name, ae.Name, "case %d", i)
	}
}
