package ratefunc_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/throttled/ratefunc"
	"github.com/throttled/ratefunc/schedtest"
	"github.com/throttled/ratefunc/store/memstore"
)

type keyedCall struct {
	at  time.Duration
	key string
	arg string
}

func TestDebounceGroup(t *testing.T) {
	s := schedtest.New()
	var got []keyedCall
	g, err := ratefunc.NewDebounceGroup(func(key, arg string) {
		got = append(got, keyedCall{s.Elapsed(), key, arg})
	}, ratefunc.Delay(100*time.Millisecond), 0, ratefunc.WithScheduler(s))
	require.NoError(t, err)

	g.Call("name", "J")
	g.Call("email", "j@")
	s.Advance(50 * time.Millisecond)
	g.Call("name", "Jo")
	s.Advance(time.Second)

	assert.Equal(t, []keyedCall{
		{100 * time.Millisecond, "email", "j@"},
		{150 * time.Millisecond, "name", "Jo"},
	}, got)
	assert.Equal(t, 2, g.Len())
}

func TestDebounceGroupEviction(t *testing.T) {
	s := schedtest.New()
	var got []keyedCall
	g, err := ratefunc.NewDebounceGroup(func(key, arg string) {
		got = append(got, keyedCall{s.Elapsed(), key, arg})
	}, ratefunc.Delay(100*time.Millisecond), 1, ratefunc.WithScheduler(s))
	require.NoError(t, err)

	g.Call("a", "x")
	g.Call("b", "1")
	assert.Equal(t, 1, g.Len())
	s.Advance(50 * time.Millisecond)
	g.Call("a", "y")

	s.Advance(time.Second)
	assert.Equal(t, []keyedCall{
		{100 * time.Millisecond, "b", "1"},
		{150 * time.Millisecond, "a", "y"},
	}, got, "an evicted key with a pending call keeps coalescing")

	got = nil
	g.Call("b", "2")
	g.Call("c", "3")
	g.Call("b", "4")
	s.Advance(time.Second)
	assert.Equal(t, []keyedCall{
		{1150 * time.Millisecond, "c", "3"},
		{1150 * time.Millisecond, "b", "4"},
	}, got)
}

func TestThrottleGroupEviction(t *testing.T) {
	s := schedtest.New()
	var got []keyedCall
	g, err := ratefunc.NewThrottleGroup(func(key, arg string) {
		got = append(got, keyedCall{s.Elapsed(), key, arg})
	}, ratefunc.Delay(500*time.Millisecond), 1, ratefunc.WithScheduler(s))
	require.NoError(t, err)

	g.Call("a", "1")
	g.Call("b", "2")
	g.Call("a", "dropped")
	s.Advance(500 * time.Millisecond)
	g.Call("a", "3")

	assert.Equal(t, []keyedCall{
		{0, "a", "1"},
		{0, "b", "2"},
		{500 * time.Millisecond, "a", "3"},
	}, got, "eviction does not reopen a window")
}

func TestThrottleGroup(t *testing.T) {
	s := schedtest.New()
	var got []keyedCall
	g, err := ratefunc.NewThrottleGroup(func(key, arg string) {
		got = append(got, keyedCall{s.Elapsed(), key, arg})
	}, ratefunc.Delay(500*time.Millisecond), 0, ratefunc.WithScheduler(s))
	require.NoError(t, err)

	ok, err := g.Try("a", "1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Try("a", "2")
	require.NoError(t, err)
	assert.False(t, ok)

	g.Call("b", "3")
	s.Advance(500 * time.Millisecond)
	g.Call("a", "4")

	assert.Equal(t, []keyedCall{
		{0, "a", "1"},
		{0, "b", "3"},
		{500 * time.Millisecond, "a", "4"},
	}, got)
}

func TestThrottleGroupStoreKeys(t *testing.T) {
	st, err := memstore.New(0)
	require.NoError(t, err)

	n := 0
	g, err := ratefunc.NewThrottleGroup(func(string, struct{}) { n++ },
		ratefunc.Delay(time.Hour), 1, ratefunc.WithStore(st), ratefunc.WithKey("g"))
	require.NoError(t, err)

	g.Call("a", struct{}{})
	g.Call("b", struct{}{})
	g.Call("a", struct{}{})
	assert.Equal(t, 2, n, "a store-backed window survives eviction")

	ok, err := st.Acquire(context.Background(), "g:a", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "member keys are prefixed with the group key")
}

func TestGroupInvalidConfig(t *testing.T) {
	_, err := ratefunc.NewDebounceGroup[string](nil, ratefunc.Delay(0), 0)
	require.ErrorIs(t, err, ratefunc.ErrInvalidArgument)

	st, err := memstore.New(0)
	require.NoError(t, err)
	_, err = ratefunc.NewDebounceGroup(func(string, string) {}, ratefunc.Delay(0), 0, ratefunc.WithStore(st))
	require.ErrorIs(t, err, ratefunc.ErrInvalidArgument)

	_, err = ratefunc.NewThrottleGroup(func(string, string) {}, nil, 0)
	require.ErrorIs(t, err, ratefunc.ErrInvalidArgument)
}
