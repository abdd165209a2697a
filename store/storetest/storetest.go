// Package storetest provides a conformance suite for ratefunc.CooldownStore
// implementations.
package storetest

import (
	"context"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/throttled/ratefunc"
)

// TestCooldownStore checks that Acquire opens one window per key and
// refuses a second acquisition while the window is active.
func TestCooldownStore(t *testing.T, st ratefunc.CooldownStore) {
	ctx := context.Background()
	key := "storetest-" + uuid.NewString()

	ok, err := st.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "first Acquire on a new key")

	ok, err = st.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	require.False(t, ok, "second Acquire inside the window")

	ok, err = st.Acquire(ctx, key+"-other", time.Minute)
	require.NoError(t, err)
	require.True(t, ok, "Acquire on a different key")
}

// TestCooldownStoreTTL checks that a window ends once its ttl has passed.
// It sleeps, so it uses a short ttl.
func TestCooldownStoreTTL(t *testing.T, st ratefunc.CooldownStore) {
	ctx := context.Background()
	key := "storetest-ttl-" + uuid.NewString()
	ttl := 50 * time.Millisecond

	ok, err := st.Acquire(ctx, key, ttl)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(ttl + 20*time.Millisecond)

	ok, err = st.Acquire(ctx, key, ttl)
	require.NoError(t, err)
	require.True(t, ok, "Acquire after the window expired")
}

// TestCooldownStoreMinTTL checks that zero and sub-millisecond ttls open a
// window of ratefunc.MinCooldown: a second Acquire may only succeed once
// that much time has passed, and the window still ends on its own.
func TestCooldownStoreMinTTL(t *testing.T, st ratefunc.CooldownStore) {
	ctx := context.Background()
	for i, ttl := range []time.Duration{0, time.Microsecond, ratefunc.MinCooldown - 1} {
		key := "storetest-minttl-" + uuid.NewString()

		start := time.Now()
		ok, err := st.Acquire(ctx, key, ttl)
		require.NoError(t, err)
		require.True(t, ok, "%d: first Acquire with ttl %s", i, ttl)

		ok, err = st.Acquire(ctx, key, ttl)
		require.NoError(t, err)
		if ok && time.Since(start) < ratefunc.MinCooldown {
			t.Errorf("%d: expected a ttl of %s to hold the key for %s", i, ttl, ratefunc.MinCooldown)
		}

		time.Sleep(ratefunc.MinCooldown + 20*time.Millisecond)
		ok, err = st.Acquire(ctx, key, ttl)
		require.NoError(t, err)
		require.True(t, ok, "%d: Acquire after a ttl of %s", i, ttl)
	}
}

// BenchmarkCooldownStore acquires a small set of keys in parallel.
func BenchmarkCooldownStore(b *testing.B, st ratefunc.CooldownStore) {
	ctx := context.Background()
	prefix := "storebench-" + uuid.NewString() + "-"
	var seq, acquired int64

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			key := prefix + strconv.FormatInt(atomic.AddInt64(&seq, 1)%50, 10)
			ok, err := st.Acquire(ctx, key, time.Millisecond)
			if err != nil {
				b.Error(err)
				return
			}
			if ok {
				atomic.AddInt64(&acquired, 1)
			}
		}
	})

	b.Logf("%d/%d acquisitions succeeded", acquired, seq)
}
