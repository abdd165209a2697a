package ratefunc

import (
	"context"
	"time"
)

// MinCooldown is the shortest throttle window. Shorter cooldowns, zero
// included, are stretched to it by throttlers and by every CooldownStore,
// since Redis cannot expire a key any sooner.
const MinCooldown = time.Millisecond

// CooldownStore keeps throttle cooldown windows outside the throttler,
// typically so that several processes can share them.
type CooldownStore interface {
	// Acquire starts a cooldown window of length ttl for key and returns
	// true, unless a window for key is still active, in which case it
	// returns false. The check and the start must be atomic. A ttl below
	// MinCooldown opens a window of MinCooldown.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// StoreTTL returns the window a store opens for ttl.
func StoreTTL(ttl time.Duration) time.Duration {
	if ttl < MinCooldown {
		return MinCooldown
	}
	return ttl
}
