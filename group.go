package ratefunc

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// keyed lazily creates one value per key. With maxKeys > 0 the least
// recently used key is evicted when the limit is reached; otherwise keys
// accumulate without bound. An evicted value that busy reports as still in
// use is parked, and a later get for its key returns it again instead of
// building a new one. Parked values that have gone idle are swept on the
// next eviction.
type keyed[T any] struct {
	build func(key string) T
	busy  func(T) bool
	log   *zap.Logger

	mu     sync.Mutex
	keys   *lru.Cache
	m      map[string]T
	parked map[string]T
}

func newKeyed[T any](maxKeys int, log *zap.Logger, build func(key string) T, busy func(T) bool) (*keyed[T], error) {
	k := &keyed[T]{build: build, busy: busy, log: log}
	if maxKeys <= 0 {
		k.m = make(map[string]T)
		return k, nil
	}
	keys, err := lru.NewWithEvict(maxKeys, k.evicted)
	if err != nil {
		return nil, err
	}
	k.keys = keys
	k.parked = make(map[string]T)
	return k, nil
}

// evicted runs inside keys.Add, with k.mu held.
func (k *keyed[T]) evicted(key, value interface{}) {
	for pk, pv := range k.parked {
		if !k.busy(pv) {
			delete(k.parked, pk)
		}
	}
	v := value.(T)
	if k.busy(v) {
		k.parked[key.(string)] = v
		k.log.Debug("group: busy key evicted, parked", zap.Any("key", key))
		return
	}
	k.log.Debug("group: key evicted", zap.Any("key", key))
}

func (k *keyed[T]) get(key string) T {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.keys != nil {
		if v, ok := k.keys.Get(key); ok {
			return v.(T)
		}
		v, ok := k.parked[key]
		if ok {
			delete(k.parked, key)
		} else {
			v = k.build(key)
		}
		k.keys.Add(key, v)
		return v
	}

	v, ok := k.m[key]
	if !ok {
		v = k.build(key)
		k.m[key] = v
	}
	return v
}

// len counts the keys held in the LRU, not the parked ones.
func (k *keyed[T]) len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.keys != nil {
		return k.keys.Len()
	}
	return len(k.m)
}

// DebounceGroup debounces an action independently for each key, e.g. one
// quiet period per input field. A key evicted while its call is pending
// keeps its debouncer until the call fires, so a burst on one key is never
// split by eviction.
type DebounceGroup[A any] struct {
	keys *keyed[*Debouncer[A]]
}

// NewDebounceGroup returns a DebounceGroup that remembers at most maxKeys
// keys, or any number of them if maxKeys <= 0.
func NewDebounceGroup[A any](action func(key string, arg A), delay Delayer, maxKeys int, opts ...Option) (*DebounceGroup[A], error) {
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
	keys, err := newKeyed(maxKeys, cfg.logger, func(key string) *Debouncer[A] {
		return newDebouncer(func(arg A) { action(key, arg) }, d, cfg)
	}, (*Debouncer[A]).Pending)
	if err != nil {
		return nil, err
	}
	return &DebounceGroup[A]{keys: keys}, nil
}

func (g *DebounceGroup[A]) Call(key string, arg A) {
	g.keys.get(key).Call(arg)
}

// Len returns the number of keys held within maxKeys. Evicted keys whose
// call is still pending are not counted.
func (g *DebounceGroup[A]) Len() int {
	return g.keys.len()
}

// ThrottleGroup throttles an action independently for each key. When the
// group is store-backed, the store key of each member is the group key
// (see WithKey) followed by ":" and the member key.
type ThrottleGroup[A any] struct {
	keys *keyed[*Throttler[A]]
}

// NewThrottleGroup returns a ThrottleGroup that remembers at most maxKeys
// keys, or any number of them if maxKeys <= 0. A key evicted during its
// cooldown keeps its throttler until the window ends, so eviction never
// reopens a window early.
func NewThrottleGroup[A any](action func(key string, arg A), cooldown Delayer, maxKeys int, opts ...Option) (*ThrottleGroup[A], error) {
	if action == nil {
		return nil, invalidArg("action", nil, "nil func")
	}
	d, err := resolveDelay("cooldown", cooldown)
	if err != nil {
		return nil, err
	}
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	keys, err := newKeyed(maxKeys, cfg.logger, func(key string) *Throttler[A] {
		return newThrottler(func(arg A) { action(key, arg) }, d, cfg, cfg.key+":"+key)
	}, (*Throttler[A]).inCooldown)
	if err != nil {
		return nil, err
	}
	return &ThrottleGroup[A]{keys: keys}, nil
}

func (g *ThrottleGroup[A]) Call(key string, arg A) {
	g.keys.get(key).Call(arg)
}

// Try is Call that also reports whether the action ran for key.
func (g *ThrottleGroup[A]) Try(key string, arg A) (bool, error) {
	return g.keys.get(key).Try(arg)
}

func (g *ThrottleGroup[A]) Len() int {
	return g.keys.len()
}
