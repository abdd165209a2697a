package ratefunc

import (
	"net/http"
)

var (
	// DefaultDeniedHandler is the default DeniedHandler for an
	// HTTPThrottler. It returns a 429 status code with a generic message.
	DefaultDeniedHandler = http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "limit exceeded", http.StatusTooManyRequests)
	}))

	// DefaultError is the default Error function for an HTTPThrottler.
	// It returns a 500 status code with a generic message.
	DefaultError = func(w http.ResponseWriter, r *http.Request, err error) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
)

// HTTPThrottler applies a leading-edge throttle to HTTP requests: the first
// request for a key is served and every other request for that key is
// denied until the cooldown has elapsed.
type HTTPThrottler struct {
	// DeniedHandler is called if the request is dropped. If it is nil,
	// the DefaultDeniedHandler variable is used.
	DeniedHandler http.Handler

	// Error is called if a store-backed cooldown fails. If it is nil,
	// DefaultError is used.
	Error func(w http.ResponseWriter, r *http.Request, err error)

	// Cooldown is the window opened by every served request.
	Cooldown Delayer

	// MaxKeys bounds the number of keys kept in memory. Zero means no
	// bound.
	MaxKeys int

	// VaryBy is called for each request to generate its key. If it is nil,
	// all requests share the empty key.
	VaryBy interface {
		Key(*http.Request) string
	}

	// Options are passed to the underlying ThrottleGroup. Store failures
	// reach Error only, unless Options set their own WithErrorHandler.
	Options []Option
}

type exchange struct {
	w http.ResponseWriter
	r *http.Request
}

// Throttle wraps h. It fails with ErrInvalidArgument if the throttler is
// misconfigured.
func (t *HTTPThrottler) Throttle(h http.Handler) (http.Handler, error) {
	if h == nil {
		return nil, invalidArg("handler", nil, "nil http.Handler")
	}
	opts := append([]Option{WithErrorHandler(func(error) {})}, t.Options...)
	group, err := NewThrottleGroup(func(_ string, x exchange) {
		h.ServeHTTP(x.w, x.r)
	}, t.Cooldown, t.MaxKeys, opts...)
	if err != nil {
		return nil, err
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var k string
		if t.VaryBy != nil {
			k = t.VaryBy.Key(r)
		}

		served, err := group.Try(k, exchange{w, r})
		if err != nil {
			e := t.Error
			if e == nil {
				e = DefaultError
			}
			e(w, r, err)
			return
		}
		if served {
			return
		}

		dh := t.DeniedHandler
		if dh == nil {
			dh = DefaultDeniedHandler
		}
		dh.ServeHTTP(w, r)
	}), nil
}
