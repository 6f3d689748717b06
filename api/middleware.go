package api

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// CORS allows exactly one origin to call the API from a browser.
type CORS struct {
	origin string
}

// NewCORS returns a CORS middleware for origin. An empty origin allows none.
func NewCORS(origin string) *CORS {
	return &CORS{origin: origin}
}

// Handler returns the CORS middleware handler. Preflight requests are
// answered with 204 whatever the origin.
func (c *CORS) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c.origin != "" && r.Header.Get("Origin") == c.origin {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", c.origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST")
			h.Set("Access-Control-Allow-Headers", "Content-Type, "+SenderHeader)
			h.Set("Access-Control-Max-Age", "3600")
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RateLimiter keeps one token bucket per sender.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	key      SenderFunc
}

// maxLimiters bounds the per-sender table; it is reset when exceeded.
const maxLimiters = 10000

// NewRateLimiter allows rps requests per second per sender.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
		key:      HeaderSender,
	}
}

// Allow reports whether key may proceed now.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	limiter, ok := rl.limiters[key]
	if !ok {
		if len(rl.limiters) >= maxLimiters {
			rl.limiters = make(map[string]*rate.Limiter)
		}
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	rl.mu.Unlock()

	return limiter.Allow()
}

// Handler keys on the sender identity, falling back to the remote address.
// With the default HeaderSender the key is only as trustworthy as the proxy
// that sets the header.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.key(r)
		if key == "" {
			key = r.RemoteAddr
		}
		if !rl.Allow(key) {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, errorBody{
				Error: "rate limit exceeded",
				Code:  "rate_limited",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
