package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

type clientWindow struct {
	count int
	seen  time.Time
}

// RateLimiter caps requests per client address over a rolling window. It
// guards the sync trigger, where every request can fan out into a full
// outbox replay against the remote store.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
	limit   int
	window  time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*clientWindow),
		limit:   limit,
		window:  window,
	}

	// Sweep idle clients so the map does not grow unbounded.
	go func() {
		for {
			time.Sleep(window)
			rl.mu.Lock()
			for addr, c := range rl.clients {
				if time.Since(c.seen) > window {
					delete(rl.clients, addr)
				}
			}
			rl.mu.Unlock()
		}
	}()

	return rl
}

// Middleware rejects a client's requests past the limit with 429 and a
// Retry-After hint. A client idle for a full window starts fresh.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()

		rl.mu.Lock()
		c, ok := rl.clients[r.RemoteAddr]
		if !ok || now.Sub(c.seen) > rl.window {
			rl.clients[r.RemoteAddr] = &clientWindow{count: 1, seen: now}
			rl.mu.Unlock()
			next.ServeHTTP(w, r)
			return
		}
		c.count++
		c.seen = now
		count := c.count
		rl.mu.Unlock()

		if count > rl.limit {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", r)
			return
		}

		next.ServeHTTP(w, r)
	})
}
