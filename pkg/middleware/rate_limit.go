package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"navette/pkg/logger"
)

// clientEntry tracks request timestamps for a single caller key inside
// the sliding window.
type clientEntry struct {
	timestamps []time.Time
}

// RateLimiter is an in-memory sliding-window limiter keyed by caller
// identity. Guest booking creation keys on remote address, driver login
// keys on the submitted email so a single address cannot burn another
// account's attempts.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientEntry
	limit    int
	window   time.Duration
	log      *logger.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewRateLimiter(limit int, window time.Duration, log *logger.Logger) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*clientEntry),
		limit:   limit,
		window:  window,
		log:     log,
		stopCh:  make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Allow records an attempt for key and reports whether it is within the
// window limit.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	entry, ok := rl.clients[key]
	if !ok {
		entry = &clientEntry{}
		rl.clients[key] = entry
	}

	kept := entry.timestamps[:0]
	for _, ts := range entry.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	entry.timestamps = kept

	if len(entry.timestamps) >= rl.limit {
		return false
	}

	entry.timestamps = append(entry.timestamps, now)
	return true
}

// Middleware applies the limit keyed by remote address.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientAddr(r)

		if !rl.Allow(key) {
			rl.log.Warn("Rate limit exceeded",
				"request_id", requestID(r),
				"client", key,
				"path", r.URL.Path,
			)

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"success":false,"error":"Too many requests, please try again later"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-rl.window)
	for key, entry := range rl.clients {
		live := false
		for _, ts := range entry.timestamps {
			if ts.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(rl.clients, key)
		}
	}
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// ClientKey identifies the caller for rate limiting purposes.
func ClientKey(r *http.Request) string {
	return clientAddr(r)
}

// clientAddr prefers X-Forwarded-For so limits hold behind the ingress
// proxy.
func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
