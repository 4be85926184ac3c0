package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the per-client sliding window limiter.
type RateLimitConfig struct {
	// Max requests per Window.
	Max    int
	Window time.Duration
	// KeyFunc identifies the client; defaults to ClientIP.
	KeyFunc func(*http.Request) string
	// Skip exempts requests, e.g. health probes.
	Skip func(*http.Request) bool
}

// window counts requests of one client in the current and previous window.
type window struct {
	start time.Time
	curr  float64
	prev  float64
}

type limiter struct {
	max    int
	period time.Duration

	mu      sync.Mutex
	clients map[string]*window
}

func newLimiter(limit int, period time.Duration) *limiter {
	return &limiter{max: limit, period: period, clients: make(map[string]*window)}
}

// take records a request of key and reports whether it is allowed. The
// previous window is weighted by how much of it still overlaps the sliding
// window ending at now.
func (l *limiter) take(key string, now time.Time) (remaining int, reset time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	aligned := now.Truncate(l.period)
	w, found := l.clients[key]
	switch {
	case !found:
		w = &window{start: aligned}
		l.clients[key] = w
	case aligned.Sub(w.start) >= 2*l.period:
		w.start, w.curr, w.prev = aligned, 0, 0
	case aligned.Sub(w.start) >= l.period:
		w.start, w.curr, w.prev = aligned, 0, w.curr
	}

	reset = w.start.Add(l.period)
	weight := 1 - float64(now.Sub(w.start))/float64(l.period)
	used := w.prev*math.Max(weight, 0) + w.curr
	if used >= float64(l.max) {
		return 0, reset, false
	}
	w.curr++
	return max(int(float64(l.max)-used-1), 0), reset, true
}

func (l *limiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.clients {
		if now.Sub(w.start) >= 2*l.period {
			delete(l.clients, key)
		}
	}
}

// RateLimit limits requests per client and sets X-RateLimit-* headers.
// Limited requests get 429 with Retry-After.
func RateLimit(cfg RateLimitConfig) Middleware {
	return rateLimit(cfg, newLimiter(cfg.Max, cfg.Window))
}

// RateLimitWithCleanup is RateLimit with a goroutine evicting idle clients
// until ctx is done.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := newLimiter(cfg.Max, cfg.Window)
	go func() {
		t := time.NewTicker(2 * cfg.Window)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				l.evict(now)
			}
		}
	}()
	return rateLimit(cfg, l)
}

func rateLimit(cfg RateLimitConfig, l *limiter) Middleware {
	key := cfg.KeyFunc
	if key == nil {
		key = ClientIP
	}
	limit := strconv.Itoa(cfg.Max)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			remaining, reset, ok := l.take(key(r), time.Now())
			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
			if !ok {
				retry := max(time.Until(reset), 0)
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
				WriteError(w, http.StatusTooManyRequests, "rate_limited", "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientKey identifies the client by the first credential header present,
// falling back to ClientIP. Credentials are used as opaque keys.
func ClientKey(headers ...string) func(*http.Request) string {
	return func(r *http.Request) string {
		for _, name := range headers {
			if v := r.Header.Get(name); v != "" {
				return name + ":" + v
			}
		}
		return "ip:" + ClientIP(r)
	}
}

// ClientIP returns the first X-Forwarded-For hop, X-Real-IP or the remote
// address host, in that order.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
