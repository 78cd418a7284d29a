package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Event injection feeds the whole simulation pipeline, so its endpoint gets
// a per-caller request cap. Counts reset on a fixed window per client
// address; stale windows are pruned opportunistically instead of by a
// background goroutine.
type throttle struct {
	mu     sync.Mutex
	seen   map[string]*window
	limit  int
	period time.Duration
}

type window struct {
	count int
	start time.Time
}

const throttlePruneAbove = 1024

func newThrottle(limit int, period time.Duration) *throttle {
	return &throttle{
		seen:   make(map[string]*window),
		limit:  limit,
		period: period,
	}
}

// allow records one request from addr and reports whether it stays within
// the limit for the current window.
func (t *throttle) allow(addr string) bool {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.seen) > throttlePruneAbove {
		t.prune(now)
	}

	w := t.seen[addr]
	if w == nil || now.Sub(w.start) >= t.period {
		t.seen[addr] = &window{count: 1, start: now}
		return true
	}
	w.count++
	return w.count <= t.limit
}

// retryAfter returns how long addr has to wait for its window to reset.
func (t *throttle) retryAfter(addr string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	w := t.seen[addr]
	if w == nil {
		return 0
	}
	left := t.period - time.Since(w.start)
	if left < 0 {
		return 0
	}
	return left
}

// prune drops windows that expired over a period ago. Caller holds mu.
func (t *throttle) prune(now time.Time) {
	for addr, w := range t.seen {
		if now.Sub(w.start) >= 2*t.period {
			delete(t.seen, addr)
		}
	}
}

// wrap guards a handler, answering 429 with a Retry-After hint once the
// caller is over the limit.
func (t *throttle) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr := clientAddr(r)
		if !t.allow(addr) {
			secs := int(t.retryAfter(addr).Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// clientAddr extracts the caller address, preferring the first entry of
// X-Forwarded-For when the request came through a proxy.
func clientAddr(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			xff = xff[:i]
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
