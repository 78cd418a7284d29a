package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThrottleLimitPerAddress(t *testing.T) {
	th := newThrottle(2, time.Minute)

	assert.True(t, th.allow("10.0.0.1"))
	assert.True(t, th.allow("10.0.0.1"))
	assert.False(t, th.allow("10.0.0.1"), "third request in the window is over limit")

	assert.True(t, th.allow("10.0.0.2"), "addresses are counted independently")
	assert.Positive(t, th.retryAfter("10.0.0.1"))
}

func TestThrottleWindowResets(t *testing.T) {
	th := newThrottle(1, 20*time.Millisecond)

	assert.True(t, th.allow("10.0.0.1"))
	assert.False(t, th.allow("10.0.0.1"))

	time.Sleep(25 * time.Millisecond)
	assert.True(t, th.allow("10.0.0.1"), "a fresh window admits again")
}

func TestThrottleMiddleware(t *testing.T) {
	th := newThrottle(1, time.Minute)
	var served int
	handler := th.wrap(func(w http.ResponseWriter, r *http.Request) {
		served++
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("POST", "/api/v1/event", nil)
	req.RemoteAddr = "192.0.2.7:51234"

	rec := httptest.NewRecorder()
	handler(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, 1, served, "the handler runs only for admitted requests")
}

func TestClientAddr(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/event", nil)
	r.RemoteAddr = "192.0.2.7:51234"
	assert.Equal(t, "192.0.2.7", clientAddr(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 192.0.2.7")
	assert.Equal(t, "203.0.113.9", clientAddr(r), "first forwarded hop wins")
}
