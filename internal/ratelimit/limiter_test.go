package ratelimit

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"velocity-playground/internal/common/ratelimit"
)

func newTestMiddleware(t *testing.T, limit int) (http.Handler, *int) {
	t.Helper()
	config, err := ratelimit.NewConfigBuilder().WithLimit(limit).WithWindow(time.Minute).Build()
	require.NoError(t, err)
	core, err := ratelimit.NewLocalLimiter(config)
	require.NoError(t, err)
	t.Cleanup(func() { core.Close() })

	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})
	return NewLimiter(core, nil).HTTPMiddleware(IPBasedKey(false))(next), &calls
}

func doRequest(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/render", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHTTPMiddleware_AdmitsWithinQuota(t *testing.T) {
	h, calls := newTestMiddleware(t, 3)

	for i := 1; i <= 3; i++ {
		rec := doRequest(h, "10.0.0.1:5000")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "3", rec.Header().Get("RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(3-i), rec.Header().Get("RateLimit-Remaining"))
		reset, err := strconv.Atoi(rec.Header().Get("RateLimit-Reset"))
		require.NoError(t, err)
		assert.True(t, reset > 0 && reset <= 60, "reset %d", reset)
		assert.Empty(t, rec.Header().Get("Retry-After"))
	}
	assert.Equal(t, 3, *calls)
}

func TestHTTPMiddleware_DeniesOverQuota(t *testing.T) {
	h, calls := newTestMiddleware(t, 2)

	doRequest(h, "10.0.0.1:5000")
	doRequest(h, "10.0.0.1:5001")
	rec := doRequest(h, "10.0.0.1:5002")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 2, *calls, "denied requests never reach the handler")
	assert.Equal(t, "0", rec.Header().Get("RateLimit-Remaining"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	retryAfter, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.True(t, retryAfter >= 1 && retryAfter <= 60, "retry-after %d", retryAfter)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, DeniedMessage, body["error"])

	// Another client is unaffected
	rec = doRequest(h, "10.0.0.2:5000")
	assert.Equal(t, http.StatusOK, rec.Code)
}

type failingLimiter struct{ ratelimit.Limiter }

func (failingLimiter) Admit(ctx context.Context, key string) (ratelimit.Decision, error) {
	return ratelimit.Decision{}, stderrors.New("boom")
}

func TestHTTPMiddleware_FailsOpen(t *testing.T) {
	called := false
	h := NewLimiter(failingLimiter{}, nil).HTTPMiddleware(IPBasedKey(false))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := doRequest(h, "10.0.0.1:5000")
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("RateLimit-Limit"))
}

func TestHTTPMiddleware_EmptyKeySkipsLimiting(t *testing.T) {
	called := false
	h := NewLimiter(failingLimiter{}, nil).HTTPMiddleware(func(*http.Request) string { return "" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	doRequest(h, "10.0.0.1:5000")
	assert.True(t, called)
}

func TestIPBasedKey(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{name: "remote address without port", remoteAddr: "192.168.1.1:8080", want: "ip:192.168.1.1"},
		{name: "ipv6 remote address", remoteAddr: "[2001:db8::1]:443", want: "ip:2001:db8::1"},
		{name: "unparseable remote address", remoteAddr: "pipe", want: "ip:pipe"},
		{
			name:       "forwarding headers ignored by default",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7", "X-Real-IP": "203.0.113.8"},
			want:       "ip:10.0.0.1",
		},
		{
			name:       "first forwarded address when trusted",
			trustProxy: true,
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": " 203.0.113.7 , 10.0.0.9"},
			want:       "ip:203.0.113.7",
		},
		{
			name:       "real ip when trusted",
			trustProxy: true,
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "203.0.113.8"},
			want:       "ip:203.0.113.8",
		},
		{
			name:       "trusted without headers",
			trustProxy: true,
			remoteAddr: "10.0.0.1:1234",
			want:       "ip:10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, IPBasedKey(tt.trustProxy)(req))
		})
	}
}
