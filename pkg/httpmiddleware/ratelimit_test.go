package httpmiddleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSlidingWindow(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewSlidingWindow(2, time.Minute)

	d, err := l.Allow(ctx, "a", base)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
	assert.Equal(t, base.Add(time.Minute), d.ResetAt)

	d, err = l.Allow(ctx, "a", base.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	d, err = l.Allow(ctx, "a", base.Add(2*time.Second))
	require.NoError(t, err)
	assert.False(t, d.Allowed, "third request in window")

	// Other keys have their own budget.
	d, err = l.Allow(ctx, "b", base.Add(2*time.Second))
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// At the start of the next window the previous count still weighs in fully.
	d, err = l.Allow(ctx, "a", base.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	// Late in the next window most of the previous count has slid out.
	d, err = l.Allow(ctx, "a", base.Add(time.Minute+50*time.Second))
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// Two idle windows reset the bucket.
	d, err = l.Allow(ctx, "a", base.Add(5*time.Minute))
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
}

func TestSlidingWindow_Evict(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewSlidingWindow(5, time.Minute)
	_, _ = l.Allow(context.Background(), "old", base)
	_, _ = l.Allow(context.Background(), "fresh", base.Add(2*time.Minute))

	l.Evict(base.Add(2*time.Minute + time.Second))

	assert.NotContains(t, l.buckets, "old")
	assert.Contains(t, l.buckets, "fresh")
}

type mockCounter struct {
	counts  map[string]int64
	scopes  []string
	resetIn time.Duration
	err     error
}

func (m *mockCounter) FixedWindowAllow(_ context.Context, scope string, limit int64, window time.Duration) (bool, int64, time.Duration, error) {
	if m.err != nil {
		return false, 0, 0, m.err
	}
	if m.counts == nil {
		m.counts = map[string]int64{}
	}
	m.scopes = append(m.scopes, scope)
	m.counts[scope]++
	resetIn := m.resetIn
	if resetIn == 0 {
		resetIn = window
	}
	return m.counts[scope] <= limit, m.counts[scope], resetIn, nil
}

func TestFixedWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 30, 0, time.UTC)
	// Window opened by the first hit at 12:00:20 and ends at 12:01:20.
	c := &mockCounter{resetIn: 50 * time.Second}
	l := NewFixedWindow(c, 2, time.Minute)

	for i, want := range []bool{true, true, false} {
		d, err := l.Allow(ctx, "1.2.3.4", now)
		require.NoError(t, err)
		assert.Equal(t, want, d.Allowed, "request %d", i+1)
		assert.Equal(t, 2, d.Limit)
		assert.Equal(t, time.Date(2026, 1, 1, 12, 1, 20, 0, time.UTC), d.ResetAt)
	}
	assert.Equal(t, "http:1.2.3.4", c.scopes[0])

	c.err = errors.New("connection refused")
	_, err := l.Allow(ctx, "1.2.3.4", now)
	require.ErrorContains(t, err, "count request")
}

func TestRateLimit(t *testing.T) {
	handler := RateLimit(RateLimitConfig{
		Limiter: NewSlidingWindow(2, time.Hour),
	})(okHandler())

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	for range 2 {
		w := do("10.0.0.1:9999")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}

	w := do("10.0.0.1:9999")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retry, 0)
	assert.JSONEq(t, `{"code":429,"message":"rate limit exceeded"}`, w.Body.String())

	assert.Equal(t, http.StatusOK, do("10.0.0.2:9999").Code)
}

func TestRateLimit_Skip(t *testing.T) {
	handler := RateLimit(RateLimitConfig{
		Limiter: NewSlidingWindow(1, time.Minute),
		Skip:    func(r *http.Request) bool { return r.URL.Path == "/livez" },
	})(okHandler())

	for range 3 {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimit_LimiterErrorFailsOpen(t *testing.T) {
	handler := RateLimit(RateLimitConfig{
		Limiter: NewFixedWindow(&mockCounter{err: errors.New("down")}, 1, time.Minute),
	})(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"ForwardedChain", map[string]string{"X-Forwarded-For": "1.1.1.1, 2.2.2.2"}, "9.9.9.9:1", "1.1.1.1"},
		{"ForwardedSingle", map[string]string{"X-Forwarded-For": " 3.3.3.3 "}, "9.9.9.9:1", "3.3.3.3"},
		{"RealIP", map[string]string{"X-Real-IP": "4.4.4.4"}, "9.9.9.9:1", "4.4.4.4"},
		{"RemoteAddr", nil, "5.5.5.5:8080", "5.5.5.5"},
		{"RemoteAddrNoPort", nil, "6.6.6.6", "6.6.6.6"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}
