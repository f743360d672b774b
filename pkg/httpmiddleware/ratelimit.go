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

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter decides whether one more request for key fits in its budget.
type Limiter interface {
	Allow(ctx context.Context, key string, now time.Time) (Decision, error)
}

// SlidingWindow is an in-process Limiter approximating a sliding window by
// weighting the previous fixed window's count by its overlap with the
// current one.
type SlidingWindow struct {
	max    int
	window time.Duration

	mu      sync.Mutex
	buckets map[string]*slidingBucket
}

type slidingBucket struct {
	prev      float64
	curr      float64
	currStart time.Time
}

// NewSlidingWindow creates a SlidingWindow allowing max requests per window.
func NewSlidingWindow(max int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		max:     max,
		window:  window,
		buckets: make(map[string]*slidingBucket),
	}
}

// Allow implements Limiter.
func (s *SlidingWindow) Allow(_ context.Context, key string, now time.Time) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := now.Truncate(s.window)
	b, ok := s.buckets[key]
	switch {
	case !ok:
		b = &slidingBucket{currStart: start}
		s.buckets[key] = b
	case start.Sub(b.currStart) >= 2*s.window:
		b.prev, b.curr, b.currStart = 0, 0, start
	case start.After(b.currStart):
		b.prev, b.curr, b.currStart = b.curr, 0, start
	}

	weight := 1 - float64(now.Sub(b.currStart))/float64(s.window)
	count := b.prev*math.Max(weight, 0) + b.curr
	d := Decision{Limit: s.max, ResetAt: b.currStart.Add(s.window)}
	if count >= float64(s.max) {
		return d, nil
	}
	b.curr++
	d.Allowed = true
	d.Remaining = max(int(float64(s.max)-count-1), 0)
	return d, nil
}

// Evict drops buckets idle for at least two windows.
func (s *SlidingWindow) Evict(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, b := range s.buckets {
		if now.Sub(b.currStart) >= 2*s.window {
			delete(s.buckets, key)
		}
	}
}

// Run evicts idle buckets every two windows until ctx is done.
func (s *SlidingWindow) Run(ctx context.Context) error {
	ticker := time.NewTicker(2 * s.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			s.Evict(now)
		}
	}
}

// Counter counts hits in a shared fixed window and reports the time left
// until the window resets. *redis.Client implements it.
type Counter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, time.Duration, error)
}

// FixedWindow is a Limiter backed by a shared Counter so that every API
// replica enforces the same budget.
type FixedWindow struct {
	counter Counter
	max     int
	window  time.Duration
}

// NewFixedWindow creates a FixedWindow allowing max requests per window.
func NewFixedWindow(counter Counter, max int, window time.Duration) *FixedWindow {
	return &FixedWindow{counter: counter, max: max, window: window}
}

// Allow implements Limiter.
func (f *FixedWindow) Allow(ctx context.Context, key string, now time.Time) (Decision, error) {
	ok, count, resetIn, err := f.counter.FixedWindowAllow(ctx, "http:"+key, int64(f.max), f.window)
	if err != nil {
		return Decision{}, errors.Wrap(err, "count request")
	}
	return Decision{
		Allowed:   ok,
		Limit:     f.max,
		Remaining: max(f.max-int(count), 0),
		ResetAt:   now.Add(resetIn),
	}, nil
}

// RateLimitConfig configures RateLimit.
type RateLimitConfig struct {
	Limiter Limiter
	// KeyFunc extracts the rate limit key. Defaults to ClientIP.
	KeyFunc func(*http.Request) string
	// Skip exempts requests from limiting, e.g. health probes.
	Skip func(*http.Request) bool
}

// RateLimit rejects requests over the limiter's budget with 429 and a JSON
// error body. Every limited response carries X-RateLimit-Limit,
// X-RateLimit-Remaining and X-RateLimit-Reset headers. Limiter failures are
// logged and the request is let through.
func RateLimit(cfg RateLimitConfig) Middleware {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = ClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}
			now := time.Now()
			d, err := cfg.Limiter.Allow(r.Context(), keyFunc(r), now)
			if err != nil {
				zctx.From(r.Context()).Warn("Rate limiter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
			if !d.Allowed {
				wait := math.Ceil(max(d.ResetAt.Sub(now), 0).Seconds())
				h.Set("Retry-After", strconv.Itoa(int(wait)))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
