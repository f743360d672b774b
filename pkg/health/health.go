// Package health serves the /livez and /readyz probes of the storefront API.
//
// Every registered check runs on its own ticker. A check flips to unhealthy
// after FailureThreshold consecutive failures and back to healthy after
// SuccessThreshold consecutive successes.
package health

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Kind selects the probe a check contributes to.
type Kind int

const (
	Liveness Kind = iota
	Readiness
)

func (k Kind) String() string {
	if k == Liveness {
		return "liveness"
	}
	return "readiness"
}

// CheckFunc returns nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

// Check describes a registered health check.
type Check struct {
	Name    string
	Kind    Kind
	Timeout time.Duration
	Func    CheckFunc
	// FailureThreshold defaults to 3.
	FailureThreshold int
	// SuccessThreshold defaults to 1.
	SuccessThreshold int
}

type state struct {
	Check

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	// Owned by the goroutine running the check.
	fails int
	oks   int
}

func (s *state) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	err := s.Func(ctx)
	s.lastErr.Store(&err)
	if err != nil {
		s.oks = 0
		s.fails++
		if s.fails >= s.FailureThreshold && s.healthy.Swap(false) {
			zctx.From(ctx).Warn("Health check failing",
				zap.String("check", s.Name),
				zap.Stringer("kind", s.Kind),
				zap.Error(err),
			)
		}
		return
	}
	s.fails = 0
	s.oks++
	if s.oks >= s.SuccessThreshold && !s.healthy.Swap(true) {
		zctx.From(ctx).Info("Health check recovered", zap.String("check", s.Name))
	}
}

func (s *state) failure() string {
	if s.healthy.Load() {
		return ""
	}
	if p := s.lastErr.Load(); p != nil && *p != nil {
		return (*p).Error()
	}
	return "check is unhealthy"
}

// Health tracks liveness and readiness of the process.
type Health struct {
	ready atomic.Bool

	mu     sync.RWMutex
	checks []*state
}

// New creates a Health that reports not ready until SetReady(true).
func New() *Health {
	return &Health{}
}

// Add registers a check. Checks start out healthy.
func (h *Health) Add(c Check) {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = time.Second
	}
	s := &state{Check: c}
	s.healthy.Store(true)

	h.mu.Lock()
	h.checks = append(h.checks, s)
	h.mu.Unlock()
}

// Run executes every registered check immediately and then once per
// interval until ctx is done.
func (h *Health) Run(ctx context.Context, interval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range h.snapshot() {
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				s.run(ctx)
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		})
	}
	return g.Wait()
}

// SetReady toggles the manual readiness gate, closed during startup and
// graceful shutdown.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the gate is open and every readiness check passes.
func (h *Health) IsReady() bool {
	return h.ready.Load() && len(h.failures(Readiness)) == 0
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, h.failures(Liveness))
}

// ReadyEndpoint serves /readyz.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failures := h.failures(Readiness)
	if !h.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}
	writeStatus(w, failures)
}

func (h *Health) snapshot() []*state {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*state, len(h.checks))
	copy(out, h.checks)
	return out
}

func (h *Health) failures(kind Kind) map[string]string {
	failures := make(map[string]string)
	for _, s := range h.snapshot() {
		if s.Kind != kind {
			continue
		}
		if msg := s.failure(); msg != "" {
			failures[s.Name] = msg
		}
	}
	return failures
}

// writeStatus writes {"status":"ok"} or 503 with
// {"status":"unhealthy","checks":{name: error}}.
func writeStatus(w http.ResponseWriter, failures map[string]string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		if len(failures) == 0 {
			e.Field("status", func(e *jx.Encoder) { e.Str("ok") })
			return
		}
		e.Field("status", func(e *jx.Encoder) { e.Str("unhealthy") })
		e.Field("checks", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for name, msg := range failures {
					e.Field(name, func(e *jx.Encoder) { e.Str(msg) })
				}
			})
		})
	})

	w.Header().Set("Content-Type", "application/json")
	status := http.StatusOK
	if len(failures) > 0 {
		status = http.StatusServiceUnavailable
	}
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
