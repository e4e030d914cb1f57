// Package health serves the /livez and /readyz probes of the API server.
//
// Checks run in background goroutines. A check flips to unhealthy after
// failureThreshold consecutive failures and back after successThreshold
// consecutive successes.
package health

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
)

// CheckFunc returns nil when the checked dependency is healthy.
type CheckFunc func(ctx context.Context) error

// checkConfig is a registered check and its state. run is only called from
// the check's own goroutine; healthy and lastErr are read by handlers.
type checkConfig struct {
	name             string
	timeout          time.Duration
	check            CheckFunc
	failureThreshold int
	successThreshold int

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	consecutiveFails int
	consecutiveOK    int
}

func (c *checkConfig) isHealthy() bool {
	return c.healthy.Load()
}

func (c *checkConfig) getLastError() error {
	if p := c.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// run executes the check once and applies the thresholds.
func (c *checkConfig) run(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.check(checkCtx)
	c.lastErr.Store(&err)

	if err != nil {
		c.consecutiveOK = 0
		c.consecutiveFails++
		if c.consecutiveFails >= c.failureThreshold {
			c.healthy.Store(false)
		}
	} else {
		c.consecutiveFails = 0
		c.consecutiveOK++
		if c.consecutiveOK >= c.successThreshold {
			c.healthy.Store(true)
		}
	}
}

// Health tracks liveness and readiness of the API server.
type Health struct {
	ready atomic.Bool

	// mu guards the check slices and cancel.
	mu              sync.RWMutex
	livenessChecks  []*checkConfig
	readinessChecks []*checkConfig
	cancel          context.CancelFunc
}

// New returns a Health that is not ready until SetReady(true).
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a check reported by /livez.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := &checkConfig{
		name:             name,
		timeout:          timeout,
		check:            check,
		failureThreshold: 3,
		successThreshold: 1,
	}
	c.healthy.Store(true)
	h.livenessChecks = append(h.livenessChecks, c)
}

// AddReadinessCheck registers a check reported by /readyz, such as the
// database ping.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := &checkConfig{
		name:             name,
		timeout:          timeout,
		check:            check,
		failureThreshold: 3,
		successThreshold: 1,
	}
	c.healthy.Store(true)
	h.readinessChecks = append(h.readinessChecks, c)
}

// Start runs every registered check each interval until Stop or ctx is
// done. Call it once, after registration.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	checks := make([]*checkConfig, 0, len(h.livenessChecks)+len(h.readinessChecks))
	checks = append(checks, h.livenessChecks...)
	checks = append(checks, h.readinessChecks...)
	h.mu.Unlock()

	for _, c := range checks {
		go runCheck(ctx, c, interval)
	}
}

func runCheck(ctx context.Context, c *checkConfig, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.run(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.run(ctx)
		}
	}
}

// SetReady toggles readiness. The server clears it before draining.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether SetReady(true) was called and every readiness
// check passes.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}

	h.mu.RLock()
	checks := h.readinessChecks
	h.mu.RUnlock()

	for _, c := range checks {
		if !c.isHealthy() {
			return false
		}
	}
	return true
}

// Stop cancels the check goroutines. It is idempotent.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// statusResponse is the JSON response body for health endpoints.
type statusResponse struct {
	Status string
	Checks map[string]string
}

// Encode writes {"status":...,"checks":{...}}, omitting empty checks. Check
// names are sorted so responses are stable.
func (s statusResponse) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.Field("status", func(e *jx.Encoder) { e.Str(s.Status) })
	if len(s.Checks) > 0 {
		names := make([]string, 0, len(s.Checks))
		for name := range s.Checks {
			names = append(names, name)
		}
		slices.Sort(names)
		e.Field("checks", func(e *jx.Encoder) {
			e.ObjStart()
			for _, name := range names {
				e.Field(name, func(e *jx.Encoder) { e.Str(s.Checks[name]) })
			}
			e.ObjEnd()
		})
	}
	e.ObjEnd()
}

// LiveEndpoint serves /livez: 200 {"status":"ok"} or 503 with the failing
// checks.
func (h *Health) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := make([]*checkConfig, len(h.livenessChecks))
	copy(checks, h.livenessChecks)
	h.mu.RUnlock()

	failures := collectFailures(checks)
	writeResponse(w, failures)
}

// ReadyEndpoint serves /readyz. A server that is not marked ready reports
// a "_readiness" failure.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	ready := h.ready.Load()

	h.mu.RLock()
	checks := make([]*checkConfig, len(h.readinessChecks))
	copy(checks, h.readinessChecks)
	h.mu.RUnlock()

	failures := collectFailures(checks)
	if !ready {
		failures["_readiness"] = "service is not ready"
	}
	writeResponse(w, failures)
}

// collectFailures maps each unhealthy check to its last error.
func collectFailures(checks []*checkConfig) map[string]string {
	failures := make(map[string]string)
	for _, c := range checks {
		if !c.isHealthy() {
			if err := c.getLastError(); err != nil {
				failures[c.name] = err.Error()
			} else {
				failures[c.name] = "check is unhealthy"
			}
		}
	}
	return failures
}

func writeResponse(w http.ResponseWriter, failures map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := statusResponse{Status: "ok"}
	status := http.StatusOK

	if len(failures) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failures
		status = http.StatusServiceUnavailable
	}

	var e jx.Encoder
	resp.Encode(&e)

	w.WriteHeader(status)
	// The status is already written; a failed write means the client left.
	_, _ = w.Write(e.Bytes())
}
