package health

import (
	"context"
	"sync"
	"time"
)

// CheckFunc probes one component. It returns nil when the component is
// ready, or an error describing the problem.
type CheckFunc func(ctx context.Context) error

// CheckResult is the outcome of a single readiness check.
type CheckResult struct {
	// Status is "ok" or "unhealthy".
	Status string `json:"status"`

	// Message carries the error text for unhealthy checks.
	Message string `json:"message,omitempty"`

	// Duration is how long the check took.
	Duration time.Duration `json:"duration_ms,omitempty"`
}

// Status is the aggregate answer for a probe endpoint.
type Status struct {
	// Status is "ok" (liveness), "ready", or "degraded".
	Status string `json:"status"`

	// Checks holds per-component results for readiness.
	Checks map[string]CheckResult `json:"checks,omitempty"`

	// Timestamp is when the probe ran.
	Timestamp time.Time `json:"timestamp"`
}

// defaultCheckTimeout bounds a single readiness check.
const defaultCheckTimeout = 5 * time.Second

// Checker runs named readiness checks for the probe endpoints.
//
// Checker is safe for concurrent use.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc

	checkTimeout time.Duration
}

// New creates a checker. A zero timeout means 5 seconds per check.
func New(checkTimeout time.Duration) *Checker {
	if checkTimeout == 0 {
		checkTimeout = defaultCheckTimeout
	}
	return &Checker{
		checks:       make(map[string]CheckFunc),
		checkTimeout: checkTimeout,
	}
}

// RegisterCheck registers a readiness check for a named component,
// replacing any previous check under the same name.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Liveness reports whether the process is running. It never fails; a
// process that can answer is alive.
func (c *Checker) Liveness(ctx context.Context) Status {
	return Status{
		Status:    "ok",
		Timestamp: time.Now(),
	}
}

// Readiness runs every registered check concurrently and aggregates the
// results. Any failing check degrades the overall status.
func (c *Checker) Readiness(ctx context.Context) Status {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	results := make(map[string]CheckResult, len(checks))
	if len(checks) == 0 {
		return Status{Status: "ready", Checks: results, Timestamp: time.Now()}
	}

	var (
		resultMu sync.Mutex
		wg       sync.WaitGroup
	)
	for name, check := range checks {
		wg.Add(1)
		go func(name string, check CheckFunc) {
			defer wg.Done()
			result := c.runCheck(ctx, check)
			resultMu.Lock()
			results[name] = result
			resultMu.Unlock()
		}(name, check)
	}
	wg.Wait()

	status := "ready"
	for _, result := range results {
		if result.Status == "unhealthy" {
			status = "degraded"
		}
	}

	return Status{Status: status, Checks: results, Timestamp: time.Now()}
}

// runCheck executes one check under the per-check timeout.
func (c *Checker) runCheck(ctx context.Context, check CheckFunc) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	start := time.Now()
	errChan := make(chan error, 1)
	go func() {
		errChan <- check(checkCtx)
	}()

	select {
	case err := <-errChan:
		duration := time.Since(start)
		if err != nil {
			return CheckResult{Status: "unhealthy", Message: err.Error(), Duration: duration}
		}
		return CheckResult{Status: "ok", Duration: duration}
	case <-checkCtx.Done():
		return CheckResult{Status: "unhealthy", Message: "health check timeout", Duration: time.Since(start)}
	}
}
