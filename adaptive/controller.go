// Package adaptive adjusts scheduler behavior to observed load: it absorbs
// announced traffic bursts by temporarily raising the admission burst
// allowance, restores the baseline exactly once when the burst window ends,
// and analyzes statistics snapshots into tuning recommendations.
package adaptive

import (
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/fairq/clock"
	"github.com/xraph/fairq/queue"
)

// burstHeadroom is the multiplier applied to the announced expected load,
// leaving slack for estimation error.
const burstHeadroom = 1.2

// Controller owns the burst allowance lifecycle. It never lowers the
// allowance below the configured baseline and never raises it for an
// already-covered load. Safe for concurrent use.
type Controller struct {
	mu     sync.Mutex
	clk    clock.Clock
	logger *slog.Logger
	limits *queue.Limits

	baseline  float64
	allowance float64
	endsAt    time.Time
	active    bool
}

// NewController creates a controller with the given baseline allowance.
// limits may be nil when no rate limiting is configured; the allowance is
// still tracked for observability.
func NewController(clk clock.Clock, limits *queue.Limits, baseline float64, logger *slog.Logger) *Controller {
	if clk == nil {
		clk = clock.System()
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		clk:       clk,
		logger:    logger,
		limits:    limits,
		baseline:  baseline,
		allowance: baseline,
	}
	c.pushAllowance()
	return c
}

// HandleBurst raises the burst allowance to cover the announced expected
// load for the given duration. The new allowance is
// max(currentAllowance, expectedLoad × 1.2); a nested burst extends the
// window but never shrinks the allowance. Returns the effective allowance
// and the time the burst window ends.
func (c *Controller) HandleBurst(expectedLoad float64, duration time.Duration) (float64, time.Time) {
	now := c.clk.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	needed := expectedLoad * burstHeadroom
	if needed > c.allowance {
		c.allowance = needed
	}
	until := now.Add(duration)
	if c.active && c.endsAt.After(until) {
		until = c.endsAt
	}
	c.endsAt = until
	c.active = true
	c.pushAllowance()

	c.logger.Info("burst allowance raised",
		slog.Float64("expected_load", expectedLoad),
		slog.Float64("allowance", c.allowance),
		slog.Time("until", until),
	)
	return c.allowance, until
}

// MaybeRestore returns the allowance to the baseline if an active burst
// window has elapsed. It reports whether a restoration happened on this
// call; once restored, further calls return false until the next burst.
// Called from both the maintenance loop and the dequeue path so restoration
// does not depend on timer granularity.
func (c *Controller) MaybeRestore(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active || now.Before(c.endsAt) {
		return false
	}
	c.active = false
	c.allowance = c.baseline
	c.pushAllowance()

	c.logger.Info("burst allowance restored",
		slog.Float64("allowance", c.allowance),
	)
	return true
}

// BurstAllowance returns the current allowance.
func (c *Controller) BurstAllowance() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.allowance
}

// BurstActive reports whether a burst window is currently open.
func (c *Controller) BurstActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// SetBaseline updates the baseline allowance, effective immediately when no
// burst is active. Used when the fairness policy's BurstAllowance changes.
func (c *Controller) SetBaseline(baseline float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseline = baseline
	if !c.active {
		c.allowance = baseline
		c.pushAllowance()
	}
}

// pushAllowance mirrors the allowance into the admission limiter's burst.
// Callers hold c.mu.
func (c *Controller) pushAllowance() {
	if c.limits == nil {
		return
	}
	c.limits.SetGlobalBurst(int(c.allowance))
}
