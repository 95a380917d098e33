// Package stats collects per-tenant and global scheduling metrics: lifecycle
// counters, bounded latency windows, and throughput. The collector is the
// in-process source of truth behind the scheduler's Metrics surface; export
// to OpenTelemetry happens separately in observability.
package stats

import (
	"sync"
	"time"

	"github.com/xraph/fairq"
	"github.com/xraph/fairq/clock"
)

// throughputWindow is the lookback over which throughput is computed.
const throughputWindow = time.Minute

// Collector accumulates scheduling statistics. All methods are safe for
// concurrent use. Latency samples are kept in bounded rings so memory stays
// flat regardless of how long the scheduler runs.
type Collector struct {
	mu      sync.Mutex
	clk     clock.Clock
	window  int
	tenants map[string]*tenantStats
}

// tenantStats is the mutable per-tenant accumulator.
type tenantStats struct {
	tier fairq.Tier

	enqueued int64
	dequeued int64
	processed int64
	failed   int64
	retried  int64

	queued   int64
	inflight int64

	waits       *ring
	processing  *ring
	completions *timeRing

	resources map[string]float64

	lastProcessed time.Time
}

// NewCollector creates a collector. window bounds the number of latency
// samples retained per tenant; values ≤ 0 fall back to the default.
func NewCollector(clk clock.Clock, window int) *Collector {
	if clk == nil {
		clk = clock.System()
	}
	if window <= 0 {
		window = fairq.DefaultConfig().SampleWindow
	}
	return &Collector{
		clk:     clk,
		window:  window,
		tenants: make(map[string]*tenantStats),
	}
}

// tenant returns the accumulator for the tenant, creating it on first use.
// Callers hold c.mu.
func (c *Collector) tenant(tenant string, tier fairq.Tier) *tenantStats {
	ts := c.tenants[tenant]
	if ts == nil {
		ts = &tenantStats{
			tier:        tier,
			waits:       newRing(c.window),
			processing:  newRing(c.window),
			completions: newTimeRing(c.window),
		}
		c.tenants[tenant] = ts
	}
	if tier != "" {
		ts.tier = tier
	}
	return ts
}

// RecordEnqueue records an item entering its tenant queue.
func (c *Collector) RecordEnqueue(tenant string, tier fairq.Tier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := c.tenant(tenant, tier)
	ts.enqueued++
	ts.queued++
}

// RecordDequeue records an item leaving its queue for processing, with the
// time it spent waiting.
func (c *Collector) RecordDequeue(tenant string, wait time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := c.tenant(tenant, "")
	ts.dequeued++
	ts.queued--
	ts.inflight++
	ts.waits.add(float64(wait))
}

// RecordComplete records a successful processing attempt.
func (c *Collector) RecordComplete(tenant string, elapsed time.Duration) {
	now := c.clk.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := c.tenant(tenant, "")
	ts.processed++
	ts.inflight--
	ts.processing.add(float64(elapsed))
	ts.completions.add(now)
	ts.lastProcessed = now
}

// RecordResources accumulates processor-reported resource consumption for
// a completed attempt, keyed by resource name.
func (c *Collector) RecordResources(tenant string, used map[string]float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := c.tenant(tenant, "")
	if ts.resources == nil {
		ts.resources = make(map[string]float64, len(used))
	}
	for name, amount := range used {
		ts.resources[name] += amount
	}
}

// RecordRetry records a failed attempt that was re-enqueued. The item goes
// back to queued; the retry itself re-records as an enqueue on the queue
// side, so only the inflight/queued transition is tracked here.
func (c *Collector) RecordRetry(tenant string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := c.tenant(tenant, "")
	ts.retried++
	ts.inflight--
	ts.queued++
}

// RecordFail records a permanent failure after retry exhaustion.
func (c *Collector) RecordFail(tenant string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := c.tenant(tenant, "")
	ts.failed++
	ts.inflight--
}

// RecordReturn records an item put back at the head of the pipeline without
// an attempt, e.g. when a concurrency slot could not be acquired.
func (c *Collector) RecordReturn(tenant string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := c.tenant(tenant, "")
	ts.dequeued--
	ts.inflight--
	ts.queued++
}
