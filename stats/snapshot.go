package stats

import (
	"time"

	"github.com/xraph/fairq"
)

// TenantSnapshot is a point-in-time view of one tenant's statistics.
type TenantSnapshot struct {
	Tenant string     `json:"tenant"`
	Tier   fairq.Tier `json:"tier"`

	Enqueued  int64 `json:"enqueued"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
	Retried   int64 `json:"retried"`
	Queued    int64 `json:"queued"`
	Inflight  int64 `json:"inflight"`

	// AvgWait and AvgProcessing are means over the bounded sample window,
	// not over the full history.
	AvgWait       time.Duration `json:"avg_wait"`
	AvgProcessing time.Duration `json:"avg_processing"`

	// Throughput is completions per second over the last minute.
	Throughput float64 `json:"throughput"`

	// ResourcesUsed is the cumulative processor-reported resource
	// consumption, keyed by resource name.
	ResourcesUsed map[string]float64 `json:"resources_used,omitempty"`

	LastProcessed time.Time `json:"last_processed,omitzero"`
}

// GlobalSnapshot aggregates all tenants plus scheduler-level figures the
// collector does not own itself (fairness score, starvation incidents).
type GlobalSnapshot struct {
	Enqueued  int64 `json:"enqueued"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
	Retried   int64 `json:"retried"`
	Queued    int64 `json:"queued"`
	Inflight  int64 `json:"inflight"`

	AvgWait       time.Duration `json:"avg_wait"`
	AvgProcessing time.Duration `json:"avg_processing"`
	Throughput    float64       `json:"throughput"`

	// TierDistribution counts enqueued items by tier.
	TierDistribution map[fairq.Tier]int64 `json:"tier_distribution"`

	// FairnessScore and StarvationIncidents are filled in by the scheduler.
	FairnessScore       float64 `json:"fairness_score"`
	StarvationIncidents int64   `json:"starvation_incidents"`

	Tenants map[string]TenantSnapshot `json:"tenants"`
}

// Snapshot returns a consistent view of all tenant and global statistics.
func (c *Collector) Snapshot() GlobalSnapshot {
	now := c.clk.Now()
	cutoff := now.Add(-throughputWindow)

	c.mu.Lock()
	defer c.mu.Unlock()

	g := GlobalSnapshot{
		TierDistribution: make(map[fairq.Tier]int64),
		Tenants:          make(map[string]TenantSnapshot, len(c.tenants)),
	}

	var waitSum, waitN, procSum, procN float64
	for tenant, ts := range c.tenants {
		snap := TenantSnapshot{
			Tenant:        tenant,
			Tier:          ts.tier,
			Enqueued:      ts.enqueued,
			Processed:     ts.processed,
			Failed:        ts.failed,
			Retried:       ts.retried,
			Queued:        ts.queued,
			Inflight:      ts.inflight,
			AvgWait:       time.Duration(ts.waits.mean()),
			AvgProcessing: time.Duration(ts.processing.mean()),
			Throughput:    float64(ts.completions.countSince(cutoff)) / throughputWindow.Seconds(),
			LastProcessed: ts.lastProcessed,
		}
		if len(ts.resources) > 0 {
			snap.ResourcesUsed = make(map[string]float64, len(ts.resources))
			for name, amount := range ts.resources {
				snap.ResourcesUsed[name] = amount
			}
		}
		g.Tenants[tenant] = snap

		g.Enqueued += ts.enqueued
		g.Processed += ts.processed
		g.Failed += ts.failed
		g.Retried += ts.retried
		g.Queued += ts.queued
		g.Inflight += ts.inflight
		g.Throughput += snap.Throughput
		g.TierDistribution[ts.tier] += ts.enqueued

		waitSum += ts.waits.mean() * float64(ts.waits.len())
		waitN += float64(ts.waits.len())
		procSum += ts.processing.mean() * float64(ts.processing.len())
		procN += float64(ts.processing.len())
	}

	if waitN > 0 {
		g.AvgWait = time.Duration(waitSum / waitN)
	}
	if procN > 0 {
		g.AvgProcessing = time.Duration(procSum / procN)
	}
	return g
}

// Tenant returns the snapshot for one tenant and whether it was observed.
func (c *Collector) Tenant(tenant string) (TenantSnapshot, bool) {
	snap := c.Snapshot()
	ts, ok := snap.Tenants[tenant]
	return ts, ok
}
