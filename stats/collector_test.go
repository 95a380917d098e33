package stats_test

import (
	"testing"
	"time"

	"github.com/xraph/fairq"
	"github.com/xraph/fairq/clock"
	"github.com/xraph/fairq/stats"
)

func TestCollector_ConservationAcrossLifecycle(t *testing.T) {
	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	c := stats.NewCollector(fake, 100)

	// 10 items: 6 complete, 2 fail, 1 retried and still queued, 1 untouched.
	for range 10 {
		c.RecordEnqueue("acme", fairq.TierBasic)
	}
	for range 6 {
		c.RecordDequeue("acme", time.Second)
		c.RecordComplete("acme", 50*time.Millisecond)
	}
	for range 2 {
		c.RecordDequeue("acme", time.Second)
		c.RecordFail("acme")
	}
	c.RecordDequeue("acme", time.Second)
	c.RecordRetry("acme")

	snap := c.Snapshot()
	if snap.Enqueued != 10 {
		t.Fatalf("Enqueued = %d, want 10", snap.Enqueued)
	}
	sum := snap.Processed + snap.Failed + snap.Queued + snap.Inflight
	if sum != snap.Enqueued {
		t.Errorf("processed+failed+queued+inflight = %d, want %d",
			sum, snap.Enqueued)
	}
	if snap.Processed != 6 || snap.Failed != 2 || snap.Retried != 1 {
		t.Errorf("Processed/Failed/Retried = %d/%d/%d, want 6/2/1",
			snap.Processed, snap.Failed, snap.Retried)
	}
	// The retried item and the untouched one are queued; nothing is inflight.
	if snap.Queued != 2 || snap.Inflight != 0 {
		t.Errorf("Queued/Inflight = %d/%d, want 2/0", snap.Queued, snap.Inflight)
	}
}

func TestCollector_ReturnUndoesDequeue(t *testing.T) {
	c := stats.NewCollector(nil, 10)
	c.RecordEnqueue("acme", fairq.TierBasic)
	c.RecordDequeue("acme", time.Second)
	c.RecordReturn("acme")

	ts, ok := c.Tenant("acme")
	if !ok {
		t.Fatal("tenant not observed")
	}
	if ts.Queued != 1 || ts.Inflight != 0 {
		t.Errorf("Queued/Inflight = %d/%d after return, want 1/0",
			ts.Queued, ts.Inflight)
	}
	if ts.Enqueued != 1 {
		t.Errorf("Enqueued = %d, want 1 (a return is not a new enqueue)", ts.Enqueued)
	}
}

func TestCollector_AccumulatesReportedResources(t *testing.T) {
	c := stats.NewCollector(nil, 10)
	c.RecordEnqueue("acme", fairq.TierBasic)
	c.RecordDequeue("acme", time.Second)
	c.RecordComplete("acme", 20*time.Millisecond)
	c.RecordResources("acme", map[string]float64{"gpu_seconds": 1.5, "tokens": 300})
	c.RecordResources("acme", map[string]float64{"gpu_seconds": 0.5})

	ts, ok := c.Tenant("acme")
	if !ok {
		t.Fatal("tenant not observed")
	}
	if ts.ResourcesUsed["gpu_seconds"] != 2.0 || ts.ResourcesUsed["tokens"] != 300 {
		t.Errorf("ResourcesUsed = %v, want gpu_seconds 2 and tokens 300", ts.ResourcesUsed)
	}

	// Tenants that never report resources carry no map at all.
	c.RecordEnqueue("other", fairq.TierFree)
	if other, ok := c.Tenant("other"); !ok || other.ResourcesUsed != nil {
		t.Errorf("other.ResourcesUsed = %v, want nil", other.ResourcesUsed)
	}
}

func TestCollector_AveragesOverBoundedWindow(t *testing.T) {
	c := stats.NewCollector(nil, 2)
	c.RecordEnqueue("acme", fairq.TierBasic)

	// Three samples through a window of two: the first (10s) falls out.
	for _, wait := range []time.Duration{10 * time.Second, 2 * time.Second, 4 * time.Second} {
		c.RecordDequeue("acme", wait)
	}

	ts, _ := c.Tenant("acme")
	if ts.AvgWait != 3*time.Second {
		t.Errorf("AvgWait = %v, want 3s over the last two samples", ts.AvgWait)
	}
}

func TestCollector_ThroughputWindowsOnClock(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.NewFake(start)
	c := stats.NewCollector(fake, 100)

	for range 30 {
		c.RecordEnqueue("acme", fairq.TierBasic)
		c.RecordDequeue("acme", 0)
		c.RecordComplete("acme", time.Millisecond)
	}

	// All 30 completions land inside the one-minute lookback.
	ts, _ := c.Tenant("acme")
	if got := ts.Throughput; got != 0.5 {
		t.Fatalf("Throughput = %v, want 0.5/s (30 per minute)", got)
	}

	// Two minutes later the window is empty.
	fake.Advance(2 * time.Minute)
	ts, _ = c.Tenant("acme")
	if got := ts.Throughput; got != 0 {
		t.Errorf("Throughput = %v after idle window, want 0", got)
	}
	if ts.LastProcessed != start {
		t.Errorf("LastProcessed = %v, want %v", ts.LastProcessed, start)
	}
}

func TestCollector_GlobalAggregatesTenants(t *testing.T) {
	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	c := stats.NewCollector(fake, 100)

	c.RecordEnqueue("a", fairq.TierFree)
	c.RecordEnqueue("a", fairq.TierFree)
	c.RecordEnqueue("b", fairq.TierPremium)

	c.RecordDequeue("a", 2*time.Second)
	c.RecordComplete("a", 10*time.Millisecond)
	c.RecordDequeue("b", 4*time.Second)
	c.RecordComplete("b", 30*time.Millisecond)

	snap := c.Snapshot()
	if snap.Enqueued != 3 || snap.Processed != 2 || snap.Queued != 1 {
		t.Fatalf("Enqueued/Processed/Queued = %d/%d/%d, want 3/2/1",
			snap.Enqueued, snap.Processed, snap.Queued)
	}
	if snap.AvgWait != 3*time.Second {
		t.Errorf("AvgWait = %v, want 3s", snap.AvgWait)
	}
	if snap.AvgProcessing != 20*time.Millisecond {
		t.Errorf("AvgProcessing = %v, want 20ms", snap.AvgProcessing)
	}
	if snap.TierDistribution[fairq.TierFree] != 2 || snap.TierDistribution[fairq.TierPremium] != 1 {
		t.Errorf("TierDistribution = %v, want free:2 premium:1", snap.TierDistribution)
	}
	if len(snap.Tenants) != 2 {
		t.Errorf("Tenants = %d entries, want 2", len(snap.Tenants))
	}
}
