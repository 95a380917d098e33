package adaptive_test

import (
	"testing"
	"time"

	"github.com/xraph/fairq"
	"github.com/xraph/fairq/adaptive"
	"github.com/xraph/fairq/clock"
	"github.com/xraph/fairq/queue"
	"github.com/xraph/fairq/stats"
)

func newController(baseline float64) (*adaptive.Controller, *clock.Fake) {
	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return adaptive.NewController(fake, nil, baseline, nil), fake
}

func TestController_HandleBurstAppliesHeadroom(t *testing.T) {
	c, fake := newController(100)

	allowance, until := c.HandleBurst(1000, 2*time.Second)
	if allowance < 1200 {
		t.Fatalf("allowance = %v, want ≥ 1200 (1000 × 1.2)", allowance)
	}
	if want := fake.Now().Add(2 * time.Second); !until.Equal(want) {
		t.Errorf("until = %v, want %v", until, want)
	}
	if !c.BurstActive() {
		t.Error("burst should be active")
	}
}

func TestController_RestoreFiresExactlyOnce(t *testing.T) {
	c, fake := newController(100)
	c.HandleBurst(1000, 2*time.Second)

	// Window still open: no restore.
	fake.Advance(time.Second)
	if c.MaybeRestore(fake.Now()) {
		t.Fatal("restored mid-window")
	}
	if got := c.BurstAllowance(); got != 1200 {
		t.Fatalf("allowance = %v mid-window, want 1200", got)
	}

	// Window elapsed: restore once, then stay quiet.
	fake.Advance(2 * time.Second)
	if !c.MaybeRestore(fake.Now()) {
		t.Fatal("expected restoration after window end")
	}
	if got := c.BurstAllowance(); got != 100 {
		t.Errorf("allowance = %v after restore, want baseline 100", got)
	}
	if c.BurstActive() {
		t.Error("burst should be inactive after restore")
	}
	if c.MaybeRestore(fake.Now().Add(time.Hour)) {
		t.Error("second restore should be a no-op")
	}
}

func TestController_NestedBurstExtendsNeverShrinks(t *testing.T) {
	c, fake := newController(100)

	c.HandleBurst(1000, 10*time.Second)
	// A smaller nested burst with a shorter window: allowance and window
	// both keep their larger values.
	allowance, until := c.HandleBurst(100, time.Second)
	if allowance != 1200 {
		t.Errorf("allowance = %v, want 1200 kept from the larger burst", allowance)
	}
	if want := fake.Now().Add(10 * time.Second); !until.Equal(want) {
		t.Errorf("until = %v, want the original window end %v", until, want)
	}

	// A longer nested burst extends the window.
	_, until = c.HandleBurst(100, time.Minute)
	if want := fake.Now().Add(time.Minute); !until.Equal(want) {
		t.Errorf("until = %v, want extended to %v", until, want)
	}
}

func TestController_SetBaselineDefersDuringBurst(t *testing.T) {
	c, fake := newController(100)
	c.HandleBurst(1000, time.Second)

	c.SetBaseline(500)
	if got := c.BurstAllowance(); got != 1200 {
		t.Fatalf("allowance = %v during burst, want 1200 unchanged", got)
	}

	fake.Advance(2 * time.Second)
	c.MaybeRestore(fake.Now())
	if got := c.BurstAllowance(); got != 500 {
		t.Errorf("allowance = %v after restore, want new baseline 500", got)
	}
}

func TestController_AllowanceMirroredToLimits(t *testing.T) {
	fake := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	limits := queue.NewLimits(queue.LimitsConfig{RateLimit: 100, RateBurst: 100})
	c := adaptive.NewController(fake, limits, 100, nil)

	c.HandleBurst(1000, time.Second)
	if got := limits.GlobalBurst(); got != 1200 {
		t.Fatalf("limiter burst = %d during burst, want 1200", got)
	}

	fake.Advance(2 * time.Second)
	c.MaybeRestore(fake.Now())
	if got := limits.GlobalBurst(); got != 100 {
		t.Errorf("limiter burst = %d after restore, want 100", got)
	}
}

// snapWith builds a two-tenant snapshot for Analyze tests.
func snapWith(mutate func(*stats.GlobalSnapshot)) stats.GlobalSnapshot {
	snap := stats.GlobalSnapshot{
		Tenants: map[string]stats.TenantSnapshot{
			"a": {Tenant: "a", Tier: fairq.TierBasic, Queued: 10, Processed: 50},
			"b": {Tenant: "b", Tier: fairq.TierBasic, Queued: 10, Processed: 50},
		},
		Queued:    20,
		Processed: 100,
	}
	mutate(&snap)
	return snap
}

func TestController_AnalyzeHealthySnapshotIsQuiet(t *testing.T) {
	c, _ := newController(100)
	recs := c.Analyze(snapWith(func(*stats.GlobalSnapshot) {}), fairq.DefaultPolicy(), 100)
	if len(recs) != 0 {
		t.Errorf("recommendations = %v for a balanced snapshot, want none", recs)
	}
}

func TestController_AnalyzeFlagsQueueImbalance(t *testing.T) {
	c, _ := newController(100)
	// One tenant holds 90 of 99 queued items across four tenants: 3.6x the
	// mean depth of 24.75.
	snap := stats.GlobalSnapshot{
		Tenants: map[string]stats.TenantSnapshot{
			"a": {Tenant: "a", Tier: fairq.TierBasic, Queued: 90},
			"b": {Tenant: "b", Tier: fairq.TierBasic, Queued: 3},
			"c": {Tenant: "c", Tier: fairq.TierBasic, Queued: 3},
			"d": {Tenant: "d", Tier: fairq.TierBasic, Queued: 3},
		},
		Queued: 99,
	}

	recs := c.Analyze(snap, fairq.DefaultPolicy(), 100)
	found := false
	for _, r := range recs {
		if r.Action == adaptive.ActionRebalance && r.Tenant == "a" {
			found = true
		}
	}
	if !found {
		t.Errorf("recommendations = %v, want rebalance for tenant a", recs)
	}
}

func TestController_AnalyzeFlagsShareGap(t *testing.T) {
	c, _ := newController(100)
	// Same tier, so entitled shares are 50/50, but service ran 80/20.
	snap := snapWith(func(s *stats.GlobalSnapshot) {
		a, b := s.Tenants["a"], s.Tenants["b"]
		a.Processed, b.Processed = 80, 20
		s.Tenants["a"], s.Tenants["b"] = a, b
	})

	recs := c.Analyze(snap, fairq.DefaultPolicy(), 100)
	actions := map[adaptive.Action]int{}
	for _, r := range recs {
		actions[r.Action]++
	}
	if actions[adaptive.ActionAdjustWeights] != 2 {
		t.Errorf("recommendations = %v, want adjust_weights for both tenants", recs)
	}
}

func TestController_AnalyzeFlagsChronicStarvation(t *testing.T) {
	c, _ := newController(100)
	snap := snapWith(func(s *stats.GlobalSnapshot) {
		s.StarvationIncidents = 150
	})

	recs := c.Analyze(snap, fairq.DefaultPolicy(), 100)
	if len(recs) != 1 || recs[0].Action != adaptive.ActionTightenStarvation {
		t.Fatalf("recommendations = %v, want a single tighten_starvation", recs)
	}
}
