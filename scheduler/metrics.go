package scheduler

import (
	"context"
	"time"

	"github.com/xraph/fairq"
	"github.com/xraph/fairq/adaptive"
	"github.com/xraph/fairq/stats"
)

// Metrics returns a consistent snapshot of per-tenant and global
// statistics, including the fairness score and starvation incident count.
func (s *Scheduler) Metrics() stats.GlobalSnapshot {
	snap := s.collector.Snapshot()
	snap.FairnessScore = s.manager.FairnessScore()
	snap.StarvationIncidents = s.preventer.Incidents()
	return snap
}

// FairnessScore reports how evenly service has been spread across tenants,
// in [0, 1]. 1 means perfectly even processed counts.
func (s *Scheduler) FairnessScore() float64 {
	return s.manager.FairnessScore()
}

// QueueLengths returns the current length of every tenant queue.
func (s *Scheduler) QueueLengths() map[string]int {
	return s.queues.Lengths()
}

// AdjustPolicy merges the partial update into the active fairness policy.
// The change takes effect on the next selection; queued items keep the
// priorities they were enqueued with.
func (s *Scheduler) AdjustPolicy(ctx context.Context, u fairq.PolicyUpdate) fairq.FairnessPolicy {
	policy := s.manager.Update(u)
	if u.BurstAllowance != nil {
		s.controller.SetBaseline(*u.BurstAllowance)
	}
	s.extensions.EmitPolicyUpdated(ctx, policy)
	return policy
}

// HandleBurst raises the burst allowance to absorb an announced load spike
// of expectedLoad items over the given duration. Returns the effective
// allowance. The allowance returns to the policy baseline exactly once
// after the window elapses.
func (s *Scheduler) HandleBurst(ctx context.Context, expectedLoad float64, duration time.Duration) float64 {
	allowance, until := s.controller.HandleBurst(expectedLoad, duration)
	s.extensions.EmitBurstActivated(ctx, allowance, until)
	return allowance
}

// BurstAllowance returns the current burst allowance.
func (s *Scheduler) BurstAllowance() float64 {
	return s.controller.BurstAllowance()
}

// BurstActive reports whether a burst window is currently open.
func (s *Scheduler) BurstActive() bool {
	return s.controller.BurstActive()
}

// Recommendations analyzes current statistics against the active policy and
// returns tuning suggestions ordered by expected improvement.
func (s *Scheduler) Recommendations() []adaptive.Recommendation {
	return s.controller.Analyze(s.Metrics(), s.manager.Policy(), s.maintenanceTicks.Load())
}
