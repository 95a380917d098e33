package fairness

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/xraph/fairq/queue"
)

// Preventer watches queue heads for items that have waited longer than the
// policy's MaxStarvationTime and escalates them: one priority boost per
// starvation episode plus a selection flag that short-circuits the fairness
// algorithm on the next dequeue. It runs from the maintenance loop and is
// complementary to Manager.BoostOverdue, which covers the dequeue path.
type Preventer struct {
	queues    *queue.Registry
	manager   *Manager
	logger    *slog.Logger
	incidents atomic.Int64
}

// NewPreventer creates a starvation preventer over the given queues.
func NewPreventer(queues *queue.Registry, manager *Manager, logger *slog.Logger) *Preventer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preventer{
		queues:  queues,
		manager: manager,
		logger:  logger,
	}
}

// Check scans all non-empty queues and escalates tenants whose head item
// has waited longer than MaxStarvationTime. Returns the tenants escalated
// on this pass. A tenant already flagged from a previous pass is not
// boosted again until it is served.
func (p *Preventer) Check(now time.Time) []string {
	policy := p.manager.Policy()
	infos := p.queues.Snapshot()

	var escalated []string
	for _, info := range infos {
		wait := now.Sub(info.HeadEnqueuedAt)
		if wait <= policy.MaxStarvationTime {
			continue
		}
		if !p.manager.MarkStarved(info.Tenant) {
			continue
		}
		p.queues.BoostHead(info.Tenant, policy.StarvationBoost)
		p.incidents.Add(1)
		escalated = append(escalated, info.Tenant)
		p.logger.Warn("starving tenant escalated",
			slog.String("tenant", info.Tenant),
			slog.Duration("head_wait", wait),
			slog.Duration("max_starvation", policy.MaxStarvationTime),
		)
	}
	return escalated
}

// Incidents reports the total number of starvation escalations since start.
func (p *Preventer) Incidents() int64 {
	return p.incidents.Load()
}
