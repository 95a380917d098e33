package scheduler

import (
	"context"
	"fmt"

	"github.com/xraph/fairq"
	"github.com/xraph/fairq/item"
)

// Enqueue validates the item, computes its dynamic priority, and inserts it
// into its tenant queue. Validation failures wrap fairq.ErrInvalidItem so
// callers can match the category with errors.Is.
func (s *Scheduler) Enqueue(ctx context.Context, it *item.Item) error {
	if s.closed.Load() {
		return fairq.ErrSchedulerClosed
	}
	if err := s.validate(it); err != nil {
		return err
	}

	if it.MaxRetries < 0 {
		it.MaxRetries = s.cfg.DefaultMaxRetries
	}

	now := s.clk.Now()
	it.EnqueuedAt = now
	it.State = item.StatePending
	it.Priority = ComputePriority(it, now, s.manager.Policy())

	if !s.track(it.ID.String()) {
		return fmt.Errorf("%w: %s: %w", fairq.ErrInvalidItem, it.ID, fairq.ErrDuplicateItem)
	}

	s.queues.Enqueue(it)
	s.collector.RecordEnqueue(it.TenantID, it.Tier)
	s.extensions.EmitItemEnqueued(ctx, it)
	return nil
}

// validate checks the structural invariants an item must satisfy before it
// may enter a queue.
func (s *Scheduler) validate(it *item.Item) error {
	if it == nil {
		return fmt.Errorf("%w: nil item", fairq.ErrInvalidItem)
	}
	if it.ID.IsNil() {
		return fmt.Errorf("%w: missing id", fairq.ErrInvalidItem)
	}
	if it.TenantID == "" {
		return fmt.Errorf("%w: missing tenant id", fairq.ErrInvalidItem)
	}
	if !s.manager.Policy().ValidTier(it.Tier) {
		return fmt.Errorf("%w: tier %q: %w", fairq.ErrInvalidItem, it.Tier, fairq.ErrUnknownTier)
	}
	if it.Cost < 0 {
		return fmt.Errorf("%w: negative cost %v", fairq.ErrInvalidItem, it.Cost)
	}
	if it.BasePriority < 0 {
		return fmt.Errorf("%w: negative base priority %v", fairq.ErrInvalidItem, it.BasePriority)
	}
	return nil
}
