package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/fairq"
	"github.com/xraph/fairq/item"
)

// Dequeue selects the next item to process across all tenants: it flushes
// due retries, escalates overdue tenants, asks the fairness manager to pick
// a queue, and pops its head. Returns (nil, nil) when no work is available.
func (s *Scheduler) Dequeue(ctx context.Context) (*item.Item, error) {
	if s.closed.Load() {
		return nil, fairq.ErrSchedulerClosed
	}

	now := s.clk.Now()
	s.flushRetries(now)

	if s.controller.MaybeRestore(now) {
		s.extensions.EmitBurstCompleted(ctx, s.controller.BurstAllowance())
	}

	infos := s.queues.Snapshot()
	if len(infos) == 0 {
		return nil, nil
	}

	// Escalate overdue tenants before selecting so the boost lands on the
	// same pass that serves them.
	if boosted := s.manager.BoostOverdue(s.queues, infos, now); len(boosted) > 0 {
		infos = s.queues.Snapshot()
	}

	tenant, ok := s.manager.Select(infos, now)
	if !ok {
		return nil, nil
	}

	it := s.queues.PopHead(tenant)
	if it == nil {
		// Selection only ever sees non-empty queues; a nil head means the
		// snapshot and the registry disagree.
		s.logger.Error("selected tenant has no head item",
			slog.String("tenant", tenant),
		)
		return nil, fairq.ErrInternal
	}

	it.State = item.StateRunning
	dequeuedAt := now
	it.DequeuedAt = &dequeuedAt

	s.manager.RecordService(tenant, it.Cost, now)
	s.collector.RecordDequeue(tenant, it.Wait())
	s.extensions.EmitItemDequeued(ctx, it, it.Wait())
	return it, nil
}

// Return puts an item back into its tenant queue without counting a
// processing attempt, e.g. when admission limits denied it a slot. The
// original enqueue time is preserved so aging and starvation accounting
// keep running.
func (s *Scheduler) Return(it *item.Item) {
	it.State = item.StatePending
	it.DequeuedAt = nil
	s.queues.Enqueue(it)
	s.collector.RecordReturn(it.TenantID)
}

// flushRetries moves parked retry items whose backoff delay has elapsed
// back into their tenant queues.
func (s *Scheduler) flushRetries(now time.Time) {
	s.retryMu.Lock()
	var due []*item.Item
	remaining := s.retries[:0]
	for _, d := range s.retries {
		if d.dueAt <= now.UnixNano() {
			due = append(due, d.it)
		} else {
			remaining = append(remaining, d)
		}
	}
	s.retries = remaining
	s.retryMu.Unlock()

	for _, it := range due {
		it.State = item.StatePending
		s.queues.Enqueue(it)
	}
}
