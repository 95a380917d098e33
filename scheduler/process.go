package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/xraph/fairq/item"
)

// errProcessingFailed is reported when a processor returns an unsuccessful
// result without its own error.
var errProcessingFailed = errors.New("processing reported failure")

// Process runs a dequeued item through the middleware chain and the
// processor, entirely outside any queue lock. On success the item
// completes; on failure it is either re-enqueued with decayed priority or,
// once the retry budget is exhausted, moved to the dead letter queue. A
// panic in the processor or middleware counts as a failed attempt.
// The returned error is the processing error, nil on success.
func (s *Scheduler) Process(ctx context.Context, it *item.Item) error {
	start := s.clk.Now()
	res, err := s.runChain(ctx, it)
	elapsed := s.clk.Now().Sub(start)

	if err == nil {
		if res != nil && res.ProcessingTime > 0 {
			elapsed = res.ProcessingTime
		}
		s.complete(ctx, it, elapsed, res)
		return nil
	}
	s.fail(ctx, it, err)
	return err
}

// runChain invokes the middleware chain and the processor, converting any
// panic into an ordinary processing error so a misbehaving processor takes
// the retry path instead of unwinding through its consumer.
func (s *Scheduler) runChain(ctx context.Context, it *item.Item) (res *item.Result, retErr error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("item processor panicked",
				slog.String("item_id", it.ID.String()),
				slog.String("tenant_id", it.TenantID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			res = nil
			retErr = fmt.Errorf("panic processing item %s: %v", it.ID, r)
		}
	}()

	retErr = s.chain(ctx, it, func(ctx context.Context) error {
		r, procErr := s.processor(ctx, it.Payload)
		res = r
		if procErr != nil {
			return procErr
		}
		if r != nil && !r.Success {
			if r.Err != nil {
				return r.Err
			}
			return errProcessingFailed
		}
		return nil
	})
	return res, retErr
}

// complete marks the item processed and records its timings and any
// processor-reported resource consumption.
func (s *Scheduler) complete(ctx context.Context, it *item.Item, elapsed time.Duration, res *item.Result) {
	now := s.clk.Now()
	it.State = item.StateCompleted
	it.CompletedAt = &now
	it.LastError = ""

	s.collector.RecordComplete(it.TenantID, elapsed)
	if res != nil && len(res.ResourcesUsed) > 0 {
		s.collector.RecordResources(it.TenantID, res.ResourcesUsed)
	}
	s.extensions.EmitItemProcessed(ctx, it, elapsed)
	s.untrack(it.ID.String())
}

// fail handles a failed attempt: retry with decayed priority while budget
// remains, otherwise move the item to the dead letter queue.
func (s *Scheduler) fail(ctx context.Context, it *item.Item, procErr error) {
	it.LastError = procErr.Error()
	it.RetryCount++

	if it.RetryCount <= it.MaxRetries {
		s.retry(ctx, it)
		return
	}

	it.State = item.StateFailed
	s.collector.RecordFail(it.TenantID)

	if dlqErr := s.deadLetters.Push(ctx, it, procErr); dlqErr != nil {
		s.logger.Error("dead letter push failed",
			slog.String("item_id", it.ID.String()),
			slog.String("tenant_id", it.TenantID),
			slog.String("error", dlqErr.Error()),
		)
	}

	s.extensions.EmitItemFailed(ctx, it, procErr)
	s.untrack(it.ID.String())
}

// retry decays the item's priority and re-enqueues it, immediately when the
// backoff strategy reports no delay, otherwise parked until due.
func (s *Scheduler) retry(ctx context.Context, it *item.Item) {
	policy := s.manager.Policy()
	it.Priority = clamp0(it.Priority * policy.RetryDecay)
	it.DequeuedAt = nil

	now := s.clk.Now()
	it.EnqueuedAt = now

	s.collector.RecordRetry(it.TenantID)

	delay := s.backoff.Delay(it.RetryCount)
	if delay <= 0 {
		it.State = item.StatePending
		s.queues.Enqueue(it)
	} else {
		it.State = item.StateRetrying
		s.retryMu.Lock()
		s.retries = append(s.retries, &delayedItem{it: it, dueAt: now.Add(delay).UnixNano()})
		s.retryMu.Unlock()
	}

	s.extensions.EmitItemRetried(ctx, it, it.RetryCount, it.Priority)
}
