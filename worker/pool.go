// Package worker provides the consumer pool that drives a scheduler:
// a set of goroutines that poll for selected items and run them through
// the processing pipeline, respecting admission limits.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xraph/fairq/id"
	"github.com/xraph/fairq/item"
	"github.com/xraph/fairq/queue"
)

// Scheduler is the surface the pool needs from the scheduling core.
type Scheduler interface {
	// Dequeue selects and removes the next item to process across all
	// tenants. Returns (nil, nil) when no work is available.
	Dequeue(ctx context.Context) (*item.Item, error)

	// Process runs the item through the processing pipeline, handling
	// completion, retry, and terminal failure.
	Process(ctx context.Context, it *item.Item) error

	// Return puts an item back into its tenant queue without counting a
	// processing attempt, e.g. when admission was denied.
	Return(it *item.Item)

	// Limits exposes the admission limits consulted before processing.
	Limits() *queue.Limits
}

// Pool manages a set of concurrent consumer goroutines that poll the
// scheduler for items and process them.
type Pool struct {
	sched        Scheduler
	concurrency  int
	pollInterval time.Duration
	workerID     id.WorkerID
	logger       *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolConcurrency sets the number of concurrent consumer goroutines.
func WithPoolConcurrency(n int) PoolOption {
	return func(p *Pool) { p.concurrency = n }
}

// WithPollInterval sets how long consumers sleep when no work is available.
func WithPollInterval(d time.Duration) PoolOption {
	return func(p *Pool) { p.pollInterval = d }
}

// NewPool creates a consumer pool over the given scheduler.
func NewPool(sched Scheduler, logger *slog.Logger, opts ...PoolOption) *Pool {
	p := &Pool{
		sched:        sched,
		concurrency:  10,
		pollInterval: 100 * time.Millisecond,
		workerID:     id.NewWorkerID(),
		logger:       logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WorkerID returns the pool's unique worker identifier.
func (p *Pool) WorkerID() id.WorkerID { return p.workerID }

// Start launches the consumer goroutines. It returns immediately.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	p.running = true

	p.logger.Info("consumer pool starting",
		slog.String("worker_id", p.workerID.String()),
		slog.Int("concurrency", p.concurrency),
	)

	ctx, p.cancel = context.WithCancel(ctx)
	p.group, ctx = errgroup.WithContext(ctx)
	for range p.concurrency {
		p.group.Go(func() error {
			p.consumeLoop(ctx)
			return nil
		})
	}
	return nil
}

// Stop signals all consumers to stop and waits for them to finish or for
// the context deadline, whichever comes first.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	cancel, group := p.cancel, p.group
	p.mu.Unlock()

	p.logger.Info("consumer pool stopping", slog.String("worker_id", p.workerID.String()))
	cancel()

	done := make(chan struct{})
	go func() {
		group.Wait() //nolint:errcheck // consumers always return nil
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("consumer pool stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.Warn("consumer pool shutdown timed out")
		return ctx.Err()
	}
}

// consumeLoop is run by each consumer goroutine.
func (p *Pool) consumeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		it, err := p.sched.Dequeue(ctx)
		if err != nil {
			p.logger.Error("dequeue error", slog.String("error", err.Error()))
			p.sleep(ctx)
			continue
		}
		if it == nil {
			p.sleep(ctx)
			continue
		}

		// Check admission before burning a processing attempt.
		limits := p.sched.Limits()
		if limits != nil && !limits.Acquire(it.TenantID) {
			p.sched.Return(it)
			p.sleep(ctx)
			continue
		}

		if procErr := p.sched.Process(ctx, it); procErr != nil {
			p.logger.Debug("item processing failed",
				slog.String("item_id", it.ID.String()),
				slog.String("tenant_id", it.TenantID),
				slog.String("error", procErr.Error()),
			)
		}

		if limits != nil {
			limits.Release(it.TenantID)
		}
	}
}

func (p *Pool) sleep(ctx context.Context) {
	select {
	case <-time.After(p.pollInterval):
	case <-ctx.Done():
	}
}
