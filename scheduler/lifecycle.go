package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/fairq"
)

// Start launches the background maintenance and adaptive loops. It returns
// immediately; call Stop to shut down. Start while already running is a
// no-op; Start after Stop returns fairq.ErrSchedulerClosed.
func (s *Scheduler) Start(_ context.Context) error {
	if s.closed.Load() {
		return fairq.ErrSchedulerClosed
	}

	s.loopMu.Lock()
	defer s.loopMu.Unlock()
	if s.running {
		return nil
	}
	s.running = true

	s.logger.Info("scheduler starting",
		slog.Duration("maintenance_interval", s.cfg.MaintenanceInterval),
		slog.Duration("adaptive_interval", s.cfg.AdaptiveInterval),
	)

	s.wg.Add(2)
	go s.maintenanceLoop()
	go s.adaptiveLoop()
	return nil
}

// Stop shuts the scheduler down: background loops exit, extensions are
// notified, and further Enqueue/Dequeue calls fail with
// fairq.ErrSchedulerClosed. Items still queued stay queued; callers decide
// whether to drain before stopping.
func (s *Scheduler) Stop(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	close(s.stopCh)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	if s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("scheduler shutdown timed out")
	}

	s.extensions.EmitShutdown(context.WithoutCancel(ctx))
	s.logger.Info("scheduler stopped")
	return nil
}

// maintenanceLoop runs aging, starvation checks, retry flushing, burst
// restoration, and queue pruning on every tick.
func (s *Scheduler) maintenanceLoop() {
	defer s.wg.Done()

	ticker := s.clk.NewTicker(s.cfg.MaintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case now := <-ticker.C():
			s.maintain(now)
		}
	}
}

// maintain performs one maintenance pass at the given time.
func (s *Scheduler) maintain(now time.Time) {
	s.maintenanceTicks.Add(1)
	policy := s.manager.Policy()

	aged := s.queues.AgeAll(now, policy.AgingThreshold, policy.AgingFactor)
	escalated := s.preventer.Check(now)
	s.flushRetries(now)

	// Departed tenants leave the fairness books too, or their stale history
	// would depress the fairness score forever.
	pruned := s.queues.PruneEmpty()
	s.manager.Forget(pruned...)

	if s.controller.MaybeRestore(now) {
		s.extensions.EmitBurstCompleted(context.Background(), s.controller.BurstAllowance())
	}

	if aged > 0 || len(escalated) > 0 || len(pruned) > 0 {
		s.logger.Debug("maintenance pass",
			slog.Int("aged", aged),
			slog.Int("escalated", len(escalated)),
			slog.Int("pruned", len(pruned)),
		)
	}
}

// adaptiveLoop periodically analyzes aggregate statistics and logs any
// tuning recommendations. Recommendations are advisory; operators apply
// them through AdjustPolicy.
func (s *Scheduler) adaptiveLoop() {
	defer s.wg.Done()

	ticker := s.clk.NewTicker(s.cfg.AdaptiveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C():
			for _, rec := range s.Recommendations() {
				s.logger.Info("adaptive recommendation",
					slog.String("action", string(rec.Action)),
					slog.String("tenant", rec.Tenant),
					slog.String("reason", rec.Reason),
					slog.Float64("expected_improvement", rec.ExpectedImprovement),
				)
			}
		}
	}
}
