package scheduler_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xraph/fairq"
	"github.com/xraph/fairq/clock"
	"github.com/xraph/fairq/item"
	"github.com/xraph/fairq/scheduler"
)

// okProcessor always succeeds.
func okProcessor(_ context.Context, _ any) (*item.Result, error) {
	return &item.Result{Success: true}, nil
}

// failProcessor always fails.
func failProcessor(_ context.Context, _ any) (*item.Result, error) {
	return nil, errors.New("boom")
}

// recorder is a test extension that captures lifecycle notifications.
type recorder struct {
	mu              sync.Mutex
	retryPriorities []float64
	failed          []string
	policies        []fairq.FairnessPolicy
	burstsActivated []float64
	burstsCompleted []float64
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) OnItemRetried(_ context.Context, _ *item.Item, _ int, newPriority float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retryPriorities = append(r.retryPriorities, newPriority)
	return nil
}

func (r *recorder) OnItemFailed(_ context.Context, it *item.Item, _ error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, it.ID.String())
	return nil
}

func (r *recorder) OnPolicyUpdated(_ context.Context, policy fairq.FairnessPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies = append(r.policies, policy)
	return nil
}

func (r *recorder) OnBurstActivated(_ context.Context, allowance float64, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.burstsActivated = append(r.burstsActivated, allowance)
	return nil
}

func (r *recorder) OnBurstCompleted(_ context.Context, restored float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.burstsCompleted = append(r.burstsCompleted, restored)
	return nil
}

func newFake() *clock.Fake {
	return clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestScheduler_RejectsInvalidItems(t *testing.T) {
	s := scheduler.New(okProcessor)
	ctx := context.Background()

	cases := []struct {
		name string
		it   *item.Item
		want error
	}{
		{"nil item", nil, fairq.ErrInvalidItem},
		{"missing id", &item.Item{TenantID: "acme", Tier: fairq.TierBasic}, fairq.ErrInvalidItem},
		{"missing tenant", item.New("", nil, item.WithTier(fairq.TierBasic)), fairq.ErrInvalidItem},
		{"unknown tier", item.New("acme", nil, item.WithTier("platinum")), fairq.ErrUnknownTier},
		{"negative cost", item.New("acme", nil, item.WithTier(fairq.TierBasic), item.WithCost(-1)), fairq.ErrInvalidItem},
		{"negative base priority", item.New("acme", nil, item.WithTier(fairq.TierBasic), item.WithBasePriority(-5)), fairq.ErrInvalidItem},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.Enqueue(ctx, tc.it)
			if !errors.Is(err, tc.want) {
				t.Errorf("Enqueue error = %v, want %v", err, tc.want)
			}
			if !errors.Is(err, fairq.ErrInvalidItem) {
				t.Errorf("Enqueue error = %v, want category ErrInvalidItem", err)
			}
		})
	}

	if got := s.Metrics().Enqueued; got != 0 {
		t.Errorf("Enqueued = %d after rejected items, want 0", got)
	}
}

func TestScheduler_RejectsDuplicateLiveItem(t *testing.T) {
	s := scheduler.New(okProcessor, scheduler.WithClock(newFake()))
	ctx := context.Background()

	it := item.New("acme", nil, item.WithTier(fairq.TierBasic))
	if err := s.Enqueue(ctx, it); err != nil {
		t.Fatalf("first Enqueue: %v", err)
	}

	err := s.Enqueue(ctx, it)
	if !errors.Is(err, fairq.ErrDuplicateItem) || !errors.Is(err, fairq.ErrInvalidItem) {
		t.Fatalf("duplicate Enqueue error = %v, want ErrDuplicateItem wrapping ErrInvalidItem", err)
	}

	// Terminal completion releases the id.
	got, err := s.Dequeue(ctx)
	if err != nil || got == nil {
		t.Fatalf("Dequeue = %v, %v", got, err)
	}
	if err := s.Process(ctx, got); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if err := s.Enqueue(ctx, it); err != nil {
		t.Errorf("re-Enqueue after completion: %v", err)
	}
}

func TestScheduler_DequeuesTenantItemsByPriorityThenFIFO(t *testing.T) {
	s := scheduler.New(okProcessor, scheduler.WithClock(newFake()))
	ctx := context.Background()

	low := item.New("acme", nil, item.WithTier(fairq.TierBasic), item.WithBasePriority(1))
	high := item.New("acme", nil, item.WithTier(fairq.TierBasic), item.WithBasePriority(5))
	mid1 := item.New("acme", nil, item.WithTier(fairq.TierBasic), item.WithBasePriority(3))
	mid2 := item.New("acme", nil, item.WithTier(fairq.TierBasic), item.WithBasePriority(3))

	for _, it := range []*item.Item{low, high, mid1, mid2} {
		if err := s.Enqueue(ctx, it); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	for i, want := range []*item.Item{high, mid1, mid2, low} {
		got, err := s.Dequeue(ctx)
		if err != nil || got == nil {
			t.Fatalf("Dequeue %d = %v, %v", i, got, err)
		}
		if got != want {
			t.Fatalf("Dequeue %d: priority %v, want %v", i, got.Priority, want.Priority)
		}
	}

	got, err := s.Dequeue(ctx)
	if err != nil || got != nil {
		t.Errorf("Dequeue on empty = %v, %v, want nil, nil", got, err)
	}
}

func TestScheduler_RetryDecaysPriorityThenDeadLetters(t *testing.T) {
	rec := &recorder{}
	s := scheduler.New(failProcessor,
		scheduler.WithClock(newFake()),
		scheduler.WithExtension(rec),
	)
	ctx := context.Background()

	it := item.New("acme", "payload",
		item.WithTier(fairq.TierBasic),
		item.WithBasePriority(100),
		item.WithMaxRetries(3),
	)
	if err := s.Enqueue(ctx, it); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	initial := it.Priority
	if initial != 200 { // 100 × tier weight 2
		t.Fatalf("initial priority = %v, want 200", initial)
	}

	// 4 attempts: 3 retries then terminal failure.
	for attempt := 1; attempt <= 4; attempt++ {
		got, err := s.Dequeue(ctx)
		if err != nil || got == nil {
			t.Fatalf("attempt %d: Dequeue = %v, %v", attempt, got, err)
		}
		if err := s.Process(ctx, got); err == nil {
			t.Fatalf("attempt %d: Process succeeded, want failure", attempt)
		}
	}

	if len(rec.retryPriorities) != 3 {
		t.Fatalf("retries = %d, want 3", len(rec.retryPriorities))
	}
	prev := initial
	for i, p := range rec.retryPriorities {
		want := prev * 0.8
		if p != want {
			t.Errorf("retry %d: priority = %v, want %v", i+1, p, want)
		}
		if p >= prev {
			t.Errorf("retry %d: priority %v did not decrease from %v", i+1, p, prev)
		}
		prev = p
	}

	if len(rec.failed) != 1 || rec.failed[0] != it.ID.String() {
		t.Fatalf("failed = %v, want the exhausted item", rec.failed)
	}

	n, err := s.DeadLetters().Store().CountDLQ(ctx)
	if err != nil || n != 1 {
		t.Errorf("CountDLQ = %d, %v, want 1", n, err)
	}

	// The item is gone from the queues.
	if got, _ := s.Dequeue(ctx); got != nil {
		t.Errorf("Dequeue after exhaustion = %v, want nil", got)
	}

	snap := s.Metrics()
	if snap.Enqueued != 1 || snap.Failed != 1 || snap.Retried != 3 {
		t.Errorf("Enqueued/Failed/Retried = %d/%d/%d, want 1/1/3",
			snap.Enqueued, snap.Failed, snap.Retried)
	}
}

func TestScheduler_PanickingProcessorCountsAsFailure(t *testing.T) {
	rec := &recorder{}
	s := scheduler.New(func(_ context.Context, _ any) (*item.Result, error) {
		panic("processor exploded")
	},
		scheduler.WithClock(newFake()),
		scheduler.WithExtension(rec),
	)
	ctx := context.Background()

	it := item.New("acme", "payload",
		item.WithTier(fairq.TierBasic),
		item.WithMaxRetries(1),
	)
	if err := s.Enqueue(ctx, it); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	// First attempt: the panic becomes a processing error and the item is
	// retried rather than unwinding through the caller.
	got, err := s.Dequeue(ctx)
	if err != nil || got == nil {
		t.Fatalf("Dequeue = %v, %v", got, err)
	}
	err = s.Process(ctx, got)
	if err == nil || !strings.Contains(err.Error(), "processor exploded") {
		t.Fatalf("Process = %v, want an error carrying the panic value", err)
	}
	if len(rec.retryPriorities) != 1 {
		t.Fatalf("retries = %d, want 1", len(rec.retryPriorities))
	}

	// Second attempt exhausts the budget and dead-letters the item.
	got, err = s.Dequeue(ctx)
	if err != nil || got == nil {
		t.Fatalf("second Dequeue = %v, %v", got, err)
	}
	if err := s.Process(ctx, got); err == nil {
		t.Fatal("second Process succeeded, want failure")
	}
	if len(rec.failed) != 1 {
		t.Fatalf("failed = %v, want the exhausted item", rec.failed)
	}
	if n, err := s.DeadLetters().Store().CountDLQ(ctx); err != nil || n != 1 {
		t.Errorf("CountDLQ = %d, %v, want 1", n, err)
	}

	// Terminal failure releases the id and the books balance.
	if err := s.Enqueue(ctx, it); err != nil {
		t.Errorf("re-Enqueue after terminal failure: %v", err)
	}
	snap := s.Metrics()
	sum := snap.Processed + snap.Failed + snap.Queued + snap.Inflight
	if sum != snap.Enqueued {
		t.Errorf("processed+failed+queued+inflight = %d, want %d", sum, snap.Enqueued)
	}
}

func TestScheduler_StartIsIdempotent(t *testing.T) {
	fake := newFake()
	s := scheduler.New(okProcessor, scheduler.WithClock(fake))
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(ctx); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	// Let the single maintenance loop arm its ticker, then deliver exactly
	// one interval. A duplicate loop would run a second pass on the same
	// advance.
	time.Sleep(100 * time.Millisecond)
	fake.Advance(s.Config().MaintenanceInterval)

	deadline := time.After(5 * time.Second)
	for s.MaintenanceTickCount() < 1 {
		select {
		case <-deadline:
			t.Fatal("maintenance loop never ticked")
		case <-time.After(5 * time.Millisecond):
		}
	}
	time.Sleep(100 * time.Millisecond)
	if got := s.MaintenanceTickCount(); got != 1 {
		t.Errorf("maintenance ticks = %d after one interval, want 1", got)
	}

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestScheduler_ProcessorReportedTimingIsHonored(t *testing.T) {
	s := scheduler.New(func(_ context.Context, _ any) (*item.Result, error) {
		return &item.Result{
			Success:        true,
			ProcessingTime: 45 * time.Millisecond,
			ResourcesUsed:  map[string]float64{"tokens": 128, "gpu_seconds": 1.5},
		}, nil
	}, scheduler.WithClock(newFake()))
	ctx := context.Background()

	if err := s.Enqueue(ctx, item.New("acme", nil,
		item.WithTier(fairq.TierBasic))); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	got, err := s.Dequeue(ctx)
	if err != nil || got == nil {
		t.Fatalf("Dequeue = %v, %v", got, err)
	}
	if err := s.Process(ctx, got); err != nil {
		t.Fatalf("Process: %v", err)
	}

	snap, ok := s.Metrics().Tenants["acme"]
	if !ok {
		t.Fatal("tenant not in snapshot")
	}
	// The fake clock never moves during Process, so the recorded duration
	// can only be the processor's own measurement.
	if snap.AvgProcessing != 45*time.Millisecond {
		t.Errorf("AvgProcessing = %v, want the reported 45ms", snap.AvgProcessing)
	}
	if snap.ResourcesUsed["tokens"] != 128 || snap.ResourcesUsed["gpu_seconds"] != 1.5 {
		t.Errorf("ResourcesUsed = %v, want tokens 128 and gpu_seconds 1.5", snap.ResourcesUsed)
	}
}

func TestScheduler_MaintenancePrunesDepartedTenantHistory(t *testing.T) {
	fake := newFake()
	s := scheduler.New(okProcessor, scheduler.WithClock(fake))
	ctx := context.Background()

	// A transient tenant does all the work, then departs with an empty queue.
	for i := 0; i < 4; i++ {
		if err := s.Enqueue(ctx, item.New("transient", nil,
			item.WithTier(fairq.TierBasic))); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
		got, err := s.Dequeue(ctx)
		if err != nil || got == nil {
			t.Fatalf("Dequeue = %v, %v", got, err)
		}
		if err := s.Process(ctx, got); err != nil {
			t.Fatalf("Process: %v", err)
		}
	}

	// A second tenant is served once and keeps an item queued.
	if err := s.Enqueue(ctx, item.New("steady", nil,
		item.WithTier(fairq.TierBasic))); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	got, err := s.Dequeue(ctx)
	if err != nil || got == nil {
		t.Fatalf("Dequeue = %v, %v", got, err)
	}
	s.Return(got)

	if score := s.FairnessScore(); score >= 0.5 {
		t.Fatalf("FairnessScore = %v with skewed history, want < 0.5", score)
	}

	// Maintenance prunes the departed tenant's empty queue and drops its
	// service history with it.
	s.Maintain(fake.Now())
	if score := s.FairnessScore(); score != 1 {
		t.Errorf("FairnessScore = %v after departed tenant pruned, want 1", score)
	}
}

func TestScheduler_ConservationAcrossLifecycle(t *testing.T) {
	s := scheduler.New(func(_ context.Context, payload any) (*item.Result, error) {
		if payload == "fail" {
			return nil, errors.New("boom")
		}
		return &item.Result{Success: true}, nil
	}, scheduler.WithClock(newFake()))
	ctx := context.Background()

	// 10 items: 6 succeed, 2 fail terminally, 2 never dequeued.
	for i := 0; i < 6; i++ {
		if err := s.Enqueue(ctx, item.New("good", "ok",
			item.WithTier(fairq.TierBasic))); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		if err := s.Enqueue(ctx, item.New("bad", "fail",
			item.WithTier(fairq.TierFree), item.WithMaxRetries(0))); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		if err := s.Enqueue(ctx, item.New("idle", "ok",
			item.WithTier(fairq.TierPremium))); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	// Drain everything except the two idle-tenant items.
	drained := 0
	for drained < 8 {
		got, err := s.Dequeue(ctx)
		if err != nil || got == nil {
			t.Fatalf("Dequeue = %v, %v after %d drained", got, err, drained)
		}
		if got.TenantID == "idle" {
			s.Return(got)
			continue
		}
		_ = s.Process(ctx, got) //nolint:errcheck // failures are part of the scenario
		drained++
	}

	snap := s.Metrics()
	if snap.Enqueued != 10 {
		t.Fatalf("Enqueued = %d, want 10", snap.Enqueued)
	}
	sum := snap.Processed + snap.Failed + snap.Queued + snap.Inflight
	if sum != snap.Enqueued {
		t.Errorf("processed+failed+queued+inflight = %d, want %d", sum, snap.Enqueued)
	}
	if snap.Processed != 6 || snap.Failed != 2 || snap.Queued != 2 || snap.Inflight != 0 {
		t.Errorf("Processed/Failed/Queued/Inflight = %d/%d/%d/%d, want 6/2/2/0",
			snap.Processed, snap.Failed, snap.Queued, snap.Inflight)
	}
}

func TestScheduler_MaintenanceAgesWaitingItems(t *testing.T) {
	fake := newFake()
	s := scheduler.New(okProcessor, scheduler.WithClock(fake))
	ctx := context.Background()

	// Old low-priority item, then 100s later a fresh higher-priority one.
	old := item.New("acme", nil, item.WithTier(fairq.TierBasic), item.WithBasePriority(10))
	if err := s.Enqueue(ctx, old); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	fake.Advance(100 * time.Second)
	fresh := item.New("acme", nil, item.WithTier(fairq.TierBasic), item.WithBasePriority(25))
	if err := s.Enqueue(ctx, fresh); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	// Without aging: fresh (50) beats old (20). One maintenance pass adds
	// agingFactor 5 × (100s / 10s) = 50 to the old item, lifting it to 70.
	s.Maintain(fake.Now())

	got, err := s.Dequeue(ctx)
	if err != nil || got == nil {
		t.Fatalf("Dequeue = %v, %v", got, err)
	}
	if got != old {
		t.Errorf("dequeued priority %v, want the aged item first", got.Priority)
	}
}

func TestScheduler_MaintenanceEscalatesStarvation(t *testing.T) {
	fake := newFake()
	s := scheduler.New(okProcessor, scheduler.WithClock(fake))
	ctx := context.Background()

	if err := s.Enqueue(ctx, item.New("acme", nil,
		item.WithTier(fairq.TierFree))); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	s.Maintain(fake.Now())
	if got := s.Metrics().StarvationIncidents; got != 0 {
		t.Fatalf("StarvationIncidents = %d before MaxStarvationTime, want 0", got)
	}

	fake.Advance(31 * time.Second) // default MaxStarvationTime is 30s
	s.Maintain(fake.Now())
	if got := s.Metrics().StarvationIncidents; got != 1 {
		t.Errorf("StarvationIncidents = %d, want 1", got)
	}
}

func TestScheduler_BurstRaisesThenRestoresOnce(t *testing.T) {
	fake := newFake()
	rec := &recorder{}
	s := scheduler.New(okProcessor,
		scheduler.WithClock(fake),
		scheduler.WithExtension(rec),
	)
	ctx := context.Background()

	allowance := s.HandleBurst(ctx, 1000, 2*time.Second)
	if allowance < 1200 {
		t.Fatalf("allowance = %v, want ≥ 1200", allowance)
	}
	if len(rec.burstsActivated) != 1 || rec.burstsActivated[0] != allowance {
		t.Fatalf("burst activations = %v, want [%v]", rec.burstsActivated, allowance)
	}
	if !s.BurstActive() {
		t.Fatal("burst should be active")
	}

	// The window elapses; the next dequeue pass restores the baseline.
	fake.Advance(3 * time.Second)
	if _, err := s.Dequeue(ctx); err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if got := s.BurstAllowance(); got != 100 {
		t.Errorf("allowance = %v after restore, want baseline 100", got)
	}
	if len(rec.burstsCompleted) != 1 || rec.burstsCompleted[0] != 100 {
		t.Fatalf("burst completions = %v, want [100]", rec.burstsCompleted)
	}

	// Restoration is exactly-once.
	if _, err := s.Dequeue(ctx); err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if len(rec.burstsCompleted) != 1 {
		t.Errorf("burst completions = %d after second pass, want still 1", len(rec.burstsCompleted))
	}
}

func TestScheduler_AdjustPolicyMergesAndNotifies(t *testing.T) {
	rec := &recorder{}
	s := scheduler.New(okProcessor,
		scheduler.WithClock(newFake()),
		scheduler.WithExtension(rec),
	)
	ctx := context.Background()

	alg := fairq.Stride
	updated := s.AdjustPolicy(ctx, fairq.PolicyUpdate{
		Algorithm:   &alg,
		TierWeights: map[fairq.Tier]float64{fairq.TierFree: 3},
	})

	if updated.Algorithm != fairq.Stride {
		t.Errorf("Algorithm = %v, want Stride", updated.Algorithm)
	}
	if updated.TierWeights[fairq.TierFree] != 3 {
		t.Errorf("free weight = %v, want 3", updated.TierWeights[fairq.TierFree])
	}
	if updated.TierWeights[fairq.TierEnterprise] != 8 {
		t.Errorf("enterprise weight = %v, want 8 untouched", updated.TierWeights[fairq.TierEnterprise])
	}
	if s.Policy().Algorithm != fairq.Stride {
		t.Error("Policy() should reflect the update")
	}
	if len(rec.policies) != 1 || rec.policies[0].Algorithm != fairq.Stride {
		t.Errorf("policy notifications = %v, want one with Stride", rec.policies)
	}
}

func TestScheduler_ClosedAfterStop(t *testing.T) {
	s := scheduler.New(okProcessor, scheduler.WithClock(newFake()))
	ctx := context.Background()

	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}

	if err := s.Enqueue(ctx, item.New("acme", nil,
		item.WithTier(fairq.TierBasic))); !errors.Is(err, fairq.ErrSchedulerClosed) {
		t.Errorf("Enqueue after Stop = %v, want ErrSchedulerClosed", err)
	}
	if _, err := s.Dequeue(ctx); !errors.Is(err, fairq.ErrSchedulerClosed) {
		t.Errorf("Dequeue after Stop = %v, want ErrSchedulerClosed", err)
	}
	if err := s.Start(ctx); !errors.Is(err, fairq.ErrSchedulerClosed) {
		t.Errorf("Start after Stop = %v, want ErrSchedulerClosed", err)
	}
}

func TestScheduler_DeadlineRaisesUrgency(t *testing.T) {
	fake := newFake()
	s := scheduler.New(okProcessor, scheduler.WithClock(fake))
	ctx := context.Background()

	relaxed := item.New("acme", nil, item.WithTier(fairq.TierBasic), item.WithBasePriority(10))
	urgent := item.New("acme", nil, item.WithTier(fairq.TierBasic), item.WithBasePriority(10),
		item.WithDeadline(fake.Now().Add(20*time.Second)))

	if err := s.Enqueue(ctx, relaxed); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := s.Enqueue(ctx, urgent); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	// urgency bonus = 100 − 20 = 80: (10+80)×2 = 180 vs 10×2 = 20.
	if urgent.Priority != 180 {
		t.Errorf("urgent priority = %v, want 180", urgent.Priority)
	}
	got, err := s.Dequeue(ctx)
	if err != nil || got != urgent {
		t.Errorf("Dequeue = %v, %v, want the deadline item first", got, err)
	}
}
