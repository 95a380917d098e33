// Package ext defines the extension system for fairq.
// Extensions are notified of lifecycle events (item enqueued, processed,
// retried, policy updated, etc.) and can react to them — logging, metrics,
// event streaming.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package ext

import (
	"context"
	"time"

	"github.com/xraph/fairq"
	"github.com/xraph/fairq/item"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Item lifecycle hooks
// ──────────────────────────────────────────────────

// ItemEnqueued is called after an item is successfully enqueued.
type ItemEnqueued interface {
	OnItemEnqueued(ctx context.Context, it *item.Item) error
}

// ItemDequeued is called when the scheduler hands an item to processing,
// with the time it spent queued.
type ItemDequeued interface {
	OnItemDequeued(ctx context.Context, it *item.Item, wait time.Duration) error
}

// ItemProcessed is called after an item finishes successfully.
type ItemProcessed interface {
	OnItemProcessed(ctx context.Context, it *item.Item, elapsed time.Duration) error
}

// ItemRetried is called when an attempt fails and the item is re-enqueued
// with its decayed priority.
type ItemRetried interface {
	OnItemRetried(ctx context.Context, it *item.Item, attempt int, newPriority float64) error
}

// ItemFailed is called when an item fails terminally (no more retries).
type ItemFailed interface {
	OnItemFailed(ctx context.Context, it *item.Item, err error) error
}

// ──────────────────────────────────────────────────
// Scheduler lifecycle hooks
// ──────────────────────────────────────────────────

// PolicyUpdated is called after a fairness policy update takes effect.
type PolicyUpdated interface {
	OnPolicyUpdated(ctx context.Context, policy fairq.FairnessPolicy) error
}

// BurstActivated is called when the adaptive controller raises the burst
// allowance.
type BurstActivated interface {
	OnBurstActivated(ctx context.Context, allowance float64, until time.Time) error
}

// BurstCompleted is called when the burst allowance is restored to its
// baseline.
type BurstCompleted interface {
	OnBurstCompleted(ctx context.Context, restored float64) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
