// Package item defines the work item model: the unit of scheduling, its
// classification metadata, lifecycle states, and the external processor
// contract.
package item

import (
	"time"

	"github.com/xraph/fairq"
	"github.com/xraph/fairq/id"
)

// State represents the lifecycle state of a work item.
type State string

const (
	// StatePending means the item is resident in its tenant queue.
	StatePending State = "pending"
	// StateRunning means a consumer is currently processing the item.
	StateRunning State = "running"
	// StateCompleted means processing finished successfully.
	StateCompleted State = "completed"
	// StateRetrying means processing failed and the item is awaiting
	// re-enqueue with decayed priority.
	StateRetrying State = "retrying"
	// StateFailed means the item exhausted its retry budget. Terminal.
	StateFailed State = "failed"
)

// Terminal reports whether the state is terminal. An item is never mutated
// after reaching a terminal state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Complexity classifies how expensive an item is expected to be. It scales
// the dynamic priority so heavier work is surfaced earlier.
type Complexity string

const (
	ComplexityLow      Complexity = "low"
	ComplexityMedium   Complexity = "medium"
	ComplexityHigh     Complexity = "high"
	ComplexityCritical Complexity = "critical"
)

// Factor returns the priority multiplier for the complexity level.
// Unknown levels fall back to 1.0.
func (c Complexity) Factor() float64 {
	switch c {
	case ComplexityMedium:
		return 1.2
	case ComplexityHigh:
		return 1.5
	case ComplexityCritical:
		return 2.0
	default:
		return 1.0
	}
}

// Classification carries metadata about the origin and shape of the work.
// It does not affect scheduling except through Complexity.
type Classification struct {
	Source     string     `json:"source,omitempty"`
	Kind       string     `json:"kind,omitempty"`
	SizeBytes  int64      `json:"size_bytes,omitempty"`
	Complexity Complexity `json:"complexity,omitempty"`
}

// Item is a unit of work resident in a tenant queue.
//
// Priority is mutated by aging, starvation boosts, and retry decay while
// the item is queued; all such mutation happens under the owning tenant
// queue's lock. Priority is never negative.
type Item struct {
	ID       id.ItemID `json:"id"`
	TenantID string    `json:"tenant_id"`
	Tier     fairq.Tier `json:"tier"`

	// Payload is opaque to the scheduler and handed to the processor as-is.
	Payload any `json:"payload,omitempty"`

	// BasePriority is the caller-supplied priority before dynamic
	// adjustments. Priority is the current effective value.
	BasePriority float64 `json:"base_priority"`
	Priority     float64 `json:"priority"`

	// Cost is the caller's estimate of processing cost, ≥ 0. It feeds the
	// proportional-share algorithm and the adaptive controller.
	Cost float64 `json:"cost"`

	// Deadline, when set, adds an urgency bonus to the dynamic priority.
	// Missing a deadline never evicts an item.
	Deadline *time.Time `json:"deadline,omitempty"`

	// Timeout bounds a single processing attempt. Zero means no limit.
	Timeout time.Duration `json:"timeout,omitempty"`

	MaxRetries int `json:"max_retries"`
	RetryCount int `json:"retry_count"`

	State     State          `json:"state"`
	Class     Classification `json:"class"`
	LastError string         `json:"last_error,omitempty"`

	EnqueuedAt  time.Time  `json:"enqueued_at"`
	DequeuedAt  *time.Time `json:"dequeued_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// New creates a pending work item for the given tenant with a fresh ID and
// the supplied options applied.
func New(tenantID string, payload any, opts ...Option) *Item {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Item{
		ID:           id.NewItemID(),
		TenantID:     tenantID,
		Tier:         o.Tier,
		Payload:      payload,
		BasePriority: o.BasePriority,
		Priority:     o.BasePriority,
		Cost:         o.Cost,
		Deadline:     o.Deadline,
		Timeout:      o.Timeout,
		MaxRetries:   o.MaxRetries,
		State:        StatePending,
		Class:        o.Class,
	}
}

// Age returns how long the item has been resident since enqueue.
func (it *Item) Age(now time.Time) time.Duration {
	return now.Sub(it.EnqueuedAt)
}

// Wait returns the queue wait time (dequeue − enqueue), or 0 if the item
// has not been dequeued.
func (it *Item) Wait() time.Duration {
	if it.DequeuedAt == nil {
		return 0
	}
	return it.DequeuedAt.Sub(it.EnqueuedAt)
}
