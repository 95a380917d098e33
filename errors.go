package fairq

import "errors"

var (
	// Validation errors. ErrInvalidItem is the category sentinel; enqueue
	// rejections wrap it so callers can match with errors.Is.
	ErrInvalidItem   = errors.New("fairq: invalid work item")
	ErrDuplicateItem = errors.New("fairq: duplicate item id")
	ErrUnknownTier   = errors.New("fairq: unknown tier")

	// Lifecycle errors.
	ErrSchedulerClosed = errors.New("fairq: scheduler closed")

	// Not found errors.
	ErrEntryNotFound = errors.New("fairq: dead letter entry not found")

	// ErrInternal indicates a scheduler invariant violation (e.g. the
	// fairness manager selected a tenant whose queue does not exist).
	// These are programmer errors and are logged loudly where raised.
	ErrInternal = errors.New("fairq: internal invariant violated")
)
