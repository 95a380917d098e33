// Package dlq provides the dead letter queue for items that have exhausted
// their retry budget. It supports inspection, replay, and purging.
//
// When processing fails and MaxRetries has been reached, the scheduler calls
// [Service.Push] to move the item into the DLQ. The payload, final error
// message, and retry counts are preserved for debugging.
//
// # Entry
//
// A [Entry] captures:
//   - ItemID / TenantID / Tier: original item identity
//   - Payload: the item payload serialized to JSON at time of failure
//   - Error: the final error message
//   - RetryCount / MaxRetries: exhausted retry budget
//   - FailedAt: when the terminal failure occurred
//   - ReplayedAt: set when the entry is replayed (nil if not yet replayed)
//
// # Service
//
// [Service] wraps the DLQ store with high-level operations:
//
//	svc := dlq.NewService(store)
//
//	// Push is called automatically by the scheduler on terminal failure.
//	svc.Push(ctx, failedItem, err)
//
//	// Access the underlying store for list/get/purge/count.
//	svc.Store().ListDLQ(ctx, dlq.ListOpts{Limit: 50})
//
// # Replay
//
// [Service.Replay] rebuilds a fresh pending item from an entry and marks the
// entry as replayed. The caller enqueues the returned item through the
// scheduler; the DLQ itself never touches the queues.
package dlq
