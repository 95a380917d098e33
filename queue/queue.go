// Package queue provides the per-tenant priority queues, the registry that
// owns one independently locked queue per tenant, and dequeue-side
// admission limits.
package queue

import (
	"container/heap"
	"time"

	"github.com/xraph/fairq"
	"github.com/xraph/fairq/item"
)

// TenantQueue is one ordered container per tenant. Items are sorted by
// descending priority; ties break on ascending enqueue sequence so ordering
// is deterministic even when timestamps collide.
//
// The container assumes single-writer-at-a-time access: all operations on
// one TenantQueue must be externally synchronized. The Registry provides
// that synchronization with a per-tenant mutex.
type TenantQueue struct {
	tenant string
	tier   fairq.Tier

	entries entryHeap
	seq     uint64
	cost    float64
}

// entry pairs an item with its heap bookkeeping.
type entry struct {
	it    *item.Item
	seq   uint64
	index int
}

// New creates an empty queue for the tenant.
func New(tenant string, tier fairq.Tier) *TenantQueue {
	return &TenantQueue{tenant: tenant, tier: tier}
}

// Tenant returns the owning tenant id.
func (q *TenantQueue) Tenant() string { return q.tenant }

// Tier returns the tenant's service tier.
func (q *TenantQueue) Tier() fairq.Tier { return q.tier }

// Len returns the number of resident items.
func (q *TenantQueue) Len() int { return len(q.entries) }

// QueuedCost returns the summed cost estimate of resident items.
func (q *TenantQueue) QueuedCost() float64 { return q.cost }

// Push inserts an item, maintaining sort order.
func (q *TenantQueue) Push(it *item.Item) {
	e := &entry{it: it, seq: q.seq}
	q.seq++
	q.cost += it.Cost
	heap.Push(&q.entries, e)
}

// Pop removes and returns the head item, or nil if the queue is empty.
func (q *TenantQueue) Pop() *item.Item {
	if len(q.entries) == 0 {
		return nil
	}
	e := heap.Pop(&q.entries).(*entry)
	q.cost -= e.it.Cost
	return e.it
}

// Peek returns the head item without removing it, or nil if empty.
func (q *TenantQueue) Peek() *item.Item {
	if len(q.entries) == 0 {
		return nil
	}
	return q.entries[0].it
}

// BoostHead adds delta to the head item's priority. Reports whether a head
// existed. The heap order cannot change: raising the maximum keeps it the
// maximum.
func (q *TenantQueue) BoostHead(delta float64) bool {
	if len(q.entries) == 0 {
		return false
	}
	q.entries[0].it.Priority += delta
	return true
}

// Age scans all resident items and, for any item whose age exceeds
// threshold, increases priority by factor * (age / threshold), then
// restores heap order. Returns the number of items boosted.
//
// Aging only ever raises priorities, so an aged item's priority is
// monotonically non-decreasing over its residency.
func (q *TenantQueue) Age(now time.Time, threshold time.Duration, factor float64) int {
	if threshold <= 0 || len(q.entries) == 0 {
		return 0
	}

	boosted := 0
	for _, e := range q.entries {
		age := e.it.Age(now)
		if age <= threshold {
			continue
		}
		e.it.Priority += factor * (float64(age) / float64(threshold))
		boosted++
	}

	if boosted > 0 {
		heap.Init(&q.entries)
	}
	return boosted
}

// entryHeap implements heap.Interface over queue entries.
type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.it.Priority != b.it.Priority {
		return a.it.Priority > b.it.Priority
	}
	return a.seq < b.seq
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil // avoid memory leak
	e.index = -1   // for safety
	*h = old[0 : n-1]
	return e
}
