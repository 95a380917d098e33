package queue

import (
	"sort"
	"sync"
	"time"

	"github.com/xraph/fairq"
	"github.com/xraph/fairq/item"
)

// Registry owns one independently locked TenantQueue per tenant. Queues for
// the four default tiers always exist; other tenant queues are created
// lazily on first enqueue and may be pruned by maintenance when empty.
type Registry struct {
	mu      sync.RWMutex
	tenants map[string]*tenantSlot
}

// tenantSlot pairs a queue with its own mutex so enqueue, dequeue, and
// aging on one tenant are mutually exclusive without a global lock.
type tenantSlot struct {
	mu        sync.Mutex
	q         *TenantQueue
	permanent bool
}

// NewRegistry creates a registry pre-populated with the default tier queues.
func NewRegistry() *Registry {
	r := &Registry{tenants: make(map[string]*tenantSlot)}
	for _, tier := range fairq.DefaultTiers() {
		r.tenants[string(tier)] = &tenantSlot{
			q:         New(string(tier), tier),
			permanent: true,
		}
	}
	return r
}

// slot returns the tenant's slot, creating it lazily if create is set.
func (r *Registry) slot(tenant string, tier fairq.Tier, create bool) *tenantSlot {
	r.mu.RLock()
	s, ok := r.tenants[tenant]
	r.mu.RUnlock()
	if ok || !create {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok = r.tenants[tenant]; ok {
		return s
	}
	s = &tenantSlot{q: New(tenant, tier)}
	r.tenants[tenant] = s
	return s
}

// Enqueue inserts the item into its tenant's queue, creating the queue on
// first use.
func (r *Registry) Enqueue(it *item.Item) {
	s := r.slot(it.TenantID, it.Tier, true)
	s.mu.Lock()
	s.q.Push(it)
	s.mu.Unlock()
}

// PopHead removes and returns the head item of the tenant's queue, or nil
// if the tenant has no queue or the queue is empty.
func (r *Registry) PopHead(tenant string) *item.Item {
	s := r.slot(tenant, "", false)
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.Pop()
}

// BoostHead adds delta to the priority of the tenant's head item.
func (r *Registry) BoostHead(tenant string, delta float64) bool {
	s := r.slot(tenant, "", false)
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.BoostHead(delta)
}

// AgeAll ages every tenant queue and returns the total number of items
// boosted. Each queue is aged under its own lock.
func (r *Registry) AgeAll(now time.Time, threshold time.Duration, factor float64) int {
	total := 0
	for _, s := range r.slots() {
		s.mu.Lock()
		total += s.q.Age(now, threshold, factor)
		s.mu.Unlock()
	}
	return total
}

// Info is a point-in-time view of one tenant queue, taken under its lock.
type Info struct {
	Tenant         string
	Tier           fairq.Tier
	Length         int
	QueuedCost     float64
	HeadPriority   float64
	HeadEnqueuedAt time.Time
}

// Snapshot returns a consistent per-queue view of all non-empty queues,
// sorted by tenant id so downstream selection is deterministic.
func (r *Registry) Snapshot() []Info {
	var out []Info
	for _, s := range r.slots() {
		s.mu.Lock()
		if head := s.q.Peek(); head != nil {
			out = append(out, Info{
				Tenant:         s.q.Tenant(),
				Tier:           s.q.Tier(),
				Length:         s.q.Len(),
				QueuedCost:     s.q.QueuedCost(),
				HeadPriority:   head.Priority,
				HeadEnqueuedAt: head.EnqueuedAt,
			})
		}
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tenant < out[j].Tenant })
	return out
}

// Lengths returns the current length of every queue, including empty ones.
func (r *Registry) Lengths() map[string]int {
	out := make(map[string]int)
	for _, s := range r.slots() {
		s.mu.Lock()
		out[s.q.Tenant()] = s.q.Len()
		s.mu.Unlock()
	}
	return out
}

// QueuedCount returns the total number of resident items across all queues.
func (r *Registry) QueuedCount() int {
	total := 0
	for _, s := range r.slots() {
		s.mu.Lock()
		total += s.q.Len()
		s.mu.Unlock()
	}
	return total
}

// PruneEmpty removes empty non-default tenant queues and returns the
// tenants pruned. The default tier queues always survive.
func (r *Registry) PruneEmpty() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pruned []string
	for tenant, s := range r.tenants {
		if s.permanent {
			continue
		}
		s.mu.Lock()
		empty := s.q.Len() == 0
		s.mu.Unlock()
		if empty {
			delete(r.tenants, tenant)
			pruned = append(pruned, tenant)
		}
	}
	return pruned
}

// slots returns a stable copy of all tenant slots.
func (r *Registry) slots() []*tenantSlot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*tenantSlot, 0, len(r.tenants))
	for _, s := range r.tenants {
		out = append(out, s)
	}
	return out
}
