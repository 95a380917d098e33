package fairness

import (
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/xraph/fairq"
	"github.com/xraph/fairq/queue"
)

// Manager chooses which tenant queue to serve and tracks per-tenant
// consumption so the choice trends toward proportional fairness over time.
// It owns the active FairnessPolicy: mutation goes through Update and
// selection always works on a consistent snapshot.
type Manager struct {
	mu        sync.Mutex
	policy    fairq.FairnessPolicy
	selectors map[fairq.Algorithm]Selector
	rng       *rand.Rand
	logger    *slog.Logger

	served  map[string]*serviceState
	starved map[string]struct{}
}

// serviceState is the consumption history for one tenant.
type serviceState struct {
	processed  int
	servedCost float64
	lastServed time.Time
	firstSeen  time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithRand injects the random source used by lottery selection. Tests pass
// a seeded source for reproducible draws.
func WithRand(rng *rand.Rand) Option {
	return func(m *Manager) { m.rng = rng }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a fairness manager with the given starting policy.
func NewManager(policy fairq.FairnessPolicy, opts ...Option) *Manager {
	m := &Manager{
		policy:    policy.Clone(),
		selectors: make(map[fairq.Algorithm]Selector),
		logger:    slog.Default(),
		served:    make(map[string]*serviceState),
		starved:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return m
}

// Policy returns a snapshot of the active policy.
func (m *Manager) Policy() fairq.FairnessPolicy {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.policy.Clone()
}

// Update merges the partial update into the active policy and returns the
// resulting snapshot. It takes effect on the next selection.
func (m *Manager) Update(u fairq.PolicyUpdate) fairq.FairnessPolicy {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policy = m.policy.Merge(u)
	return m.policy.Clone()
}

// selector returns the cached selector for the algorithm, creating it on
// first use. Stateful selectors (stride) keep their state across policy
// updates that do not change the algorithm.
func (m *Manager) selector(alg fairq.Algorithm) Selector {
	s, ok := m.selectors[alg]
	if !ok {
		s = newSelector(alg, m.rng)
		m.selectors[alg] = s
	}
	return s
}

// Select picks the tenant to serve among the given non-empty queues.
// Starved tenants flagged by the starvation preventer (or BoostOverdue)
// are served first, oldest head wins. Returns ok=false when infos is empty.
func (m *Manager) Select(infos []queue.Info, now time.Time) (string, bool) {
	if len(infos) == 0 {
		return "", false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, info := range infos {
		m.observe(info.Tenant, now)
	}

	// Starvation signal takes precedence over the algorithm.
	if len(m.starved) > 0 {
		best := -1
		for i, info := range infos {
			if _, ok := m.starved[info.Tenant]; !ok {
				continue
			}
			if best < 0 || info.HeadEnqueuedAt.Before(infos[best].HeadEnqueuedAt) {
				best = i
			}
		}
		if best >= 0 {
			tenant := infos[best].Tenant
			delete(m.starved, tenant)
			return tenant, true
		}
	}

	cands := m.candidates(infos)
	tenant, ok := m.selector(m.policy.Algorithm).Pick(cands)
	return tenant, ok
}

// candidates builds the selector input from queue infos plus the manager's
// service history. infos arrive sorted by tenant id from the registry.
func (m *Manager) candidates(infos []queue.Info) []Candidate {
	cands := make([]Candidate, 0, len(infos))
	for _, info := range infos {
		c := Candidate{
			Tenant:         info.Tenant,
			Tier:           info.Tier,
			Weight:         m.policy.Weight(info.Tier),
			Length:         info.Length,
			QueuedCost:     info.QueuedCost,
			HeadPriority:   info.HeadPriority,
			HeadEnqueuedAt: info.HeadEnqueuedAt,
		}
		if st := m.served[info.Tenant]; st != nil {
			c.Processed = st.processed
			c.ServedCost = st.servedCost
		}
		cands = append(cands, c)
	}
	return cands
}

// RecordService records that the tenant was served an item of the given
// cost and clears any starvation flag.
func (m *Manager) RecordService(tenant string, cost float64, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.observe(tenant, now)
	st.processed++
	st.servedCost += cost
	st.lastServed = now
	delete(m.starved, tenant)
}

// Forget drops the service history, starvation flag, and selector state of
// the given tenants, typically after their queues were pruned. A forgotten
// tenant that enqueues again starts with fresh history.
func (m *Manager) Forget(tenants ...string) {
	if len(tenants) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, tenant := range tenants {
		delete(m.served, tenant)
		delete(m.starved, tenant)
		for _, sel := range m.selectors {
			if f, ok := sel.(forgetter); ok {
				f.Forget(tenant)
			}
		}
	}
}

// MarkStarved flags a tenant as starved so the next selection serves it
// regardless of algorithm. Reports whether the flag was newly set, letting
// callers apply at most one boost per starvation episode.
func (m *Manager) MarkStarved(tenant string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.starved[tenant]; ok {
		return false
	}
	m.starved[tenant] = struct{}{}
	return true
}

// BoostOverdue applies the starvation boost to the head item of every
// tenant whose time since last service exceeds MaxStarvationTime, and
// flags those tenants for priority selection. Called on the dequeue path
// before Select so eventual service is guaranteed regardless of algorithm.
// Returns the tenants boosted.
func (m *Manager) BoostOverdue(reg *queue.Registry, infos []queue.Info, now time.Time) []string {
	m.mu.Lock()
	policy := m.policy
	overdue := make([]string, 0)
	for _, info := range infos {
		st := m.observe(info.Tenant, now)
		since := st.lastServed
		if since.IsZero() {
			since = st.firstSeen
		}
		if now.Sub(since) <= policy.MaxStarvationTime {
			continue
		}
		if _, already := m.starved[info.Tenant]; already {
			continue
		}
		m.starved[info.Tenant] = struct{}{}
		overdue = append(overdue, info.Tenant)
	}
	m.mu.Unlock()

	for _, tenant := range overdue {
		if reg.BoostHead(tenant, policy.StarvationBoost) {
			m.logger.Debug("starvation boost applied",
				slog.String("tenant", tenant),
				slog.Float64("boost", policy.StarvationBoost),
			)
		}
	}
	return overdue
}

// observe ensures a service state exists for the tenant. Callers hold m.mu.
func (m *Manager) observe(tenant string, now time.Time) *serviceState {
	st := m.served[tenant]
	if st == nil {
		st = &serviceState{firstSeen: now}
		m.served[tenant] = st
	}
	return st
}

// FairnessScore reports max(0, 1 − variance(processedCounts) /
// (mean(processedCounts)+1)) over all observed tenants. 1 means perfectly
// even service. The score is observability-only and never drives selection.
func (m *Manager) FairnessScore() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.served) == 0 {
		return 1
	}

	mean := 0.0
	for _, st := range m.served {
		mean += float64(st.processed)
	}
	mean /= float64(len(m.served))

	variance := 0.0
	for _, st := range m.served {
		d := float64(st.processed) - mean
		variance += d * d
	}
	variance /= float64(len(m.served))

	score := 1 - variance/(mean+1)
	if score < 0 {
		return 0
	}
	return score
}

// ProcessedCounts returns a copy of the per-tenant processed counts.
func (m *Manager) ProcessedCounts() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]int, len(m.served))
	for tenant, st := range m.served {
		out[tenant] = st.processed
	}
	return out
}
