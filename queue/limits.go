package queue

import (
	"sync"

	"golang.org/x/time/rate"
)

// LimitsConfig defines dequeue-side admission limits. The global rate
// limiter's burst is the scheduler's burst allowance: the adaptive
// controller raises it during bursts and restores it afterwards.
type LimitsConfig struct {
	// MaxConcurrency limits how many items may be processing at once
	// across the pool. Zero means no global limit.
	MaxConcurrency int

	// RateLimit is the maximum sustained items per second admitted to
	// processing. Zero disables rate limiting.
	RateLimit float64

	// RateBurst is the burst size for the token-bucket limiter. Defaults
	// to 1 if RateLimit is set but RateBurst is zero.
	RateBurst int
}

// TenantLimit defines admission limits for a single tenant.
type TenantLimit struct {
	TenantID       string
	MaxConcurrency int
	RateLimit      float64
	RateBurst      int
}

// Limits controls global and per-tenant admission to processing. It is
// safe for concurrent use. Consumers call Acquire before invoking the
// processor and MUST call Release when processing completes.
type Limits struct {
	mu      sync.Mutex
	global  limitState
	tenants map[string]*limitState
}

type limitState struct {
	limiter        *rate.Limiter
	maxConcurrency int
	active         int
}

func newLimitState(maxConcurrency int, rateLimit float64, burst int) limitState {
	st := limitState{maxConcurrency: maxConcurrency}
	if rateLimit > 0 {
		if burst <= 0 {
			burst = 1
		}
		st.limiter = rate.NewLimiter(rate.Limit(rateLimit), burst)
	}
	return st
}

func (st *limitState) allow() bool {
	if st.limiter != nil && !st.limiter.Allow() {
		return false
	}
	if st.maxConcurrency > 0 && st.active >= st.maxConcurrency {
		return false
	}
	return true
}

// NewLimits creates admission limits with the given global configuration.
func NewLimits(cfg LimitsConfig) *Limits {
	return &Limits{
		global:  newLimitState(cfg.MaxConcurrency, cfg.RateLimit, cfg.RateBurst),
		tenants: make(map[string]*limitState),
	}
}

// SetTenantLimit configures admission limits for a specific tenant,
// replacing any previous configuration but preserving the active count.
func (l *Limits) SetTenantLimit(cfg TenantLimit) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := newLimitState(cfg.MaxConcurrency, cfg.RateLimit, cfg.RateBurst)
	if prev := l.tenants[cfg.TenantID]; prev != nil {
		st.active = prev.active
	}
	l.tenants[cfg.TenantID] = &st
}

// Acquire checks global and tenant limits. If admission is allowed it
// increments the active counters and returns true.
func (l *Limits) Acquire(tenant string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.global.allow() {
		return false
	}

	ts := l.tenants[tenant]
	if ts != nil {
		if !ts.allow() {
			return false
		}
		ts.active++
	}

	l.global.active++
	return true
}

// Release decrements the active counters for the tenant.
func (l *Limits) Release(tenant string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.global.active > 0 {
		l.global.active--
	}
	if ts := l.tenants[tenant]; ts != nil && ts.active > 0 {
		ts.active--
	}
}

// Active returns the number of items currently processing.
func (l *Limits) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.global.active
}

// SetGlobalBurst resizes the global limiter burst, if a rate limit is
// configured. The adaptive controller uses this to absorb bursts.
func (l *Limits) SetGlobalBurst(burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.global.limiter != nil && burst > 0 {
		l.global.limiter.SetBurst(burst)
	}
}

// GlobalBurst returns the current global limiter burst, or 0 when no rate
// limit is configured.
func (l *Limits) GlobalBurst() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.global.limiter == nil {
		return 0
	}
	return l.global.limiter.Burst()
}
