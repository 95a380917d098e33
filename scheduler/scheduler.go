// Package scheduler wires the fairq subsystems into the scheduling core:
// per-tenant queues, the fairness manager, starvation prevention, the
// metrics collector, and the adaptive burst controller, behind a single
// enqueue → select → process lifecycle.
package scheduler

import (
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/xraph/fairq"
	"github.com/xraph/fairq/adaptive"
	"github.com/xraph/fairq/backoff"
	"github.com/xraph/fairq/clock"
	"github.com/xraph/fairq/dlq"
	"github.com/xraph/fairq/ext"
	"github.com/xraph/fairq/fairness"
	"github.com/xraph/fairq/item"
	"github.com/xraph/fairq/middleware"
	"github.com/xraph/fairq/queue"
	"github.com/xraph/fairq/stats"
	"github.com/xraph/fairq/store/memory"
)

// Scheduler is the multi-tenant fair scheduling core. It owns the tenant
// queues and all supporting subsystems; consumers drive it through Dequeue
// and Process, typically via a worker.Pool.
type Scheduler struct {
	cfg    fairq.Config
	logger *slog.Logger
	clk    clock.Clock

	queues      *queue.Registry
	manager     *fairness.Manager
	preventer   *fairness.Preventer
	collector   *stats.Collector
	controller  *adaptive.Controller
	extensions  *ext.Registry
	limits      *queue.Limits
	deadLetters *dlq.Service

	processor item.Processor
	chain     middleware.Middleware
	backoff   backoff.Strategy

	// live tracks the ids of items currently owned by the scheduler
	// (queued, inflight, or parked for retry) for duplicate rejection.
	liveMu sync.Mutex
	live   map[string]struct{}

	// retries holds failed items waiting out a positive backoff delay.
	retryMu sync.Mutex
	retries []*delayedItem

	closed           atomic.Bool
	maintenanceTicks atomic.Int64

	loopMu  sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// delayedItem is a retrying item parked until its backoff delay elapses.
type delayedItem struct {
	it    *item.Item
	dueAt int64 // unix nanos
}

// options collects everything New can be configured with.
type options struct {
	cfg         fairq.Config
	logger      *slog.Logger
	clk         clock.Clock
	policy      fairq.FairnessPolicy
	rng         *rand.Rand
	dlqStore    dlq.Store
	extensions  []ext.Extension
	middlewares []middleware.Middleware
	backoff     backoff.Strategy
	limitsCfg   *queue.LimitsConfig
}

// Option configures a Scheduler.
type Option func(*options)

// WithConfig sets the runtime configuration.
func WithConfig(cfg fairq.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock injects the time source. Tests pass clock.NewFake to drive
// aging, starvation, and burst restoration deterministically.
func WithClock(clk clock.Clock) Option {
	return func(o *options) { o.clk = clk }
}

// WithPolicy sets the initial fairness policy.
func WithPolicy(p fairq.FairnessPolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithRand injects the random source used by lottery selection.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

// WithDeadLetterStore sets the persistence backend for terminally failed
// items. Defaults to the in-memory store.
func WithDeadLetterStore(s dlq.Store) Option {
	return func(o *options) { o.dlqStore = s }
}

// WithExtension registers a lifecycle extension. May be given repeatedly;
// extensions are notified in registration order.
func WithExtension(e ext.Extension) Option {
	return func(o *options) { o.extensions = append(o.extensions, e) }
}

// WithMiddleware appends processing middleware. The first middleware given
// is the outermost wrapper around the processor.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(o *options) { o.middlewares = append(o.middlewares, mws...) }
}

// WithBackoff sets the retry delay strategy. The default re-enqueues
// immediately with decayed priority.
func WithBackoff(s backoff.Strategy) Option {
	return func(o *options) { o.backoff = s }
}

// WithLimits configures global admission limits (concurrency and rate).
// The rate limiter's burst doubles as the adaptive burst allowance.
func WithLimits(cfg queue.LimitsConfig) Option {
	return func(o *options) { o.limitsCfg = &cfg }
}

// New creates a scheduler that runs items through the given processor.
func New(processor item.Processor, opts ...Option) *Scheduler {
	o := options{
		cfg:    fairq.DefaultConfig(),
		logger: slog.Default(),
		clk:    clock.System(),
		policy: fairq.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.backoff == nil {
		o.backoff = backoff.DefaultStrategy()
	}
	if o.dlqStore == nil {
		o.dlqStore = memory.New()
	}

	var limits *queue.Limits
	if o.limitsCfg != nil {
		limits = queue.NewLimits(*o.limitsCfg)
	}

	managerOpts := []fairness.Option{fairness.WithLogger(o.logger)}
	if o.rng != nil {
		managerOpts = append(managerOpts, fairness.WithRand(o.rng))
	}

	queues := queue.NewRegistry()
	manager := fairness.NewManager(o.policy, managerOpts...)
	registry := ext.NewRegistry(o.logger)
	for _, e := range o.extensions {
		registry.Register(e)
	}

	s := &Scheduler{
		cfg:         o.cfg,
		logger:      o.logger,
		clk:         o.clk,
		queues:      queues,
		manager:     manager,
		preventer:   fairness.NewPreventer(queues, manager, o.logger),
		collector:   stats.NewCollector(o.clk, o.cfg.SampleWindow),
		controller:  adaptive.NewController(o.clk, limits, o.policy.BurstAllowance, o.logger),
		extensions:  registry,
		limits:      limits,
		deadLetters: dlq.NewService(o.dlqStore),
		processor:   processor,
		chain:       middleware.Chain(o.middlewares...),
		backoff:     o.backoff,
		live:        make(map[string]struct{}),
		stopCh:      make(chan struct{}),
	}
	return s
}

// Config returns the scheduler's runtime configuration.
func (s *Scheduler) Config() fairq.Config { return s.cfg }

// Limits returns the admission limits, or nil when none are configured.
func (s *Scheduler) Limits() *queue.Limits { return s.limits }

// Extensions returns the extension registry.
func (s *Scheduler) Extensions() *ext.Registry { return s.extensions }

// DeadLetters returns the dead letter service.
func (s *Scheduler) DeadLetters() *dlq.Service { return s.deadLetters }

// Policy returns a snapshot of the active fairness policy.
func (s *Scheduler) Policy() fairq.FairnessPolicy { return s.manager.Policy() }

// track registers an item id as live. Reports false when already present.
func (s *Scheduler) track(id string) bool {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	if _, ok := s.live[id]; ok {
		return false
	}
	s.live[id] = struct{}{}
	return true
}

// untrack releases an item id after terminal completion.
func (s *Scheduler) untrack(id string) {
	s.liveMu.Lock()
	delete(s.live, id)
	s.liveMu.Unlock()
}
