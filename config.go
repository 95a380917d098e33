package fairq

import "time"

// Config holds runtime configuration for a scheduler instance.
type Config struct {
	// Concurrency is the default number of consumer goroutines a worker
	// pool built for this scheduler will run.
	Concurrency int

	// PollInterval is how long a consumer sleeps when all queues are empty.
	PollInterval time.Duration

	// MaintenanceInterval is how often the background maintenance tick
	// runs (aging, starvation checks, retry flushing, queue pruning).
	MaintenanceInterval time.Duration

	// AdaptiveInterval is how often the adaptive controller analyzes
	// aggregate statistics. It should be a multiple of MaintenanceInterval.
	AdaptiveInterval time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration

	// SampleWindow bounds the per-tenant rolling wait/processing time
	// windows kept by the metrics collector.
	SampleWindow int

	// DefaultMaxRetries is applied to items enqueued without an explicit
	// retry budget.
	DefaultMaxRetries int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:         10,
		PollInterval:        100 * time.Millisecond,
		MaintenanceInterval: 1 * time.Second,
		AdaptiveInterval:    10 * time.Second,
		ShutdownTimeout:     30 * time.Second,
		SampleWindow:        1000,
		DefaultMaxRetries:   3,
	}
}
