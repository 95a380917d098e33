package item

import (
	"context"
	"time"
)

// Result is the outcome reported by an external processor.
type Result struct {
	// Success reports whether the work succeeded. A false value is treated
	// exactly like a returned error.
	Success bool

	// Output is the opaque result of the work, if any.
	Output any

	// Err carries the failure cause when Success is false.
	Err error

	// ProcessingTime is the processor's own measurement of work duration,
	// recorded in place of the scheduler's measurement when non-zero.
	ProcessingTime time.Duration

	// ResourcesUsed records arbitrary resource consumption, accumulated
	// into the tenant's statistics on completion.
	ResourcesUsed map[string]float64
}

// Processor is the externally supplied processing function. It is treated
// as an opaque, potentially long-running effect (model inference, browser
// automation, I/O) and always runs outside queue locks. A panic inside a
// processor is treated identically to a reported failure.
type Processor func(ctx context.Context, payload any) (*Result, error)
