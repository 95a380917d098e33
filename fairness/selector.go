// Package fairness decides which tenant queue to serve next. The selection
// algorithm is a closed strategy set — one selector type per
// fairq.Algorithm value — so adding an algorithm is a compile-time,
// localized change rather than a string-keyed conditional.
package fairness

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/xraph/fairq"
)

// Candidate is a selection-time view of one non-empty tenant queue plus the
// manager's service history for that tenant. Candidates are always passed
// to selectors sorted by ascending tenant id, which makes "first maximum
// wins" a deterministic lowest-tenant-id tie-break.
type Candidate struct {
	Tenant         string
	Tier           fairq.Tier
	Weight         float64
	Length         int
	QueuedCost     float64
	HeadPriority   float64
	HeadEnqueuedAt time.Time

	// Processed and ServedCost come from the manager's consumption history.
	Processed  int
	ServedCost float64
}

// Selector picks the tenant to serve from a non-empty candidate list.
type Selector interface {
	// Name returns the algorithm name.
	Name() string
	// Pick returns the chosen tenant. ok is false only when cands is empty.
	Pick(cands []Candidate) (tenant string, ok bool)
}

// forgetter is implemented by selectors that keep per-tenant state and must
// drop it when a tenant departs.
type forgetter interface {
	Forget(tenant string)
}

// newSelector constructs the selector for the algorithm. The set is closed;
// an unknown algorithm is a programmer error and panics loudly.
func newSelector(alg fairq.Algorithm, rng *rand.Rand) Selector {
	switch alg {
	case fairq.WeightedFair:
		return &weightedFair{}
	case fairq.Lottery:
		return &lottery{rng: rng}
	case fairq.Stride:
		return newStride()
	case fairq.ProportionalShare:
		return &proportionalShare{}
	default:
		panic(fmt.Sprintf("fairness: unknown algorithm %d", alg))
	}
}
