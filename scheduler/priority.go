package scheduler

import (
	"time"

	"github.com/xraph/fairq"
	"github.com/xraph/fairq/item"
)

// deadlineHorizon is the urgency window: an item due within this many
// seconds earns a bonus growing linearly up to the full horizon value as
// the deadline approaches (and beyond it once overdue).
const deadlineHorizon = 100.0

// ComputePriority returns the dynamic priority for an item at the given
// time under the given policy:
//
//	clamp0(((base + urgency) × tierWeight × complexityFactor) − retryPenalty × retryCount)
//
// where urgency = max(0, 100 − secondsUntilDeadline) for items with a
// deadline and 0 otherwise. Priority never goes negative.
func ComputePriority(it *item.Item, now time.Time, policy fairq.FairnessPolicy) float64 {
	urgency := 0.0
	if it.Deadline != nil {
		secs := it.Deadline.Sub(now).Seconds()
		if bonus := deadlineHorizon - secs; bonus > 0 {
			urgency = bonus
		}
	}

	weight := policy.Weight(it.Tier)
	factor := it.Class.Complexity.Factor()

	p := (it.BasePriority+urgency)*weight*factor - policy.RetryPenalty*float64(it.RetryCount)
	return clamp0(p)
}

func clamp0(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
