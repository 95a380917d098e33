package adaptive

import (
	"fmt"
	"math"
	"sort"

	"github.com/xraph/fairq"
	"github.com/xraph/fairq/stats"
)

// Action identifies the kind of adjustment a recommendation proposes.
type Action string

const (
	// ActionRebalance suggests draining a disproportionately deep queue.
	ActionRebalance Action = "rebalance"
	// ActionAdjustWeights suggests changing tier weights to correct a
	// sustained gap between actual and weight-proportional service shares.
	ActionAdjustWeights Action = "adjust_weights"
	// ActionTightenStarvation suggests lowering MaxStarvationTime because
	// starvation escalations keep firing.
	ActionTightenStarvation Action = "tighten_starvation"
)

// Recommendation is a tuning suggestion derived from observed statistics.
// Recommendations are advisory: the controller never applies them itself.
type Recommendation struct {
	Action Action `json:"action"`
	Tenant string `json:"tenant,omitempty"`
	Reason string `json:"reason"`

	// ExpectedImprovement is a rough 0..1 estimate of how much of the
	// observed imbalance the action would remove.
	ExpectedImprovement float64 `json:"expected_improvement"`
}

// Thresholds below which Analyze stays quiet.
const (
	imbalanceRatio     = 3.0
	shareGapThreshold  = 0.15
	starvationPerCheck = 1.0
)

// Analyze inspects a statistics snapshot against the active policy and
// returns tuning recommendations, ordered by expected improvement. An empty
// result means the system looks healthy.
func (c *Controller) Analyze(snap stats.GlobalSnapshot, policy fairq.FairnessPolicy, checks int64) []Recommendation {
	var recs []Recommendation

	recs = append(recs, analyzeImbalance(snap)...)
	recs = append(recs, analyzeShares(snap, policy)...)

	if checks > 0 && float64(snap.StarvationIncidents)/float64(checks) >= starvationPerCheck {
		recs = append(recs, Recommendation{
			Action: ActionTightenStarvation,
			Reason: fmt.Sprintf("%d starvation escalations over %d checks", snap.StarvationIncidents, checks),
			ExpectedImprovement: math.Min(1,
				float64(snap.StarvationIncidents)/float64(checks)/10),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].ExpectedImprovement > recs[j].ExpectedImprovement
	})
	return recs
}

// analyzeImbalance flags tenants whose backlog is far above the mean.
func analyzeImbalance(snap stats.GlobalSnapshot) []Recommendation {
	if len(snap.Tenants) < 2 || snap.Queued == 0 {
		return nil
	}
	mean := float64(snap.Queued) / float64(len(snap.Tenants))
	if mean == 0 {
		return nil
	}

	var recs []Recommendation
	for tenant, ts := range snap.Tenants {
		ratio := float64(ts.Queued) / mean
		if ratio < imbalanceRatio {
			continue
		}
		recs = append(recs, Recommendation{
			Action: ActionRebalance,
			Tenant: tenant,
			Reason: fmt.Sprintf("queue depth %d is %.1fx the mean %.1f", ts.Queued, ratio, mean),
			ExpectedImprovement: math.Min(1, (ratio-1)/ratio),
		})
	}
	return recs
}

// analyzeShares compares each tenant's actual processed share against the
// share its tier weight entitles it to.
func analyzeShares(snap stats.GlobalSnapshot, policy fairq.FairnessPolicy) []Recommendation {
	if len(snap.Tenants) < 2 || snap.Processed == 0 {
		return nil
	}

	totalWeight := 0.0
	for _, ts := range snap.Tenants {
		totalWeight += policy.Weight(ts.Tier)
	}
	if totalWeight <= 0 {
		return nil
	}

	var recs []Recommendation
	for tenant, ts := range snap.Tenants {
		actual := float64(ts.Processed) / float64(snap.Processed)
		expected := policy.Weight(ts.Tier) / totalWeight
		gap := math.Abs(actual - expected)
		if gap < shareGapThreshold {
			continue
		}
		recs = append(recs, Recommendation{
			Action: ActionAdjustWeights,
			Tenant: tenant,
			Reason: fmt.Sprintf("actual share %.2f vs weighted share %.2f for tier %s", actual, expected, ts.Tier),
			ExpectedImprovement: math.Min(1, gap),
		})
	}
	return recs
}
