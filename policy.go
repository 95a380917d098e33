package fairq

import "time"

// Algorithm selects how the fairness manager picks the next tenant queue.
// The set is closed: each value has exactly one selector implementation and
// adding one is a compile-time, localized change.
type Algorithm int

const (
	// WeightedFair scores queues by tierWeight / (recentProcessed + 1).
	WeightedFair Algorithm = iota
	// Lottery draws a weighted random ticket proportional to tier weight.
	// Requires a seedable random source so selection is reproducible.
	Lottery
	// Stride assigns each tenant a stride inversely proportional to its
	// weight and always serves the smallest accumulated pass value.
	Stride
	// ProportionalShare generalizes WeightedFair by factoring in the cost
	// already served per tenant, normalized against total weight.
	ProportionalShare
)

// String returns the algorithm name.
func (a Algorithm) String() string {
	switch a {
	case WeightedFair:
		return "weighted-fair"
	case Lottery:
		return "lottery"
	case Stride:
		return "stride"
	case ProportionalShare:
		return "proportional-share"
	default:
		return "unknown"
	}
}

// Tier is the service class a tenant belongs to. Tier weights drive every
// fairness algorithm.
type Tier string

// The four default tiers. Queues for these always exist and are never
// pruned; additional tiers may be introduced through policy weights.
const (
	TierFree       Tier = "free"
	TierBasic      Tier = "basic"
	TierPremium    Tier = "premium"
	TierEnterprise Tier = "enterprise"
)

// DefaultTiers returns the default tier set in ascending weight order.
func DefaultTiers() []Tier {
	return []Tier{TierFree, TierBasic, TierPremium, TierEnterprise}
}

// DefaultTierWeights returns the default tier → weight mapping.
func DefaultTierWeights() map[Tier]float64 {
	return map[Tier]float64{
		TierFree:       1,
		TierBasic:      2,
		TierPremium:    4,
		TierEnterprise: 8,
	}
}

// FairnessPolicy is the mutable scheduling policy owned by a scheduler
// instance. It is never global: each scheduler holds its own copy, mutation
// goes through the policy-update call, and selection always observes a
// consistent snapshot.
type FairnessPolicy struct {
	// Algorithm is the active selection algorithm.
	Algorithm Algorithm

	// TierWeights maps each valid tier to its fairness weight. A tier is
	// valid for enqueue iff it has an entry here.
	TierWeights map[Tier]float64

	// MaxStarvationTime bounds how long a queue may go unserved before its
	// head item receives StarvationBoost.
	MaxStarvationTime time.Duration

	// AgingThreshold is the resident age past which items start aging.
	AgingThreshold time.Duration

	// AgingFactor scales the priority increase applied to aged items:
	// delta = AgingFactor * (age / AgingThreshold).
	AgingFactor float64

	// StarvationBoost is the fixed priority boost applied to the head item
	// of a starved queue.
	StarvationBoost float64

	// RetryDecay multiplies an item's priority on every retry.
	RetryDecay float64

	// RetryPenalty is subtracted from the dynamic priority per prior retry.
	RetryPenalty float64

	// BurstAllowance is the steady-state capacity ceiling. The adaptive
	// controller raises it temporarily during bursts.
	BurstAllowance float64
}

// DefaultPolicy returns the default fairness policy.
func DefaultPolicy() FairnessPolicy {
	return FairnessPolicy{
		Algorithm:         WeightedFair,
		TierWeights:       DefaultTierWeights(),
		MaxStarvationTime: 30 * time.Second,
		AgingThreshold:    10 * time.Second,
		AgingFactor:       5,
		StarvationBoost:   50,
		RetryDecay:        0.8,
		RetryPenalty:      10,
		BurstAllowance:    100,
	}
}

// Weight returns the fairness weight for a tier, or 0 if the tier is not
// part of the policy.
func (p FairnessPolicy) Weight(tier Tier) float64 {
	return p.TierWeights[tier]
}

// ValidTier reports whether the tier is part of the policy.
func (p FairnessPolicy) ValidTier(tier Tier) bool {
	_, ok := p.TierWeights[tier]
	return ok
}

// Clone returns a deep copy of the policy. Selection code clones before
// releasing the policy lock so readers never observe concurrent mutation.
func (p FairnessPolicy) Clone() FairnessPolicy {
	weights := make(map[Tier]float64, len(p.TierWeights))
	for k, v := range p.TierWeights {
		weights[k] = v
	}
	out := p
	out.TierWeights = weights
	return out
}

// PolicyUpdate is a partial policy mutation. Nil fields are left unchanged;
// TierWeights entries are merged key by key.
type PolicyUpdate struct {
	Algorithm         *Algorithm
	TierWeights       map[Tier]float64
	MaxStarvationTime *time.Duration
	AgingThreshold    *time.Duration
	AgingFactor       *float64
	StarvationBoost   *float64
	RetryDecay        *float64
	RetryPenalty      *float64
	BurstAllowance    *float64
}

// Merge applies the update to a copy of the policy and returns it.
func (p FairnessPolicy) Merge(u PolicyUpdate) FairnessPolicy {
	out := p.Clone()
	if u.Algorithm != nil {
		out.Algorithm = *u.Algorithm
	}
	for tier, w := range u.TierWeights {
		out.TierWeights[tier] = w
	}
	if u.MaxStarvationTime != nil {
		out.MaxStarvationTime = *u.MaxStarvationTime
	}
	if u.AgingThreshold != nil {
		out.AgingThreshold = *u.AgingThreshold
	}
	if u.AgingFactor != nil {
		out.AgingFactor = *u.AgingFactor
	}
	if u.StarvationBoost != nil {
		out.StarvationBoost = *u.StarvationBoost
	}
	if u.RetryDecay != nil {
		out.RetryDecay = *u.RetryDecay
	}
	if u.RetryPenalty != nil {
		out.RetryPenalty = *u.RetryPenalty
	}
	if u.BurstAllowance != nil {
		out.BurstAllowance = *u.BurstAllowance
	}
	return out
}
