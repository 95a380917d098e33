package fairness

import "math/rand/v2"

// lottery draws a weighted random ticket proportional to tier weight among
// eligible queues. The random source is injected and seedable so selection
// is reproducible in tests; the package never touches the global generator.
type lottery struct {
	rng *rand.Rand
}

func (l *lottery) Name() string { return "lottery" }

func (l *lottery) Pick(cands []Candidate) (string, bool) {
	if len(cands) == 0 {
		return "", false
	}

	total := 0.0
	for _, c := range cands {
		if c.Weight > 0 {
			total += c.Weight
		}
	}
	if total <= 0 {
		// All weights zero: fall back to uniform draw.
		return cands[l.rng.IntN(len(cands))].Tenant, true
	}

	ticket := l.rng.Float64() * total
	for _, c := range cands {
		if c.Weight <= 0 {
			continue
		}
		ticket -= c.Weight
		if ticket < 0 {
			return c.Tenant, true
		}
	}
	// Float rounding can leave a sliver; the last weighted candidate wins.
	for i := len(cands) - 1; i >= 0; i-- {
		if cands[i].Weight > 0 {
			return cands[i].Tenant, true
		}
	}
	return cands[len(cands)-1].Tenant, true
}
