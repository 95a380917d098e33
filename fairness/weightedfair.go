package fairness

// weightedFair scores each queue by tierWeight / (recentProcessed + 1) and
// serves the maximum. Tenants that have been served less relative to their
// weight score higher, so service counts trend toward the weight ratio.
type weightedFair struct{}

func (w *weightedFair) Name() string { return "weighted-fair" }

func (w *weightedFair) Pick(cands []Candidate) (string, bool) {
	if len(cands) == 0 {
		return "", false
	}

	best := -1
	bestScore := 0.0
	for i, c := range cands {
		score := c.Weight / float64(c.Processed+1)
		// Strict > keeps the first (lowest tenant id) on ties.
		if best < 0 || score > bestScore {
			best = i
			bestScore = score
		}
	}
	return cands[best].Tenant, true
}
