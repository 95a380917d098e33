package fairness

// proportionalShare generalizes weighted-fair by accounting for cost, not
// item count: the share already served is the tenant's served cost
// normalized against the total policy weight, and ties prefer the larger
// outstanding queued cost (the deeper backlog).
type proportionalShare struct{}

func (p *proportionalShare) Name() string { return "proportional-share" }

func (p *proportionalShare) Pick(cands []Candidate) (string, bool) {
	if len(cands) == 0 {
		return "", false
	}

	totalWeight := 0.0
	for _, c := range cands {
		totalWeight += c.Weight
	}
	if totalWeight <= 0 {
		totalWeight = 1
	}

	best := -1
	bestScore := 0.0
	for i, c := range cands {
		processedShare := c.ServedCost / totalWeight
		score := c.Weight / (1 + processedShare)
		switch {
		case best < 0 || score > bestScore:
			best = i
			bestScore = score
		case score == bestScore && c.QueuedCost > cands[best].QueuedCost:
			best = i
		}
	}
	return cands[best].Tenant, true
}
