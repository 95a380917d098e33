package fairness

// strideScale is the numerator for stride computation. Strides are
// strideScale / weight, so higher-weight tenants accumulate pass value more
// slowly and are served proportionally more often.
const strideScale = 10000.0

// stride implements stride scheduling: each tenant carries a virtual pass
// value; selection always serves the smallest pass and advances it by the
// tenant's stride. Unlike weighted-fair this yields a smooth deterministic
// interleave rather than a score computed from history.
type stride struct {
	pass map[string]float64
}

func newStride() *stride {
	return &stride{pass: make(map[string]float64)}
}

func (s *stride) Name() string { return "stride" }

// Forget drops a departed tenant's pass value. If the tenant returns it
// rejoins at the then-current minimum pass like any new tenant.
func (s *stride) Forget(tenant string) { delete(s.pass, tenant) }

func (s *stride) Pick(cands []Candidate) (string, bool) {
	if len(cands) == 0 {
		return "", false
	}

	// New tenants join at the current minimum pass so they cannot
	// monopolize the scheduler by starting at zero.
	minExisting, haveExisting := 0.0, false
	for _, c := range cands {
		if p, ok := s.pass[c.Tenant]; ok {
			if !haveExisting || p < minExisting {
				minExisting = p
				haveExisting = true
			}
		}
	}
	for _, c := range cands {
		if _, ok := s.pass[c.Tenant]; !ok {
			s.pass[c.Tenant] = minExisting
		}
	}

	best := -1
	bestPass := 0.0
	for i, c := range cands {
		p := s.pass[c.Tenant]
		// Strict < keeps the first (lowest tenant id) on ties.
		if best < 0 || p < bestPass {
			best = i
			bestPass = p
		}
	}

	chosen := cands[best]
	weight := chosen.Weight
	if weight <= 0 {
		weight = 1
	}
	s.pass[chosen.Tenant] += strideScale / weight
	return chosen.Tenant, true
}
