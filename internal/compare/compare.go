package compare

import "osu-tracker/internal/domain"

// Endpoint is one side of a comparison with the derived hit total.
type Endpoint struct {
	domain.StatSnapshot
	TotalHits int64 `json:"totalHits"`
}

func newEndpoint(s domain.StatSnapshot) Endpoint {
	return Endpoint{StatSnapshot: s, TotalHits: s.TotalHits()}
}

// Comparison carries both absolute stat vectors. Per-field differences are
// left to the renderer, which needs the sign and magnitude of each side.
type Comparison struct {
	Current      Endpoint `json:"current"`
	Baseline     Endpoint `json:"baseline"`
	SelfCompared bool     `json:"selfCompared"`
}

// Build pairs current with baseline. A nil baseline compares current with
// itself so the pair is always complete.
func Build(current domain.StatSnapshot, baseline *domain.StatSnapshot) Comparison {
	if baseline == nil {
		return Comparison{
			Current:      newEndpoint(current),
			Baseline:     newEndpoint(current),
			SelfCompared: true,
		}
	}
	return Comparison{
		Current:  newEndpoint(current),
		Baseline: newEndpoint(*baseline),
	}
}
