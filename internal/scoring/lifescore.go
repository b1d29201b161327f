package scoring

import (
	"github.com/ZanzyTHEbar/lifescore-engine/internal/errors"
	"github.com/ZanzyTHEbar/lifescore-engine/internal/types"
)

// ComputeLifeScore combines the three domain composites under the fixed
// 0.5/0.3/0.2 policy, renormalized over the domains that are actually
// present so a subject with no portfolio data is not zeroed for it.
// Fails with InsufficientData only when every domain is absent.
func ComputeLifeScore(cognitive, portfolio, endorsement types.DomainScore) (float64, error) {
	domains := []struct {
		score  types.DomainScore
		weight float64
	}{
		{cognitive, lifescoreWeights["cognitive"]},
		{portfolio, lifescoreWeights["portfolio"]},
		{endorsement, lifescoreWeights["endorsement"]},
	}

	var weightSum, weighted float64
	for _, d := range domains {
		if !d.score.Present {
			continue
		}
		weightSum += d.weight
		weighted += d.weight * clamp(d.score.Value, 0, maxScore)
	}

	if weightSum == 0 {
		return 0, errors.NewInsufficientData()
	}
	return round2(weighted / weightSum), nil
}
