package scoring

import (
	"github.com/ZanzyTHEbar/lifescore-engine/internal/types"
)

// ReputationLookup resolves an endorser's own LifeScore percentile in
// [0,100]. Implementations return ok=false when the endorser has no score
// yet; the scorer then assumes a neutral mid-value.
type ReputationLookup func(endorserID string) (percentile float64, ok bool)

// TrustFactors is the transparency breakdown of the trust weighting, each
// component expressed as a 0-100 contribution.
type TrustFactors struct {
	EndorserReputation   float64 `json:"endorser_reputation"`
	RelationshipStrength float64 `json:"relationship_strength"`
	VerificationRate     float64 `json:"verification_rate"`
	DiversityScore       float64 `json:"diversity_score"`
}

// EndorsementTotals are the reporting counts attached to the score.
type EndorsementTotals struct {
	TotalEndorsements    int `json:"total_endorsements"`
	VerifiedEndorsements int `json:"verified_endorsements"`
	UniqueEndorsers      int `json:"unique_endorsers"`
}

// EndorsementResult holds the trust-adjusted composite plus the required
// reporting fields.
type EndorsementResult struct {
	Composite    float64            `json:"composite"`
	TrustFactors TrustFactors       `json:"trust_factors"`
	Totals       EndorsementTotals  `json:"totals"`
	PerSkill     map[string]float64 `json:"per_skill"`
}

// trustWeight derives the per-endorsement multiplier from the resolved
// endorser reputation, relationship category and verification status.
// Rejected endorsements weigh zero; pending ones count at a reduced factor.
func trustWeight(e types.Endorsement, reputation float64) float64 {
	status := 0.0
	switch e.Status {
	case types.StatusVerified:
		status = verifiedStatusFactor
	case types.StatusPending:
		status = pendingStatusFactor
	case types.StatusRejected:
		return 0
	}

	return relationshipWeight(e.Relationship) * (reputation / 100) * status
}

// ScoreEndorsements turns the full endorsement set for a subject into a
// trust-adjusted composite in [0,1000]. Both weighted volume and endorser
// diversity matter: the diversity blend guarantees that N endorsements from
// one person score strictly lower than N from N distinct people. An empty
// set is a valid state and scores 0, it is not an error.
func ScoreEndorsements(endorsements []types.Endorsement, lookup ReputationLookup) EndorsementResult {
	result := EndorsementResult{PerSkill: make(map[string]float64)}
	if len(endorsements) == 0 {
		return result
	}

	skillWeights := make(map[string]float64)
	var totalWeight, reputationSum, relationSum float64
	verified := 0

	// Resolve each endorser's reputation once; lookups may hit storage.
	reputations := make(map[string]float64)
	reputationOf := func(endorserID string) float64 {
		if r, ok := reputations[endorserID]; ok {
			return r
		}
		r := neutralReputation
		if lookup != nil {
			if p, ok := lookup(endorserID); ok {
				r = clamp(p, 0, 100)
			}
		}
		reputations[endorserID] = r
		return r
	}

	for _, e := range endorsements {
		rep := reputationOf(e.EndorserID)
		w := trustWeight(e, rep)
		totalWeight += w
		skillWeights[e.Skill] += w
		relationSum += relationshipWeight(e.Relationship)
		if e.Status == types.StatusVerified {
			verified++
		}
		reputationSum += rep
	}

	n := float64(len(endorsements))
	unique := len(reputations)

	volume := Saturate(totalWeight, kEndorseVolume)
	diversity := Saturate(float64(unique), kEndorseDiversity)
	composite := maxScore * volume * ((1 - diversityBlend) + diversityBlend*diversity)

	for skill, w := range skillWeights {
		result.PerSkill[skill] = round2(maxScore * Saturate(w, kEndorseVolume))
	}

	result.Composite = round2(composite)
	result.TrustFactors = TrustFactors{
		EndorserReputation:   round2(reputationSum / n),
		RelationshipStrength: round2(100 * relationSum / n),
		VerificationRate:     round2(100 * float64(verified) / n),
		DiversityScore:       round2(100 * float64(unique) / n),
	}
	result.Totals = EndorsementTotals{
		TotalEndorsements:    len(endorsements),
		VerifiedEndorsements: verified,
		UniqueEndorsers:      unique,
	}
	return result
}
