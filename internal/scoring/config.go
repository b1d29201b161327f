package scoring

import "github.com/ZanzyTHEbar/lifescore-engine/internal/types"

// All weighting and saturation parameters live here as named defaults so
// the formulas can be audited and tuned without touching their structure.
var (
	// Cognitive composite weights (accuracy/speed/difficulty).
	cognitiveWeights = map[string]float64{
		"accuracy":   0.5,
		"speed":      0.2,
		"difficulty": 0.3,
	}

	// Portfolio composite weights.
	portfolioWeights = map[string]float64{
		"quality":     0.30,
		"consistency": 0.25,
		"impact":      0.25,
		"complexity":  0.20,
	}

	// LifeScore domain weights, renormalized over present domains.
	lifescoreWeights = map[string]float64{
		"cognitive":   0.5,
		"portfolio":   0.3,
		"endorsement": 0.2,
	}

	// maxScore bounds every sub-score and composite.
	maxScore float64 = 1000

	// baselineSecsPerQuestion anchors the speed score; a session that
	// finishes at exactly the baseline scores 1000.
	baselineSecsPerQuestion float64 = 30

	// maxDifficultyWeight is the hardest question weight the bank issues;
	// the difficulty sub-score is relative to it.
	maxDifficultyWeight float64 = 10

	// Saturation constants for 1000*(1 - e^(-x/k)) curves.
	kQualityAvgStars   float64 = 5   // average stars per repository
	kConsistencyCommit float64 = 20  // commits per month
	kImpactStars       float64 = 100 // total stars
	kImpactForks       float64 = 50  // total forks
	kComplexityLangs   float64 = 5   // distinct primary languages
	kComplexityRepos   float64 = 12  // repository count
	kEndorseVolume     float64 = 8   // sum of trust weights
	kEndorseDiversity  float64 = 5   // unique endorsers

	// Inner blend weights for portfolio sub-scores.
	qualityStarShare      float64 = 0.7 // rest is metadata completeness
	consistencyRateShare  float64 = 0.6 // rest is recently-active fraction
	impactStarShare       float64 = 0.7 // rest is fork saturation
	complexityLangShare   float64 = 0.6 // rest is repo-count saturation
	activeWithinDays      float64 = 180 // a repo updated within this window counts as active
	diversityBlend        float64 = 0.5 // share of endorsement score gated by endorser diversity
	pendingStatusFactor   float64 = 0.25
	verifiedStatusFactor  float64 = 1.0
	neutralReputation     float64 = 50 // percentile assumed when endorser has no score
	unknownRelationWeight float64 = 0.5
)

// relationshipWeights is a closed lookup; unknown categories fall back to
// unknownRelationWeight rather than matching open-ended strings.
var relationshipWeights = map[types.Relationship]float64{
	types.RelationshipManager:      1.0,
	types.RelationshipMentor:       0.9,
	types.RelationshipColleague:    0.8,
	types.RelationshipClient:       0.8,
	types.RelationshipPeer:         0.7,
	types.RelationshipAcquaintance: 0.4,
}

// Fraud filter thresholds.
var (
	minPlausibleSecsPerQuestion float64 = 2.0
	rushedAnswerSecs            float64 = 0.5
	rushedAnswerShare           float64 = 0.5
	uniformTimingTolerance      float64 = 0.05 // seconds
	endorsementBurstWindowSecs  float64 = 600
	endorsementBurstCount       int     = 5
	maxCommitsPerAccountDay     float64 = 200
	youngAccountDays            int     = 7
)

func relationshipWeight(r types.Relationship) float64 {
	if w, ok := relationshipWeights[r]; ok {
		return w
	}
	return unknownRelationWeight
}
