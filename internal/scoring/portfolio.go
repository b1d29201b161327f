package scoring

import (
	"time"

	"github.com/ZanzyTHEbar/lifescore-engine/internal/errors"
	"github.com/ZanzyTHEbar/lifescore-engine/internal/types"
)

// PortfolioBreakdown reports the raw inputs behind the sub-scores.
type PortfolioBreakdown struct {
	TotalRepos      int     `json:"total_repos"`
	TotalStars      int     `json:"total_stars"`
	TotalForks      int     `json:"total_forks"`
	DistinctLangs   int     `json:"distinct_languages"`
	AvgStars        float64 `json:"avg_stars"`
	CommitsPerMonth float64 `json:"commits_per_month"`
	ActiveFraction  float64 `json:"active_fraction"`
}

// PortfolioResult holds the portfolio sub-scores and composite, all in
// [0,1000].
type PortfolioResult struct {
	QualityScore     float64            `json:"quality_score"`
	ConsistencyScore float64            `json:"consistency_score"`
	ImpactScore      float64            `json:"impact_score"`
	ComplexityScore  float64            `json:"complexity_score"`
	Composite        float64            `json:"composite"`
	Breakdown        PortfolioBreakdown `json:"breakdown"`
}

// ScorePortfolio turns one snapshot into quality/consistency/impact/
// complexity sub-scores and a weighted composite. Every sub-score runs raw
// counts through a saturating curve so inflated counts cannot dominate.
// A snapshot with zero repositories fails with EmptyPortfolio: callers must
// treat that as "no data" and omit the domain, not score it 0.
func ScorePortfolio(snapshot types.PortfolioSnapshot) (PortfolioResult, error) {
	if len(snapshot.Repositories) == 0 {
		return PortfolioResult{}, errors.NewEmptyPortfolio(snapshot.SubjectID)
	}

	repoCount := float64(len(snapshot.Repositories))

	var totalForks int
	var described, withLanguage, active float64
	langs := make(map[string]struct{})
	now := snapshot.CapturedAt
	if now.IsZero() {
		now = time.Now()
	}
	for _, r := range snapshot.Repositories {
		totalForks += r.Forks
		if r.Description != "" {
			described++
		}
		if r.Language != "" {
			withLanguage++
			langs[r.Language] = struct{}{}
		}
		if !r.UpdatedAt.IsZero() && now.Sub(r.UpdatedAt).Hours() <= activeWithinDays*24 {
			active++
		}
	}

	avgStars := float64(snapshot.TotalStars) / repoCount
	metaCompleteness := (described/repoCount + withLanguage/repoCount) / 2
	quality := maxScore * (qualityStarShare*Saturate(avgStars, kQualityAvgStars) +
		(1-qualityStarShare)*metaCompleteness)

	ageMonths := float64(snapshot.AccountAgeDays) / 30
	if ageMonths < 1 {
		ageMonths = 1
	}
	commitsPerMonth := float64(snapshot.TotalCommits) / ageMonths
	activeFraction := active / repoCount
	consistency := maxScore * (consistencyRateShare*Saturate(commitsPerMonth, kConsistencyCommit) +
		(1-consistencyRateShare)*activeFraction)

	impact := maxScore * (impactStarShare*Saturate(float64(snapshot.TotalStars), kImpactStars) +
		(1-impactStarShare)*Saturate(float64(totalForks), kImpactForks))

	complexity := maxScore * (complexityLangShare*Saturate(float64(len(langs)), kComplexityLangs) +
		(1-complexityLangShare)*Saturate(repoCount, kComplexityRepos))

	composite := portfolioWeights["quality"]*quality +
		portfolioWeights["consistency"]*consistency +
		portfolioWeights["impact"]*impact +
		portfolioWeights["complexity"]*complexity

	return PortfolioResult{
		QualityScore:     round2(quality),
		ConsistencyScore: round2(consistency),
		ImpactScore:      round2(impact),
		ComplexityScore:  round2(complexity),
		Composite:        round2(composite),
		Breakdown: PortfolioBreakdown{
			TotalRepos:      len(snapshot.Repositories),
			TotalStars:      snapshot.TotalStars,
			TotalForks:      totalForks,
			DistinctLangs:   len(langs),
			AvgStars:        round2(avgStars),
			CommitsPerMonth: round2(commitsPerMonth),
			ActiveFraction:  round2(activeFraction),
		},
	}, nil
}
