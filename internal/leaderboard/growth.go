package leaderboard

import (
	"math"

	"github.com/ZanzyTHEbar/lifescore-engine/internal/types"
)

// Trend labels the direction of a subject's score over their history.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// A score movement within this band counts as stable.
const stableBand = 5.0

// GrowthMetrics summarizes how a subject's composite score has moved
// between their oldest and newest records.
type GrowthMetrics struct {
	TotalChange      float64 `json:"total_change"`
	PercentageChange float64 `json:"percentage_change"`
	Trend            Trend   `json:"trend"`
	Samples          int     `json:"samples"`
}

// ComputeGrowth derives growth metrics from a history slice ordered newest
// first, as the repository returns it. Fewer than two records means there is
// nothing to compare yet and the trend reads stable.
func ComputeGrowth(history []types.LifeScoreRecord) GrowthMetrics {
	metrics := GrowthMetrics{Trend: TrendStable, Samples: len(history)}
	if len(history) < 2 {
		return metrics
	}

	newest := history[0].CompositeScore
	oldest := history[len(history)-1].CompositeScore

	metrics.TotalChange = math.Round((newest-oldest)*100) / 100
	if oldest != 0 {
		metrics.PercentageChange = math.Round((newest-oldest)/oldest*10000) / 100
	}

	switch {
	case metrics.TotalChange > stableBand:
		metrics.Trend = TrendImproving
	case metrics.TotalChange < -stableBand:
		metrics.Trend = TrendDeclining
	}
	return metrics
}
