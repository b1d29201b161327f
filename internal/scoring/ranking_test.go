package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func populationOf(scores ...float64) []PopulationEntry {
	entries := make([]PopulationEntry, len(scores))
	for i, s := range scores {
		entries[i] = PopulationEntry{Score: s}
	}
	return entries
}

func TestRankInPopulation(t *testing.T) {
	tests := []struct {
		name               string
		score              float64
		population         []PopulationEntry
		expectedRank       int
		expectedPercentile float64
	}{
		{
			name:               "tie shares the better rank",
			score:              800,
			population:         populationOf(900, 800, 800, 700, 600),
			expectedRank:       2,
			expectedPercentile: 80, // 4 of 5 scores <= 800
		},
		{
			name:               "top of the population",
			score:              900,
			population:         populationOf(900, 800, 800, 700, 600),
			expectedRank:       1,
			expectedPercentile: 100,
		},
		{
			name:               "bottom of the population",
			score:              600,
			population:         populationOf(900, 800, 800, 700, 600),
			expectedRank:       5,
			expectedPercentile: 20,
		},
		{
			name:               "empty population ranks first",
			score:              500,
			population:         nil,
			expectedRank:       1,
			expectedPercentile: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := RankInPopulation(tt.score, tt.population, nil)
			assert.Equal(t, tt.expectedRank, result.Rank)
			assert.InDelta(t, tt.expectedPercentile, result.Percentile, 0.01)
		})
	}
}

func TestRankInPopulationFiltered(t *testing.T) {
	population := []PopulationEntry{
		{SubjectID: "a", Score: 900, Region: "eu"},
		{SubjectID: "b", Score: 850, Region: "us"},
		{SubjectID: "c", Score: 700, Region: "eu"},
		{SubjectID: "d", Score: 650, Region: "eu", Skill: "go"},
	}

	unfiltered := RankInPopulation(700, population, nil)
	assert.Equal(t, 3, unfiltered.Rank)
	assert.Equal(t, 4, unfiltered.Population)

	euOnly := RankInPopulation(700, population, RegionFilter("eu"))
	assert.Equal(t, 2, euOnly.Rank)
	assert.Equal(t, 3, euOnly.Population)

	goOnly := RankInPopulation(700, population, SkillFilter("go"))
	assert.Equal(t, 1, goOnly.Rank)
	assert.Equal(t, 1, goOnly.Population)
	assert.InDelta(t, 100, goOnly.Percentile, 0.01)
}

func TestRankInPopulationStateless(t *testing.T) {
	population := populationOf(500, 400, 300)

	first := RankInPopulation(450, population, nil)
	second := RankInPopulation(450, population, nil)

	assert.Equal(t, first, second)
}
