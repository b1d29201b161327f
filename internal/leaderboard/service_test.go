package leaderboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/lifescore-engine/internal/database"
	"github.com/ZanzyTHEbar/lifescore-engine/internal/monitoring"
	"github.com/ZanzyTHEbar/lifescore-engine/internal/types"
)

func testService(t *testing.T) (*Service, *database.Repository) {
	t.Helper()
	db, err := database.NewMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := database.NewRepository(db)
	return NewService(repo, nil), repo
}

func saveScore(t *testing.T, repo *database.Repository, subjectID string, score float64, region, skill string) {
	t.Helper()
	require.NoError(t, repo.SaveLifeScore(&types.LifeScoreRecord{
		SubjectID:      subjectID,
		CognitiveScore: types.ScoreOf(score),
		CompositeScore: score,
		Rank:           1,
		Percentile:     100,
	}, region, skill))
}

func TestGetLeaderboardOrdering(t *testing.T) {
	svc, repo := testService(t)

	saveScore(t, repo, "subject-b", 800, "eu", "go")
	saveScore(t, repo, "subject-a", 900, "us", "go")
	saveScore(t, repo, "subject-c", 700, "eu", "rust")

	response, err := svc.GetLeaderboard(10, "", "")
	require.NoError(t, err)
	require.Len(t, response.Entries, 3)
	assert.Equal(t, 3, response.Total)

	assert.Equal(t, "subject-a", response.Entries[0].SubjectID)
	assert.Equal(t, 1, response.Entries[0].Rank)
	assert.Equal(t, "subject-b", response.Entries[1].SubjectID)
	assert.Equal(t, 2, response.Entries[1].Rank)
	assert.InDelta(t, 66.67, response.Entries[1].Percentile, 0.01)
	assert.Equal(t, "subject-c", response.Entries[2].SubjectID)
	assert.Equal(t, 3, response.Entries[2].Rank)
}

func TestGetLeaderboardFilters(t *testing.T) {
	svc, repo := testService(t)

	saveScore(t, repo, "subject-a", 900, "us", "go")
	saveScore(t, repo, "subject-b", 800, "eu", "go")
	saveScore(t, repo, "subject-c", 700, "eu", "rust")

	// Ranks are relative to the filtered cohort, not the global population.
	response, err := svc.GetLeaderboard(10, "eu", "")
	require.NoError(t, err)
	require.Len(t, response.Entries, 2)
	assert.Equal(t, "subject-b", response.Entries[0].SubjectID)
	assert.Equal(t, 1, response.Entries[0].Rank)
	assert.Equal(t, 100.0, response.Entries[0].Percentile)

	response, err = svc.GetLeaderboard(10, "eu", "rust")
	require.NoError(t, err)
	require.Len(t, response.Entries, 1)
	assert.Equal(t, "subject-c", response.Entries[0].SubjectID)
	assert.Equal(t, 1, response.Entries[0].Rank)
}

func TestGetLeaderboardLimit(t *testing.T) {
	svc, repo := testService(t)

	saveScore(t, repo, "subject-a", 900, "", "")
	saveScore(t, repo, "subject-b", 800, "", "")
	saveScore(t, repo, "subject-c", 700, "", "")

	response, err := svc.GetLeaderboard(2, "", "")
	require.NoError(t, err)
	assert.Len(t, response.Entries, 2)
	assert.Equal(t, 3, response.Total)
}

func TestGetLeaderboardEmptyPopulation(t *testing.T) {
	svc, _ := testService(t)

	response, err := svc.GetLeaderboard(10, "", "")
	require.NoError(t, err)
	assert.Empty(t, response.Entries)
	assert.Equal(t, 0, response.Total)
}

func TestGetLeaderboardCacheInvalidation(t *testing.T) {
	svc, repo := testService(t)

	saveScore(t, repo, "subject-a", 900, "", "")

	first, err := svc.GetLeaderboard(10, "", "")
	require.NoError(t, err)
	require.Len(t, first.Entries, 1)

	saveScore(t, repo, "subject-b", 950, "", "")

	// Cached until invalidated.
	cached, err := svc.GetLeaderboard(10, "", "")
	require.NoError(t, err)
	assert.Len(t, cached.Entries, 1)

	svc.Invalidate()
	fresh, err := svc.GetLeaderboard(10, "", "")
	require.NoError(t, err)
	require.Len(t, fresh.Entries, 2)
	assert.Equal(t, "subject-b", fresh.Entries[0].SubjectID)
}

func TestGetLeaderboardRecordsCacheMetrics(t *testing.T) {
	db, err := database.NewMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := database.NewRepository(db)

	appMetrics := monitoring.NewMetrics()
	svc := NewService(repo, appMetrics)

	saveScore(t, repo, "subject-a", 900, "", "")

	// First read computes, second is served from cache.
	_, err = svc.GetLeaderboard(10, "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), appMetrics.CacheHits)
	assert.Equal(t, int64(1), appMetrics.CacheMisses)

	_, err = svc.GetLeaderboard(10, "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), appMetrics.CacheHits)
	assert.Equal(t, int64(1), appMetrics.CacheMisses)

	// A different key misses again.
	_, err = svc.GetLeaderboard(10, "eu", "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), appMetrics.CacheMisses)
}

func TestGetSubjectStanding(t *testing.T) {
	svc, repo := testService(t)

	saveScore(t, repo, "subject-a", 900, "", "")
	saveScore(t, repo, "subject-b", 800, "", "")

	standing, err := svc.GetSubjectStanding("subject-b")
	require.NoError(t, err)
	require.NotNil(t, standing)
	assert.Equal(t, 2, standing.Rank)
	assert.Equal(t, 50.0, standing.Percentile)

	missing, err := svc.GetSubjectStanding("nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestComputeGrowth(t *testing.T) {
	history := func(scores ...float64) []types.LifeScoreRecord {
		records := make([]types.LifeScoreRecord, len(scores))
		for i, s := range scores {
			records[i] = types.LifeScoreRecord{
				CompositeScore: s,
				ComputedAt:     time.Now().Add(-time.Duration(i) * time.Hour),
			}
		}
		return records
	}

	tests := []struct {
		name    string
		history []types.LifeScoreRecord
		total   float64
		pct     float64
		trend   Trend
	}{
		{"improving", history(660, 600), 60, 10, TrendImproving},
		{"declining", history(600, 660), -60, -9.09, TrendDeclining},
		{"small move is stable", history(603, 600), 3, 0.5, TrendStable},
		{"single record", history(600), 0, 0, TrendStable},
		{"empty", nil, 0, 0, TrendStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := ComputeGrowth(tt.history)
			assert.InDelta(t, tt.total, metrics.TotalChange, 0.01)
			assert.InDelta(t, tt.pct, metrics.PercentageChange, 0.01)
			assert.Equal(t, tt.trend, metrics.Trend)
		})
	}
}
