package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/lifescore-engine/internal/database"
	"github.com/ZanzyTHEbar/lifescore-engine/internal/errors"
	"github.com/ZanzyTHEbar/lifescore-engine/internal/leaderboard"
	"github.com/ZanzyTHEbar/lifescore-engine/internal/scoring"
	"github.com/ZanzyTHEbar/lifescore-engine/internal/types"
)

// setupRouter wires the request paths against an in-memory database,
// mirroring the wiring in main without Redis or monitoring.
func setupRouter(t *testing.T) (*gin.Engine, *database.Repository, *database.ReviewerService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := database.NewRepository(db)
	reviewerService := database.NewReviewerService("test-secret")
	leaderboardService := leaderboard.NewService(repo, nil)

	r := gin.New()
	r.Use(errors.ErrorHandler())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/score/cognitive", func(c *gin.Context) {
		var session types.TestSession
		if err := c.ShouldBindJSON(&session); err != nil {
			appErr := errors.ToAppError(err)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		result, err := scoring.ScoreCognitive(session)
		if err != nil {
			appErr := errors.ToAppError(err)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		flags := scoring.DetectFraud(session.SubjectID, scoring.Evidence{Session: &session})
		c.JSON(http.StatusOK, gin.H{"result": result, "flags": flags})
	})

	r.POST("/lifescore/:subject", func(c *gin.Context) {
		subjectID := c.Param("subject")

		var req struct {
			Session      *types.TestSession       `json:"session,omitempty"`
			Portfolio    *types.PortfolioSnapshot `json:"portfolio,omitempty"`
			Region       string                   `json:"region,omitempty"`
			PrimarySkill string                   `json:"primary_skill,omitempty"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			appErr := errors.ToAppError(err)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		cognitive := types.Absent()
		if req.Session != nil {
			result, err := scoring.ScoreCognitive(*req.Session)
			if err != nil {
				appErr := errors.ToAppError(err)
				c.JSON(appErr.HTTPStatus, appErr)
				return
			}
			cognitive = types.ScoreOf(result.Composite)
		}

		portfolio := types.Absent()
		if req.Portfolio != nil {
			result, err := scoring.ScorePortfolio(*req.Portfolio)
			if err != nil {
				appErr := errors.ToAppError(err)
				c.JSON(appErr.HTTPStatus, appErr)
				return
			}
			portfolio = types.ScoreOf(result.Composite)
		}

		endorsements, err := repo.EndorsementsForSubject(subjectID)
		require.NoError(t, err)

		endorsement := types.Absent()
		if len(endorsements) > 0 {
			result := scoring.ScoreEndorsements(endorsements, repo.LatestPercentile)
			endorsement = types.ScoreOf(result.Composite)
		}

		flags := scoring.DetectFraud(subjectID, scoring.Evidence{
			Session:      req.Session,
			Snapshot:     req.Portfolio,
			Endorsements: endorsements,
		})

		composite, err := scoring.ComputeLifeScore(cognitive, portfolio, endorsement)
		if err != nil {
			appErr := errors.ToAppError(err)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		population, err := repo.PopulationScores()
		require.NoError(t, err)
		cohort := make([]scoring.PopulationEntry, 0, len(population)+1)
		for _, e := range population {
			if e.SubjectID != subjectID {
				cohort = append(cohort, e)
			}
		}
		cohort = append(cohort, scoring.PopulationEntry{SubjectID: subjectID, Score: composite})
		standing := scoring.RankInPopulation(composite, cohort, nil)

		record := &types.LifeScoreRecord{
			SubjectID:        subjectID,
			CognitiveScore:   cognitive,
			PortfolioScore:   portfolio,
			EndorsementScore: endorsement,
			CompositeScore:   composite,
			Rank:             standing.Rank,
			Percentile:       standing.Percentile,
			Flags:            flags,
		}
		require.NoError(t, repo.SaveLifeScore(record, req.Region, req.PrimarySkill))
		leaderboardService.Invalidate()

		c.JSON(http.StatusOK, record)
	})

	r.GET("/lifescore/:subject", func(c *gin.Context) {
		record, err := repo.LatestLifeScore(c.Param("subject"))
		require.NoError(t, err)
		if record == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no score recorded for subject"})
			return
		}
		c.JSON(http.StatusOK, record)
	})

	r.GET("/leaderboard", func(c *gin.Context) {
		response, err := leaderboardService.GetLeaderboard(50, c.Query("region"), c.Query("skill"))
		require.NoError(t, err)
		c.JSON(http.StatusOK, response)
	})

	return r, repo, reviewerService
}

func postJSON(t *testing.T, r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func validSession() *types.TestSession {
	return &types.TestSession{
		ID:        "session-1",
		SubjectID: "subject-1",
		Answers: []types.Answer{
			{Correct: true, Difficulty: 1, ElapsedSecs: 20},
			{Correct: true, Difficulty: 2, ElapsedSecs: 30},
			{Correct: false, Difficulty: 1, ElapsedSecs: 40},
		},
		StartedAt:   time.Now().Add(-2 * time.Minute),
		ElapsedSecs: 90,
	}
}

func TestHealthEndpoint(t *testing.T) {
	r, _, _ := setupRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestScoreCognitiveEndpoint(t *testing.T) {
	r, _, _ := setupRouter(t)

	w := postJSON(t, r, "/score/cognitive", validSession())
	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Result scoring.CognitiveResult `json:"result"`
		Flags  []types.FraudFlag       `json:"flags"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Greater(t, response.Result.Composite, 0.0)
	assert.LessOrEqual(t, response.Result.Composite, 1000.0)
	assert.Empty(t, response.Flags)
}

func TestScoreCognitiveEndpointRejectsEmptySession(t *testing.T) {
	r, _, _ := setupRouter(t)

	w := postJSON(t, r, "/score/cognitive", &types.TestSession{
		ID:          "session-1",
		SubjectID:   "subject-1",
		ElapsedSecs: 60,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMalformedBodyReturnsBadRequest(t *testing.T) {
	r, _, _ := setupRouter(t)

	// Unparseable bodies are the caller's fault, never an internal error.
	for _, path := range []string{"/score/cognitive", "/lifescore/subject-1"} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", path, bytes.NewReader([]byte(`{"subject_id": }`)))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equalf(t, http.StatusBadRequest, w.Code, "POST %s", path)
		assert.Contains(t, w.Body.String(), "malformed request body")
	}
}

func TestComputePipelinePersistsRecord(t *testing.T) {
	r, repo, _ := setupRouter(t)

	w := postJSON(t, r, "/lifescore/subject-1", map[string]interface{}{
		"session": validSession(),
		"region":  "eu",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var record types.LifeScoreRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
	assert.True(t, record.CognitiveScore.Present)
	assert.False(t, record.PortfolioScore.Present)
	assert.Equal(t, 1, record.Rank)

	stored, err := repo.LatestLifeScore("subject-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, record.CompositeScore, stored.CompositeScore)
}

func TestComputePipelineAllDomainsAbsent(t *testing.T) {
	r, _, _ := setupRouter(t)

	w := postJSON(t, r, "/lifescore/subject-1", map[string]interface{}{})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestLifeScoreNotFound(t *testing.T) {
	r, _, _ := setupRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/lifescore/nobody", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLeaderboardReflectsComputations(t *testing.T) {
	r, _, _ := setupRouter(t)

	require.Equal(t, http.StatusOK, postJSON(t, r, "/lifescore/subject-1", map[string]interface{}{
		"session": validSession(),
	}).Code)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/leaderboard", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var response leaderboard.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Entries, 1)
	assert.Equal(t, "subject-1", response.Entries[0].SubjectID)
}

func TestReviewerTokenRoundTrip(t *testing.T) {
	_, _, reviewerService := setupRouter(t)

	token, err := reviewerService.GenerateToken("reviewer-1")
	require.NoError(t, err)

	reviewerID, err := reviewerService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "reviewer-1", reviewerID)

	_, err = reviewerService.ValidateToken(token + "tampered")
	assert.Error(t, err)
}
