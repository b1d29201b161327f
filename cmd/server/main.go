package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/lifescore-engine/internal/database"
	"github.com/ZanzyTHEbar/lifescore-engine/internal/errors"
	"github.com/ZanzyTHEbar/lifescore-engine/internal/leaderboard"
	"github.com/ZanzyTHEbar/lifescore-engine/internal/monitoring"
	"github.com/ZanzyTHEbar/lifescore-engine/internal/ratelimit"
	"github.com/ZanzyTHEbar/lifescore-engine/internal/scoring"
	"github.com/ZanzyTHEbar/lifescore-engine/internal/security"
	"github.com/ZanzyTHEbar/lifescore-engine/internal/types"
)

func main() {
	// Structured logging setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Configuration from environment with defaults
	dataDir := getEnvOrDefault("DATA_DIR", "./data")
	jwtSecret := getEnvOrDefault("JWT_SECRET", "your-super-secret-jwt-key-change-in-production")
	reviewerAPIKey := os.Getenv("REVIEWER_API_KEY")
	redisAddr := os.Getenv("REDIS_ADDR")
	redisPassword := os.Getenv("REDIS_PASSWORD")
	port := getEnvOrDefault("PORT", "8080")

	// Initialize database and services
	db, err := database.NewDB(dataDir)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize monitoring system
	appMetrics := monitoring.NewMetrics()
	appLogger := monitoring.NewLogger()

	repo := database.NewRepository(db)
	reviewerService := database.NewReviewerService(jwtSecret)
	leaderboardService := leaderboard.NewService(repo, appMetrics)

	// Initialize rate limiting with Redis and in-memory fallback
	redisClient, err := ratelimit.NewRedisClient(redisAddr, redisPassword, 0)
	if err != nil {
		slog.Warn("Redis connection failed, continuing with fallback", "error", err)
	}
	defer redisClient.Close()

	limiter := ratelimit.NewRateLimiter(redisClient, ratelimit.DefaultConfig(), appMetrics)

	r := gin.New()

	// Monitoring first to capture all requests
	r.Use(monitoring.MonitoringMiddleware(appMetrics, appLogger))

	// Error handling middleware
	r.Use(errors.ErrorHandler())
	r.Use(errors.RecoveryHandler())

	// Security and CORS
	r.Use(security.SecurityHeadersMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:3000"), ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// IP rate limiting on everything
	r.Use(limiter.IPRateLimitMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   "1.0.0",
			"metrics":   appMetrics.GetStats(),
		})
	})

	r.GET("/metrics", func(c *gin.Context) {
		stats := appMetrics.GetStats()
		stats["rate_limiter"] = limiter.GetStats()
		c.JSON(http.StatusOK, stats)
	})

	// Reviewer token issuance, gated on a shared key
	r.POST("/auth/reviewer", func(c *gin.Context) {
		if reviewerAPIKey == "" || c.GetHeader("X-API-Key") != reviewerAPIKey {
			appErr := errors.NewUnauthorized("invalid API key")
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		var req struct {
			ReviewerID string `json:"reviewer_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		token, err := reviewerService.GenerateToken(req.ReviewerID)
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": token, "expires_in": int((24 * time.Hour).Seconds())})
	})

	// Standalone domain scorers. These are pure computations and do not
	// touch the subject's stored history.
	r.POST("/score/cognitive", func(c *gin.Context) {
		var session types.TestSession
		if err := c.ShouldBindJSON(&session); err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		result, err := scoring.ScoreCognitive(session)
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		flags := scoring.DetectFraud(session.SubjectID, scoring.Evidence{Session: &session})
		appMetrics.AddFraudFlags(len(flags))
		c.JSON(http.StatusOK, gin.H{"result": result, "flags": flags})
	})

	r.POST("/score/portfolio", func(c *gin.Context) {
		var snapshot types.PortfolioSnapshot
		if err := c.ShouldBindJSON(&snapshot); err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		result, err := scoring.ScorePortfolio(snapshot)
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		flags := scoring.DetectFraud(snapshot.SubjectID, scoring.Evidence{Snapshot: &snapshot})
		appMetrics.AddFraudFlags(len(flags))
		c.JSON(http.StatusOK, gin.H{"result": result, "flags": flags})
	})

	r.POST("/score/endorsements", func(c *gin.Context) {
		var req struct {
			Endorsements []types.Endorsement `json:"endorsements"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		result := scoring.ScoreEndorsements(req.Endorsements, repo.LatestPercentile)
		c.JSON(http.StatusOK, result)
	})

	r.POST("/fraud/detect", func(c *gin.Context) {
		var req struct {
			SubjectID    string                   `json:"subject_id" binding:"required"`
			Session      *types.TestSession       `json:"session,omitempty"`
			Portfolio    *types.PortfolioSnapshot `json:"portfolio,omitempty"`
			Endorsements []types.Endorsement      `json:"endorsements,omitempty"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		flags := scoring.DetectFraud(req.SubjectID, scoring.Evidence{
			Session:      req.Session,
			Snapshot:     req.Portfolio,
			Endorsements: req.Endorsements,
		})
		appMetrics.AddFraudFlags(len(flags))

		c.JSON(http.StatusOK, gin.H{
			"subject_id":    req.SubjectID,
			"flags":         flags,
			"high_severity": scoring.HasHighSeverity(flags),
		})
	})

	// Full pipeline: score every supplied domain, screen the evidence,
	// compose, rank against the population and append to history.
	r.POST("/lifescore/:subject", limiter.ComputeRateLimitMiddleware(), func(c *gin.Context) {
		subjectID := c.Param("subject")
		start := time.Now()

		var req struct {
			Session      *types.TestSession       `json:"session,omitempty"`
			Portfolio    *types.PortfolioSnapshot `json:"portfolio,omitempty"`
			Region       string                   `json:"region,omitempty"`
			PrimarySkill string                   `json:"primary_skill,omitempty"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		cognitive := types.Absent()
		if req.Session != nil {
			result, err := scoring.ScoreCognitive(*req.Session)
			if err != nil {
				appErr := errors.ToAppError(err)
				errors.LogError(c, appErr)
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
				errors.LogError(c, appErr)
				c.JSON(appErr.HTTPStatus, appErr)
				return
			}
			portfolio = types.ScoreOf(result.Composite)
		}

		endorsements, err := repo.EndorsementsForSubject(subjectID)
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

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
		appMetrics.AddFraudFlags(len(flags))
		if len(flags) > 0 {
			appLogger.FraudLogger(subjectID, len(flags), scoring.HasHighSeverity(flags))
		}

		composite, err := scoring.ComputeLifeScore(cognitive, portfolio, endorsement)
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		// Rank against the latest population with this computation included.
		population, err := repo.PopulationScores()
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		cohort := make([]scoring.PopulationEntry, 0, len(population)+1)
		for _, e := range population {
			if e.SubjectID != subjectID {
				cohort = append(cohort, e)
			}
		}
		cohort = append(cohort, scoring.PopulationEntry{
			SubjectID: subjectID,
			Score:     composite,
			Region:    req.Region,
			Skill:     req.PrimarySkill,
		})
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
		if err := repo.SaveLifeScore(record, req.Region, req.PrimarySkill); err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		leaderboardService.Invalidate()
		appMetrics.IncrementScoreComputation()

		domains := 0
		for _, d := range []types.DomainScore{cognitive, portfolio, endorsement} {
			if d.Present {
				domains++
			}
		}
		appLogger.ScoreLogger(subjectID, composite, domains, len(flags) > 0, time.Since(start))

		c.JSON(http.StatusOK, record)
	})

	r.GET("/lifescore/:subject", func(c *gin.Context) {
		subjectID := c.Param("subject")

		record, err := repo.LatestLifeScore(subjectID)
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		if record == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no score recorded for subject"})
			return
		}

		c.JSON(http.StatusOK, record)
	})

	r.GET("/lifescore/:subject/history", func(c *gin.Context) {
		subjectID := c.Param("subject")
		limit := 10
		if limitStr := c.Query("limit"); limitStr != "" {
			if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
				limit = l
			}
		}

		history, err := repo.LifeScoreHistory(subjectID, limit)
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"subject_id": subjectID,
			"history":    history,
			"growth":     leaderboard.ComputeGrowth(history),
		})
	})

	// Leaderboard endpoints
	r.GET("/leaderboard", func(c *gin.Context) {
		limit := 50
		if limitStr := c.Query("limit"); limitStr != "" {
			if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
				limit = l
			}
		}

		response, err := leaderboardService.GetLeaderboard(limit, c.Query("region"), c.Query("skill"))
		if err != nil {
			appLogger.APIErrorLogger(err, "GET", "/leaderboard", c.ClientIP(), http.StatusInternalServerError)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve leaderboard"})
			return
		}

		c.JSON(http.StatusOK, response)
	})

	r.GET("/leaderboard/rank/:subject", func(c *gin.Context) {
		subjectID := c.Param("subject")

		entry, err := leaderboardService.GetSubjectStanding(subjectID)
		if err != nil {
			appLogger.APIErrorLogger(err, "GET", "/leaderboard/rank/"+subjectID, c.ClientIP(), http.StatusInternalServerError)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute standing"})
			return
		}
		if entry == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no score recorded for subject"})
			return
		}

		c.JSON(http.StatusOK, entry)
	})

	// Endorsement lifecycle
	r.POST("/endorsements", func(c *gin.Context) {
		var req struct {
			SubjectID    string `json:"subject_id" binding:"required"`
			EndorserID   string `json:"endorser_id" binding:"required"`
			Skill        string `json:"skill" binding:"required"`
			Relationship string `json:"relationship" binding:"required"`
			Comment      string `json:"comment,omitempty"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		endorsement := database.NewEndorsement(
			req.SubjectID, req.EndorserID, req.Skill,
			types.Relationship(req.Relationship), req.Comment, c.ClientIP(),
		)
		if err := repo.InsertEndorsement(endorsement); err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		c.JSON(http.StatusCreated, endorsement)
	})

	r.GET("/endorsements/:subject", func(c *gin.Context) {
		endorsements, err := repo.EndorsementsForSubject(c.Param("subject"))
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		c.JSON(http.StatusOK, gin.H{"endorsements": endorsements, "total": len(endorsements)})
	})

	r.POST("/endorsements/:id/status", reviewerAuth(reviewerService), func(c *gin.Context) {
		var req struct {
			Status string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		updated, err := repo.TransitionEndorsement(c.Param("id"), types.EndorsementStatus(req.Status))
		if err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}

		leaderboardService.Invalidate()
		c.JSON(http.StatusOK, updated)
	})

	// Administrative override, kept out of the computed history
	r.POST("/admin/override/:subject", reviewerAuth(reviewerService), func(c *gin.Context) {
		subjectID := c.Param("subject")

		var req struct {
			CompositeScore float64 `json:"composite_score"`
			Reason         string  `json:"reason" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		if req.CompositeScore < 0 || req.CompositeScore > 1000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "composite_score must be between 0 and 1000"})
			return
		}

		actor := c.GetString("reviewer_id")
		override := database.NewScoreOverride(subjectID, req.CompositeScore, actor, req.Reason)
		if err := repo.SaveOverride(override); err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		c.JSON(http.StatusCreated, override)
	})

	r.GET("/admin/override/:subject", reviewerAuth(reviewerService), func(c *gin.Context) {
		overrides, err := repo.Overrides(c.Param("subject"))
		if err != nil {
			appErr := errors.ToAppError(err)
			errors.LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		c.JSON(http.StatusOK, gin.H{"overrides": overrides, "total": len(overrides)})
	})

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		slog.Info("Starting server", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}

// reviewerAuth validates the bearer token on privileged routes and stores
// the reviewer identity in the request context.
func reviewerAuth(service *database.ReviewerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			appErr := errors.NewUnauthorized("missing bearer token")
			errors.LogError(c, appErr)
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
			return
		}

		reviewerID, err := service.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			appErr := errors.NewUnauthorized("invalid or expired token")
			errors.LogError(c, appErr)
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
			return
		}

		c.Set("reviewer_id", reviewerID)
		c.Next()
	}
}

// Helper function for environment variables with defaults
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
