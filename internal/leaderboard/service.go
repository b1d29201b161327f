package leaderboard

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ZanzyTHEbar/lifescore-engine/internal/database"
	"github.com/ZanzyTHEbar/lifescore-engine/internal/scoring"
)

// Entry is one leaderboard row.
type Entry struct {
	SubjectID  string  `json:"subject_id"`
	Score      float64 `json:"score"`
	Rank       int     `json:"rank"`
	Percentile float64 `json:"percentile"`
	Region     string  `json:"region,omitempty"`
	Skill      string  `json:"skill,omitempty"`
}

// Response is the payload for leaderboard queries.
type Response struct {
	Entries     []Entry   `json:"entries"`
	Total       int       `json:"total"`
	GeneratedAt time.Time `json:"generated_at"`
}

// CacheMetrics receives cache hit and miss counts from leaderboard reads.
type CacheMetrics interface {
	IncrementCacheHit()
	IncrementCacheMiss()
}

// Service ranks the stored population. Ranking itself is stateless and
// recomputed from the latest snapshot on every call; the cache only trims
// repeated reads and is invalidated whenever a new record lands.
type Service struct {
	repo    *database.Repository
	cache   *Cache
	metrics CacheMetrics
}

// NewService creates a new leaderboard service. metrics may be nil.
func NewService(repo *database.Repository, metrics CacheMetrics) *Service {
	return &Service{
		repo:    repo,
		cache:   NewCache(15 * time.Minute),
		metrics: metrics,
	}
}

// Invalidate drops cached leaderboards after a new computation.
func (s *Service) Invalidate() {
	s.cache.InvalidateAll()
}

// GetLeaderboard returns the top entries by latest composite score,
// optionally narrowed to a region or primary skill.
func (s *Service) GetLeaderboard(limit int, region, skill string) (*Response, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}

	cacheKey := fmt.Sprintf("leaderboard:%d:%s:%s", limit, region, skill)
	if cached, found := s.cache.GetResponse(cacheKey); found {
		if s.metrics != nil {
			s.metrics.IncrementCacheHit()
		}
		return cached, nil
	}
	if s.metrics != nil {
		s.metrics.IncrementCacheMiss()
	}

	population, err := s.repo.PopulationScores()
	if err != nil {
		return nil, fmt.Errorf("failed to load population: %w", err)
	}

	filtered := population[:0:0]
	for _, e := range population {
		if region != "" && e.Region != region {
			continue
		}
		if skill != "" && e.Skill != skill {
			continue
		}
		filtered = append(filtered, e)
	}

	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Score > filtered[j].Score })

	entries := make([]Entry, 0, limit)
	for i, e := range filtered {
		if i >= limit {
			break
		}
		standing := scoring.RankInPopulation(e.Score, filtered, nil)
		entries = append(entries, Entry{
			SubjectID:  e.SubjectID,
			Score:      e.Score,
			Rank:       standing.Rank,
			Percentile: standing.Percentile,
			Region:     e.Region,
			Skill:      e.Skill,
		})
	}

	response := &Response{
		Entries:     entries,
		Total:       len(filtered),
		GeneratedAt: time.Now(),
	}

	s.cache.SetResponse(cacheKey, response)
	slog.Debug("Leaderboard computed", "entries", len(entries), "population", len(filtered))
	return response, nil
}

// GetSubjectStanding returns one subject's current rank and percentile
// against the latest population snapshot.
func (s *Service) GetSubjectStanding(subjectID string) (*Entry, error) {
	record, err := s.repo.LatestLifeScore(subjectID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}

	population, err := s.repo.PopulationScores()
	if err != nil {
		return nil, fmt.Errorf("failed to load population: %w", err)
	}

	standing := scoring.RankInPopulation(record.CompositeScore, population, nil)
	return &Entry{
		SubjectID:  subjectID,
		Score:      record.CompositeScore,
		Rank:       standing.Rank,
		Percentile: standing.Percentile,
	}, nil
}
