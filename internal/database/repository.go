package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ZanzyTHEbar/lifescore-engine/internal/scoring"
	"github.com/ZanzyTHEbar/lifescore-engine/internal/types"
)

// Repository handles database operations for the engine's records.
type Repository struct {
	db *DB
}

// NewRepository creates a new repository.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// SaveLifeScore appends one computed record to the subject's history.
// Computing again supersedes but never rewrites the prior record.
func (r *Repository) SaveLifeScore(record *types.LifeScoreRecord, region, primarySkill string) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.ComputedAt.IsZero() {
		record.ComputedAt = time.Now()
	}

	flagsJSON, err := json.Marshal(record.Flags)
	if err != nil {
		return fmt.Errorf("failed to marshal flags: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO life_scores (
			id, subject_id, cognitive_score, portfolio_score, endorsement_score,
			composite_score, rank, percentile, flags, region, primary_skill, computed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID, record.SubjectID,
		nullableScore(record.CognitiveScore),
		nullableScore(record.PortfolioScore),
		nullableScore(record.EndorsementScore),
		record.CompositeScore, record.Rank, record.Percentile,
		string(flagsJSON), region, primarySkill, record.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save life score: %w", err)
	}

	return nil
}

func nullableScore(s types.DomainScore) interface{} {
	if !s.Present {
		return nil
	}
	return s.Value
}

func domainScore(v sql.NullFloat64) types.DomainScore {
	if !v.Valid {
		return types.Absent()
	}
	return types.ScoreOf(v.Float64)
}

// LatestLifeScore returns the subject's most recent record, or nil when the
// subject has no score yet.
func (r *Repository) LatestLifeScore(subjectID string) (*types.LifeScoreRecord, error) {
	row := r.db.QueryRow(`
		SELECT id, subject_id, cognitive_score, portfolio_score, endorsement_score,
		       composite_score, rank, percentile, flags, computed_at
		FROM life_scores
		WHERE subject_id = ?
		ORDER BY computed_at DESC
		LIMIT 1
	`, subjectID)

	record, err := scanLifeScore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest life score: %w", err)
	}
	return record, nil
}

// LifeScoreHistory returns the subject's records, newest first.
func (r *Repository) LifeScoreHistory(subjectID string, limit int) ([]types.LifeScoreRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(`
		SELECT id, subject_id, cognitive_score, portfolio_score, endorsement_score,
		       composite_score, rank, percentile, flags, computed_at
		FROM life_scores
		WHERE subject_id = ?
		ORDER BY computed_at DESC
		LIMIT ?
	`, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query life score history: %w", err)
	}
	defer rows.Close()

	var records []types.LifeScoreRecord
	for rows.Next() {
		record, err := scanLifeScore(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan life score: %w", err)
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLifeScore(row rowScanner) (*types.LifeScoreRecord, error) {
	var record types.LifeScoreRecord
	var cognitive, portfolio, endorsement sql.NullFloat64
	var flagsJSON sql.NullString

	err := row.Scan(
		&record.ID, &record.SubjectID,
		&cognitive, &portfolio, &endorsement,
		&record.CompositeScore, &record.Rank, &record.Percentile,
		&flagsJSON, &record.ComputedAt,
	)
	if err != nil {
		return nil, err
	}

	record.CognitiveScore = domainScore(cognitive)
	record.PortfolioScore = domainScore(portfolio)
	record.EndorsementScore = domainScore(endorsement)

	if flagsJSON.Valid && flagsJSON.String != "" && flagsJSON.String != "null" {
		if err := json.Unmarshal([]byte(flagsJSON.String), &record.Flags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal flags: %w", err)
		}
	}

	return &record, nil
}

// PopulationScores returns the latest composite score per subject, the
// snapshot the ranking engine runs against. Region and skill arrive as
// stored attributes so callers can build filters.
func (r *Repository) PopulationScores() ([]scoring.PopulationEntry, error) {
	rows, err := r.db.Query(`
		SELECT ls.subject_id, ls.composite_score, COALESCE(ls.region, ''), COALESCE(ls.primary_skill, '')
		FROM life_scores ls
		JOIN (
			SELECT subject_id, MAX(computed_at) AS latest
			FROM life_scores
			GROUP BY subject_id
		) latest ON latest.subject_id = ls.subject_id AND latest.latest = ls.computed_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query population scores: %w", err)
	}
	defer rows.Close()

	var entries []scoring.PopulationEntry
	for rows.Next() {
		var entry scoring.PopulationEntry
		if err := rows.Scan(&entry.SubjectID, &entry.Score, &entry.Region, &entry.Skill); err != nil {
			return nil, fmt.Errorf("failed to scan population entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// LatestPercentile resolves a subject's current percentile, used as the
// endorser-reputation lookup by the endorsement scorer.
func (r *Repository) LatestPercentile(subjectID string) (float64, bool) {
	var percentile float64
	err := r.db.QueryRow(`
		SELECT percentile FROM life_scores
		WHERE subject_id = ?
		ORDER BY computed_at DESC
		LIMIT 1
	`, subjectID).Scan(&percentile)
	if err != nil {
		return 0, false
	}
	return percentile, true
}

// SaveOverride records an administrative score override. Overrides are a
// distinct write path and never enter the life_scores history.
func (r *Repository) SaveOverride(override *ScoreOverride) error {
	_, err := r.db.Exec(`
		INSERT INTO score_overrides (id, subject_id, composite_score, actor, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, override.ID, override.SubjectID, override.CompositeScore, override.Actor, override.Reason, override.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save override: %w", err)
	}
	return nil
}

// Overrides lists a subject's override records, newest first.
func (r *Repository) Overrides(subjectID string) ([]ScoreOverride, error) {
	rows, err := r.db.Query(`
		SELECT id, subject_id, composite_score, actor, reason, created_at
		FROM score_overrides
		WHERE subject_id = ?
		ORDER BY created_at DESC
	`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query overrides: %w", err)
	}
	defer rows.Close()

	var overrides []ScoreOverride
	for rows.Next() {
		var o ScoreOverride
		if err := rows.Scan(&o.ID, &o.SubjectID, &o.CompositeScore, &o.Actor, &o.Reason, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan override: %w", err)
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

// InsertEndorsement stores a new endorsement, always pending.
func (r *Repository) InsertEndorsement(e *types.Endorsement) error {
	_, err := r.db.Exec(`
		INSERT INTO endorsements (id, subject_id, endorser_id, skill, relationship, comment, status, origin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.SubjectID, e.EndorserID, e.Skill, string(e.Relationship), e.Comment, string(e.Status), e.Origin, e.CreatedAt, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert endorsement: %w", err)
	}
	return nil
}

// EndorsementsForSubject returns the full endorsement set for a subject.
func (r *Repository) EndorsementsForSubject(subjectID string) ([]types.Endorsement, error) {
	rows, err := r.db.Query(`
		SELECT id, subject_id, endorser_id, skill, relationship, COALESCE(comment, ''), status, COALESCE(origin, ''), created_at
		FROM endorsements
		WHERE subject_id = ?
		ORDER BY created_at DESC
	`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query endorsements: %w", err)
	}
	defer rows.Close()

	var endorsements []types.Endorsement
	for rows.Next() {
		var e types.Endorsement
		var relationship, status string
		if err := rows.Scan(&e.ID, &e.SubjectID, &e.EndorserID, &e.Skill, &relationship, &e.Comment, &status, &e.Origin, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan endorsement: %w", err)
		}
		e.Relationship = types.Relationship(relationship)
		e.Status = types.EndorsementStatus(status)
		endorsements = append(endorsements, e)
	}
	return endorsements, rows.Err()
}

// TransitionEndorsement moves an endorsement out of pending. The status
// transition is monotonic: only pending rows can change, and only to
// verified or rejected. Returns the updated endorsement.
func (r *Repository) TransitionEndorsement(endorsementID string, status types.EndorsementStatus) (*types.Endorsement, error) {
	if status != types.StatusVerified && status != types.StatusRejected {
		return nil, fmt.Errorf("invalid target status %q", status)
	}

	result, err := r.db.Exec(`
		UPDATE endorsements
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'
	`, string(status), time.Now(), endorsementID)
	if err != nil {
		return nil, fmt.Errorf("failed to transition endorsement: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read transition result: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("endorsement %s is not pending", endorsementID)
	}

	row := r.db.QueryRow(`
		SELECT id, subject_id, endorser_id, skill, relationship, COALESCE(comment, ''), status, COALESCE(origin, ''), created_at
		FROM endorsements WHERE id = ?
	`, endorsementID)

	var e types.Endorsement
	var relationship, statusStr string
	if err := row.Scan(&e.ID, &e.SubjectID, &e.EndorserID, &e.Skill, &relationship, &e.Comment, &statusStr, &e.Origin, &e.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to reload endorsement: %w", err)
	}
	e.Relationship = types.Relationship(relationship)
	e.Status = types.EndorsementStatus(statusStr)
	return &e, nil
}
