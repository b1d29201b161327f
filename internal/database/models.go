package database

import (
	"time"

	"github.com/google/uuid"

	"github.com/ZanzyTHEbar/lifescore-engine/internal/types"
)

// ScoreOverride is an administrative write that bypasses the scoring
// formula. It is stored apart from engine-computed records and carries the
// actor and reason for auditability.
type ScoreOverride struct {
	ID             string    `json:"id"`
	SubjectID      string    `json:"subject_id"`
	CompositeScore float64   `json:"composite_score"`
	Actor          string    `json:"actor"`
	Reason         string    `json:"reason"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewScoreOverride builds an override record with a generated ID.
func NewScoreOverride(subjectID string, score float64, actor, reason string) *ScoreOverride {
	return &ScoreOverride{
		ID:             uuid.New().String(),
		SubjectID:      subjectID,
		CompositeScore: score,
		Actor:          actor,
		Reason:         reason,
		CreatedAt:      time.Now(),
	}
}

// NewEndorsement builds a pending endorsement with a generated ID.
func NewEndorsement(subjectID, endorserID, skill string, relationship types.Relationship, comment, origin string) *types.Endorsement {
	now := time.Now()
	return &types.Endorsement{
		ID:           uuid.New().String(),
		SubjectID:    subjectID,
		EndorserID:   endorserID,
		Skill:        skill,
		Relationship: relationship,
		Comment:      comment,
		Status:       types.StatusPending,
		Origin:       origin,
		CreatedAt:    now,
	}
}
