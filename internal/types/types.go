package types

import "time"

// Answer is a single question response inside a test session.
type Answer struct {
	Correct     bool    `json:"correct"`
	Difficulty  float64 `json:"difficulty"`   // positive weight
	ElapsedSecs float64 `json:"elapsed_secs"` // per-question time
}

// TestSession is one completed adaptive-test attempt. Immutable once
// submitted; the engine never mutates it.
type TestSession struct {
	ID          string    `json:"id"`
	SubjectID   string    `json:"subject_id"`
	Answers     []Answer  `json:"answers"`
	StartedAt   time.Time `json:"started_at"`
	ElapsedSecs float64   `json:"elapsed_secs"` // total time for the session
}

// Repository is one external repository inside a portfolio snapshot.
type Repository struct {
	Name        string    `json:"name"`
	Stars       int       `json:"stars"`
	Forks       int       `json:"forks"`
	Language    string    `json:"language"`
	Commits     int       `json:"commits"`
	UpdatedAt   time.Time `json:"updated_at"`
	Description string    `json:"description"`
}

// PortfolioSnapshot is a point-in-time capture of a subject's public
// repositories. Replaced wholesale on re-analysis, never merged.
type PortfolioSnapshot struct {
	SubjectID      string       `json:"subject_id"`
	TotalRepos     int          `json:"total_repos"`
	TotalStars     int          `json:"total_stars"`
	TotalCommits   int          `json:"total_commits"`
	AccountAgeDays int          `json:"account_age_days"`
	Repositories   []Repository `json:"repositories"`
	CapturedAt     time.Time    `json:"captured_at"`
}

// EndorsementStatus is the lifecycle state of an endorsement. Transitions
// are monotonic: pending may move to verified or rejected, nothing moves
// back to pending.
type EndorsementStatus string

const (
	StatusPending  EndorsementStatus = "pending"
	StatusVerified EndorsementStatus = "verified"
	StatusRejected EndorsementStatus = "rejected"
)

// Relationship categorizes how the endorser knows the subject.
type Relationship string

const (
	RelationshipManager      Relationship = "manager"
	RelationshipColleague    Relationship = "colleague"
	RelationshipMentor       Relationship = "mentor"
	RelationshipPeer         Relationship = "peer"
	RelationshipClient       Relationship = "client"
	RelationshipAcquaintance Relationship = "acquaintance"
)

// Endorsement is an attestation from one person to another for a skill.
type Endorsement struct {
	ID           string            `json:"id"`
	SubjectID    string            `json:"subject_id"`
	EndorserID   string            `json:"endorser_id"`
	Skill        string            `json:"skill"`
	Relationship Relationship      `json:"relationship"`
	Comment      string            `json:"comment,omitempty"`
	Status       EndorsementStatus `json:"status"`
	Origin       string            `json:"origin,omitempty"` // network origin, provenance signal only
	CreatedAt    time.Time         `json:"created_at"`
}

// Severity tiers for fraud flags.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// FraudFlag is an advisory signal attached to a computation. It never
// alters a score; policy on exclusion belongs to the caller.
type FraudFlag struct {
	SubjectID string   `json:"subject_id"`
	Reason    string   `json:"reason"`
	Severity  Severity `json:"severity"`
}

// DomainScore distinguishes "absent domain" from "scored zero". A missing
// portfolio must never collapse into a 0 value.
type DomainScore struct {
	Value   float64 `json:"value"`
	Present bool    `json:"present"`
}

// ScoreOf returns a present domain score.
func ScoreOf(v float64) DomainScore { return DomainScore{Value: v, Present: true} }

// Absent returns the absent-domain variant.
func Absent() DomainScore { return DomainScore{} }

// LifeScoreRecord is the output artifact of one composite computation.
// History is append-only; recomputation supersedes but never rewrites.
type LifeScoreRecord struct {
	ID               string      `json:"id"`
	SubjectID        string      `json:"subject_id"`
	CognitiveScore   DomainScore `json:"cognitive_score"`
	PortfolioScore   DomainScore `json:"portfolio_score"`
	EndorsementScore DomainScore `json:"endorsement_score"`
	CompositeScore   float64     `json:"composite_score"`
	Rank             int         `json:"rank"`
	Percentile       float64     `json:"percentile"`
	Flags            []FraudFlag `json:"flags,omitempty"`
	ComputedAt       time.Time   `json:"computed_at"`
}
