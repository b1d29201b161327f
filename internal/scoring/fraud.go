package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/ZanzyTHEbar/lifescore-engine/internal/types"
)

// Evidence bundles the raw inputs the fraud filter inspects. Any field may
// be nil/empty; the filter only looks at what is there.
type Evidence struct {
	Session      *types.TestSession
	Snapshot     *types.PortfolioSnapshot
	Endorsements []types.Endorsement
}

// DetectFraud inspects timing and provenance signals across the evidence
// streams and returns zero or more advisory flags. Flags never alter the
// numeric pipeline; a high-severity flag on a session means the caller must
// treat the speed score as unreliable.
func DetectFraud(subjectID string, evidence Evidence) []types.FraudFlag {
	flags := []types.FraudFlag{}
	if evidence.Session != nil {
		flags = append(flags, detectSessionAnomalies(subjectID, *evidence.Session)...)
	}
	if evidence.Snapshot != nil {
		flags = append(flags, detectPortfolioAnomalies(subjectID, *evidence.Snapshot)...)
	}
	if len(evidence.Endorsements) > 0 {
		flags = append(flags, detectEndorsementAnomalies(subjectID, evidence.Endorsements)...)
	}
	return flags
}

func detectSessionAnomalies(subjectID string, session types.TestSession) []types.FraudFlag {
	var flags []types.FraudFlag
	n := len(session.Answers)
	if n == 0 {
		return flags
	}

	if session.ElapsedSecs > 0 && session.ElapsedSecs < minPlausibleSecsPerQuestion*float64(n) {
		flags = append(flags, types.FraudFlag{
			SubjectID: subjectID,
			Reason:    "implausibly fast test completion",
			Severity:  types.SeverityHigh,
		})
	}

	rushed := 0
	for _, a := range session.Answers {
		if a.ElapsedSecs > 0 && a.ElapsedSecs < rushedAnswerSecs {
			rushed++
		}
	}
	if float64(rushed)/float64(n) > rushedAnswerShare {
		flags = append(flags, types.FraudFlag{
			SubjectID: subjectID,
			Reason:    fmt.Sprintf("%d of %d answers faster than %.1fs", rushed, n, rushedAnswerSecs),
			Severity:  types.SeverityMedium,
		})
	}

	if n >= 5 && uniformTiming(session.Answers) {
		flags = append(flags, types.FraudFlag{
			SubjectID: subjectID,
			Reason:    "uniform per-question timing",
			Severity:  types.SeverityLow,
		})
	}

	return flags
}

// uniformTiming reports whether every per-question time sits within the
// tolerance of the first one, a pattern human test-takers do not produce.
func uniformTiming(answers []types.Answer) bool {
	first := answers[0].ElapsedSecs
	if first <= 0 {
		return false
	}
	for _, a := range answers[1:] {
		if math.Abs(a.ElapsedSecs-first) > uniformTimingTolerance {
			return false
		}
	}
	return true
}

func detectPortfolioAnomalies(subjectID string, snapshot types.PortfolioSnapshot) []types.FraudFlag {
	var flags []types.FraudFlag

	ageDays := float64(snapshot.AccountAgeDays)
	if ageDays < 1 {
		ageDays = 1
	}
	if float64(snapshot.TotalCommits)/ageDays > maxCommitsPerAccountDay {
		flags = append(flags, types.FraudFlag{
			SubjectID: subjectID,
			Reason:    "commit volume inconsistent with account age",
			Severity:  types.SeverityHigh,
		})
	}

	if snapshot.AccountAgeDays < youngAccountDays && snapshot.TotalStars > 0 && len(snapshot.Repositories) > 0 {
		flags = append(flags, types.FraudFlag{
			SubjectID: subjectID,
			Reason:    "starred repositories on a days-old account",
			Severity:  types.SeverityMedium,
		})
	}

	return flags
}

func detectEndorsementAnomalies(subjectID string, endorsements []types.Endorsement) []types.FraudFlag {
	var flags []types.FraudFlag

	// Many endorsements sharing a network origin within a short window.
	byOrigin := make(map[string][]types.Endorsement)
	for _, e := range endorsements {
		if e.Origin != "" {
			byOrigin[e.Origin] = append(byOrigin[e.Origin], e)
		}
	}
	for origin, group := range byOrigin {
		if len(group) < endorsementBurstCount {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].CreatedAt.Before(group[j].CreatedAt) })
		for i := 0; i+endorsementBurstCount-1 < len(group); i++ {
			window := group[i+endorsementBurstCount-1].CreatedAt.Sub(group[i].CreatedAt)
			if window.Seconds() <= endorsementBurstWindowSecs {
				flags = append(flags, types.FraudFlag{
					SubjectID: subjectID,
					Reason:    fmt.Sprintf("%d endorsements from origin %s within %.0f minutes", endorsementBurstCount, origin, endorsementBurstWindowSecs/60),
					Severity:  types.SeverityHigh,
				})
				break
			}
		}
	}

	// Repeated volume from a single endorser.
	byEndorser := make(map[string]int)
	for _, e := range endorsements {
		byEndorser[e.EndorserID]++
	}
	for endorser, count := range byEndorser {
		if count >= endorsementBurstCount {
			flags = append(flags, types.FraudFlag{
				SubjectID: subjectID,
				Reason:    fmt.Sprintf("%d endorsements from single endorser %s", count, endorser),
				Severity:  types.SeverityMedium,
			})
		}
	}

	return flags
}

// HasHighSeverity reports whether any flag is high severity, the condition
// under which a session's speed score must be treated as unreliable.
func HasHighSeverity(flags []types.FraudFlag) bool {
	for _, f := range flags {
		if f.Severity == types.SeverityHigh {
			return true
		}
	}
	return false
}
