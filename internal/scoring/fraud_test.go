package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ZanzyTHEbar/lifescore-engine/internal/types"
)

func TestDetectFraudSessionTiming(t *testing.T) {
	tests := []struct {
		name             string
		session          types.TestSession
		expectHigh       bool
		expectFlagCount  int
		expectAnyReasons bool
	}{
		{
			name: "plausible session produces no flags",
			session: types.TestSession{
				Answers: []types.Answer{
					{Correct: true, Difficulty: 2, ElapsedSecs: 25},
					{Correct: false, Difficulty: 3, ElapsedSecs: 41},
				},
				ElapsedSecs: 66,
			},
			expectFlagCount: 0,
		},
		{
			name: "implausibly fast session flags high",
			session: types.TestSession{
				Answers: []types.Answer{
					{Correct: true, Difficulty: 2, ElapsedSecs: 0.4},
					{Correct: true, Difficulty: 3, ElapsedSecs: 0.3},
					{Correct: true, Difficulty: 4, ElapsedSecs: 0.3},
				},
				ElapsedSecs: 1,
			},
			expectHigh: true,
		},
		{
			name: "uniform answer timing flags low",
			session: types.TestSession{
				Answers: []types.Answer{
					{ElapsedSecs: 12}, {ElapsedSecs: 12}, {ElapsedSecs: 12},
					{ElapsedSecs: 12}, {ElapsedSecs: 12},
				},
				ElapsedSecs: 60,
			},
			expectFlagCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := DetectFraud("subject-1", Evidence{Session: &tt.session})

			if tt.expectHigh {
				assert.True(t, HasHighSeverity(flags))
			} else {
				assert.False(t, HasHighSeverity(flags))
				assert.Len(t, flags, tt.expectFlagCount)
			}
			for _, f := range flags {
				assert.Equal(t, "subject-1", f.SubjectID)
				assert.NotEmpty(t, f.Reason)
			}
		})
	}
}

func TestDetectFraudEndorsementProvenance(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	burst := make([]types.Endorsement, 0, 5)
	for i := 0; i < 5; i++ {
		burst = append(burst, types.Endorsement{
			ID:         string(rune('a' + i)),
			EndorserID: string(rune('a' + i)),
			Origin:     "198.51.100.7",
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		})
	}

	flags := DetectFraud("subject-1", Evidence{Endorsements: burst})
	assert.True(t, HasHighSeverity(flags))

	// Same endorsements spread over days from distinct origins are clean.
	spread := make([]types.Endorsement, 0, 5)
	for i := 0; i < 5; i++ {
		e := burst[i]
		e.Origin = string(rune('a' + i))
		e.CreatedAt = base.AddDate(0, 0, i)
		spread = append(spread, e)
	}
	assert.Empty(t, DetectFraud("subject-1", Evidence{Endorsements: spread}))
}

func TestDetectFraudSingleEndorserVolume(t *testing.T) {
	endorsements := endorsementsFrom(1, 6, types.StatusPending)
	flags := DetectFraud("subject-1", Evidence{Endorsements: endorsements})

	assert.NotEmpty(t, flags)
	assert.False(t, HasHighSeverity(flags))
	assert.Equal(t, types.SeverityMedium, flags[0].Severity)
}

func TestDetectFraudPortfolioAnomalies(t *testing.T) {
	burst := types.PortfolioSnapshot{
		TotalCommits:   50000,
		AccountAgeDays: 30,
		Repositories:   []types.Repository{{Name: "x"}},
	}
	flags := DetectFraud("subject-1", Evidence{Snapshot: &burst})
	assert.True(t, HasHighSeverity(flags))

	young := types.PortfolioSnapshot{
		TotalCommits:   10,
		TotalStars:     500,
		AccountAgeDays: 2,
		Repositories:   []types.Repository{{Name: "x", Stars: 500}},
	}
	flags = DetectFraud("subject-1", Evidence{Snapshot: &young})
	assert.NotEmpty(t, flags)
	assert.False(t, HasHighSeverity(flags))
}

func TestDetectFraudNeverAltersScores(t *testing.T) {
	// The filter taps the same raw evidence in parallel; scoring a flagged
	// session still yields the numeric result.
	session := types.TestSession{
		Answers: []types.Answer{
			{Correct: true, Difficulty: 5, ElapsedSecs: 0.3},
			{Correct: true, Difficulty: 5, ElapsedSecs: 0.3},
		},
		ElapsedSecs: 0.6,
	}

	flags := DetectFraud("subject-1", Evidence{Session: &session})
	assert.True(t, HasHighSeverity(flags))

	result, err := ScoreCognitive(session)
	assert.NoError(t, err)
	assert.InDelta(t, 1000, result.AccuracyScore, 0.01)
}
