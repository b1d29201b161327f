package scoring

import (
	"github.com/ZanzyTHEbar/lifescore-engine/internal/errors"
	"github.com/ZanzyTHEbar/lifescore-engine/internal/types"
)

// CognitiveBreakdown reports the raw counts behind the sub-scores.
type CognitiveBreakdown struct {
	TotalQuestions int     `json:"total_questions"`
	CorrectAnswers int     `json:"correct_answers"`
	ElapsedSecs    float64 `json:"elapsed_secs"`
	BaselineSecs   float64 `json:"baseline_secs"`
}

// CognitiveResult holds the cognitive sub-scores and composite, all in
// [0,1000].
type CognitiveResult struct {
	AccuracyScore   float64            `json:"accuracy_score"`
	SpeedScore      float64            `json:"speed_score"`
	DifficultyScore float64            `json:"difficulty_score"`
	Composite       float64            `json:"composite"`
	Breakdown       CognitiveBreakdown `json:"breakdown"`
}

// ScoreCognitive turns one submitted test session into accuracy, speed and
// difficulty sub-scores and a weighted composite. Harder correct answers
// count more than easy ones; attempting hard material is rewarded even when
// the answer is wrong. All-incorrect sessions are valid and score 0 on
// accuracy.
func ScoreCognitive(session types.TestSession) (CognitiveResult, error) {
	if len(session.Answers) == 0 {
		return CognitiveResult{}, errors.NewInvalidSession("session has no answers")
	}
	if session.ElapsedSecs <= 0 {
		return CognitiveResult{}, errors.NewInvalidSession("session elapsed time must be positive")
	}

	var totalWeight, correctWeight float64
	correct := 0
	for _, a := range session.Answers {
		if a.Difficulty <= 0 {
			return CognitiveResult{}, errors.NewInvalidSession("answer difficulty weight must be positive")
		}
		totalWeight += a.Difficulty
		if a.Correct {
			correctWeight += a.Difficulty
			correct++
		}
	}

	accuracy := maxScore * correctWeight / totalWeight

	baseline := baselineSecsPerQuestion * float64(len(session.Answers))
	speed := maxScore * clamp(baseline/session.ElapsedSecs, 0, 1)

	avgWeight := totalWeight / float64(len(session.Answers))
	difficulty := maxScore * clamp(avgWeight/maxDifficultyWeight, 0, 1)

	composite := cognitiveWeights["accuracy"]*accuracy +
		cognitiveWeights["speed"]*speed +
		cognitiveWeights["difficulty"]*difficulty

	return CognitiveResult{
		AccuracyScore:   round2(accuracy),
		SpeedScore:      round2(speed),
		DifficultyScore: round2(difficulty),
		Composite:       round2(composite),
		Breakdown: CognitiveBreakdown{
			TotalQuestions: len(session.Answers),
			CorrectAnswers: correct,
			ElapsedSecs:    session.ElapsedSecs,
			BaselineSecs:   baseline,
		},
	}, nil
}
