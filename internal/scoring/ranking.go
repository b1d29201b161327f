package scoring

// PopulationEntry is one member of a ranking population. Attributes are
// optional filter keys; only the score participates in the math.
type PopulationEntry struct {
	SubjectID string  `json:"subject_id"`
	Score     float64 `json:"score"`
	Region    string  `json:"region,omitempty"`
	Skill     string  `json:"skill,omitempty"`
}

// Filter narrows the population before ranking. A nil filter keeps every
// entry.
type Filter func(PopulationEntry) bool

// RankResult is the population-relative standing of one score.
type RankResult struct {
	Rank       int     `json:"rank"`
	Percentile float64 `json:"percentile"`
	Population int     `json:"population"`
}

// RankInPopulation computes standard competition ranking: rank is 1 plus
// the count of strictly greater scores, so ties share the better rank.
// Percentile is 100 * count(scores <= subject) / population size. The
// engine holds no ranking state; every call recomputes from the snapshot
// passed in, and staleness is the caller's concern.
func RankInPopulation(score float64, population []PopulationEntry, filter Filter) RankResult {
	higher, atOrBelow, n := 0, 0, 0
	for _, entry := range population {
		if filter != nil && !filter(entry) {
			continue
		}
		n++
		if entry.Score > score {
			higher++
		} else {
			atOrBelow++
		}
	}

	result := RankResult{Rank: 1 + higher, Population: n}
	if n == 0 {
		// Alone in the population: best rank, top percentile.
		result.Percentile = 100
		return result
	}
	result.Percentile = round2(100 * float64(atOrBelow) / float64(n))
	return result
}

// RegionFilter keeps entries from one region.
func RegionFilter(region string) Filter {
	return func(e PopulationEntry) bool { return e.Region == region }
}

// SkillFilter keeps entries tagged with one primary skill.
func SkillFilter(skill string) Filter {
	return func(e PopulationEntry) bool { return e.Skill == skill }
}
