package scoring

import "math"

// Saturate maps x >= 0 onto [0,1) via 1 - e^(-x/k). Monotone increasing,
// bounded above, so unbounded raw counts cannot dominate a score.
func Saturate(x, k float64) float64 {
	if x <= 0 || k <= 0 {
		return 0
	}
	return 1 - math.Exp(-x/k)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// round2 keeps reported scores stable across recomputation.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
