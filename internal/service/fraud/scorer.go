package fraud

import "math"

// CombineScores merges the three signals into a final score in [0, 100].
// When ml is nil the advisor and rule signals carry the full weight.
// The clamped value is rounded half away from zero.
func CombineScores(advisor, rules int, ml *float64) int {
	var raw float64
	if ml != nil {
		raw = BaseScore + WeightAdvisor*float64(advisor) + WeightRules*float64(rules) + WeightML*(*ml)
	} else {
		raw = BaseScore + DegradedWeightAdvisor*float64(advisor) + DegradedWeightRules*float64(rules)
	}
	if math.IsNaN(raw) {
		raw = MinScore
	}
	clamped := math.Max(MinScore, math.Min(MaxScore, raw))
	return int(math.Round(clamped))
}

// RiskLevelFor buckets a final score. Each band includes its lower bound.
func RiskLevelFor(score int) RiskLevel {
	switch {
	case score >= ThresholdLow:
		return RiskLevelLow
	case score >= ThresholdMedium:
		return RiskLevelMedium
	case score >= ThresholdHigh:
		return RiskLevelHigh
	default:
		return RiskLevelCritical
	}
}
