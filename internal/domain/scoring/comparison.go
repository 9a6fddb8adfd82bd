package scoring

import "math"

// Tolerance holds the thresholds under which two outputs are considered
// equivalent. Both come from configuration; nothing is baked into code.
type Tolerance struct {
	Score      float64 // absolute score difference, default 5 on a 0-100 scale
	Confidence float64 // absolute confidence difference, default 0.10
}

// DefaultTolerance returns the standard comparison thresholds.
func DefaultTolerance() Tolerance {
	return Tolerance{Score: 5, Confidence: 0.10}
}

// Comparison is the result of checking the rule output against the
// legacy output for one decision.
type Comparison struct {
	Match          bool    `json:"match"`
	ScoreDiff      float64 `json:"score_diff"`
	ConfidenceDiff float64 `json:"confidence_diff"`
}

// Compare checks two outputs for equivalence. They match when both the
// score and confidence differences are within tolerance.
func Compare(legacy, rule Output, tol Tolerance) Comparison {
	scoreDiff := math.Abs(legacy.Score - rule.Score)
	confDiff := math.Abs(legacy.Confidence - rule.Confidence)
	return Comparison{
		Match:          scoreDiff <= tol.Score && confDiff <= tol.Confidence,
		ScoreDiff:      scoreDiff,
		ConfidenceDiff: confDiff,
	}
}
