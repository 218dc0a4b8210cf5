package domain

// Judgment is the ordinal verdict scale shared by every theory.
type Judgment string

const (
	JudgmentVeryUnfavorable Judgment = "very_unfavorable"
	JudgmentUnfavorable     Judgment = "unfavorable"
	JudgmentNeutral         Judgment = "neutral"
	JudgmentFavorable       Judgment = "favorable"
	JudgmentVeryFavorable   Judgment = "very_favorable"
)

// NeutralLevel is the midpoint of the judgment scale. Levels above it lean
// favorable, levels below it lean unfavorable.
const NeutralLevel = 0.5

// Level returns the canonical numeric strength for a judgment.
func (j Judgment) Level() float64 {
	switch j {
	case JudgmentVeryFavorable:
		return 1.0
	case JudgmentFavorable:
		return 0.7
	case JudgmentUnfavorable:
		return 0.3
	case JudgmentVeryUnfavorable:
		return 0.0
	default:
		return NeutralLevel
	}
}

// Side reports which side of neutral a judgment falls on:
// +1 favorable, -1 unfavorable, 0 neutral.
func (j Judgment) Side() int {
	switch j {
	case JudgmentFavorable, JudgmentVeryFavorable:
		return 1
	case JudgmentUnfavorable, JudgmentVeryUnfavorable:
		return -1
	default:
		return 0
	}
}

func ValidJudgment(j string) bool {
	switch Judgment(j) {
	case JudgmentVeryUnfavorable, JudgmentUnfavorable, JudgmentNeutral,
		JudgmentFavorable, JudgmentVeryFavorable:
		return true
	}
	return false
}

// JudgmentFromLevel maps a blended level back onto the ordinal scale.
// Band edges follow the calibration used by the built-in theories.
func JudgmentFromLevel(level float64) Judgment {
	switch {
	case level >= 0.85:
		return JudgmentVeryFavorable
	case level >= 0.65:
		return JudgmentFavorable
	case level >= 0.35:
		return JudgmentNeutral
	case level >= 0.15:
		return JudgmentUnfavorable
	default:
		return JudgmentVeryUnfavorable
	}
}

// ClampUnit clamps v to [0,1]. Confidences and judgment levels never leave
// this range no matter how many adjustments accumulate.
func ClampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
