package domain

// ConflictTier classifies how severely two theory results disagree.
type ConflictTier int

const (
	ConflictConsistent  ConflictTier = 1 // within ε1, no action
	ConflictMinor       ConflictTier = 2 // simple average
	ConflictSignificant ConflictTier = 3 // confidence-weighted blend
	ConflictSevere      ConflictTier = 4 // opposite sides of neutral, arbitrate
)

func (t ConflictTier) String() string {
	switch t {
	case ConflictConsistent:
		return "consistent"
	case ConflictMinor:
		return "minor"
	case ConflictSignificant:
		return "significant"
	case ConflictSevere:
		return "severe"
	default:
		return "unknown"
	}
}

// ConflictRecord captures one pairwise comparison.
type ConflictRecord struct {
	TheoryA     string              `json:"theory_a"`
	TheoryB     string              `json:"theory_b"`
	Delta       float64             `json:"delta"`
	Tier        ConflictTier        `json:"tier"`
	Arbitration *ArbitrationOutcome `json:"arbitration,omitempty"`
}

// Resolution strategies, named after the blending rule that produced the
// final verdict.
const (
	StrategyConsensus            = "consensus"
	StrategySimpleAverage        = "simple_average"
	StrategyConfidenceWeighted   = "confidence_weighted"
	StrategyArbitrated           = "arbitrated"
	StrategyConservativeFallback = "conservative_fallback"
	StrategySingleResult         = "single_result"
)

// ConflictResolution is the single blended verdict for one analysis pass.
type ConflictResolution struct {
	Strategy   string           `json:"strategy"`
	Judgment   Judgment         `json:"judgment"`
	Level      float64          `json:"judgment_level"`
	Confidence float64          `json:"confidence"`
	Conflicts  []ConflictRecord `json:"conflicts"`
}

// HighestTier returns the most severe tier observed among all pairs, or
// ConflictConsistent when no pairs exist.
func (r *ConflictResolution) HighestTier() ConflictTier {
	highest := ConflictConsistent
	for _, c := range r.Conflicts {
		if c.Tier > highest {
			highest = c.Tier
		}
	}
	return highest
}

// Arbitration side markers.
const (
	ArbitrationMatchA    = "a"
	ArbitrationMatchB    = "b"
	ArbitrationMatchBoth = "both"
	ArbitrationMatchNone = "none"
)

// ArbitrationOutcome records the tiebreak run for one severe conflict.
type ArbitrationOutcome struct {
	Theory        string       `json:"theory"`
	Result        TheoryResult `json:"result"`
	MatchedSide   string       `json:"matched_side"`
	FinalJudgment Judgment     `json:"final_judgment"`
	Confidence    float64      `json:"confidence"`
	Inconclusive  bool         `json:"inconclusive"`
}
