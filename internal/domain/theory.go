package domain

// ExecutionTier orders theory runs so cheap results surface first.
// The tier is fixed per theory and independent of selection fitness.
type ExecutionTier int

const (
	TierQuick ExecutionTier = iota + 1 // seed-only, instant
	TierBase                           // birth-chart theories
	TierDeep                           // multi-field, time-sensitive
)

func (t ExecutionTier) String() string {
	switch t {
	case TierQuick:
		return "quick"
	case TierBase:
		return "base"
	case TierDeep:
		return "deep"
	default:
		return "unknown"
	}
}

// TheoryDescriptor is the static catalog entry for one estimator.
type TheoryDescriptor struct {
	Name            string
	Tier            ExecutionTier
	RequiredFields  []string
	OptionalFields  []string
	FieldWeights    map[string]float64
	MinCompleteness float64

	// Affinity is the theory's strength profile in the shared feature space.
	Affinity AffinityVector

	// BirthTimeSensitive theories lose selection weight when the user is
	// unsure of their birth hour.
	BirthTimeSensitive bool

	// PersonalityAffinity maps a personality type (e.g. "INTJ") to how well
	// this theory lands with that type. Missing entries read as neutral.
	PersonalityAffinity map[string]float64
}

// PersonalityNeutral is the affinity assumed when the user's personality
// type is unknown or unmapped.
const PersonalityNeutral = 0.7

func (d *TheoryDescriptor) PersonalityMatch(personality string) float64 {
	if personality == "" {
		return PersonalityNeutral
	}
	if v, ok := d.PersonalityAffinity[personality]; ok {
		return v
	}
	return PersonalityNeutral
}

// Completeness scores how much of the descriptor's declared input is present,
// as the weight of present fields over the weight of all declared fields,
// clamped to [0,1]. Adding fields never lowers the score.
func Completeness(input UserInput, d *TheoryDescriptor) float64 {
	var total, achieved float64
	for _, f := range d.RequiredFields {
		w := d.fieldWeight(f)
		total += w
		if input.Has(f) {
			achieved += w
		}
	}
	for _, f := range d.OptionalFields {
		w := d.fieldWeight(f)
		total += w
		if input.Has(f) {
			achieved += w
		}
	}
	if total <= 0 {
		return 0
	}
	return ClampUnit(achieved / total)
}

// Eligible reports whether the theory may run: every required field present
// and completeness at or above the declared floor.
func (d *TheoryDescriptor) Eligible(input UserInput) bool {
	for _, f := range d.RequiredFields {
		if !input.Has(f) {
			return false
		}
	}
	return Completeness(input, d) >= d.MinCompleteness
}

// MissingRequired lists required fields not yet present, in declaration order.
func (d *TheoryDescriptor) MissingRequired(input UserInput) []string {
	var missing []string
	for _, f := range d.RequiredFields {
		if !input.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// DependsOn reports whether a theory's output is a function of the field.
func (d *TheoryDescriptor) DependsOn(field string) bool {
	for _, f := range d.RequiredFields {
		if f == field {
			return true
		}
	}
	for _, f := range d.OptionalFields {
		if f == field {
			return true
		}
	}
	return false
}

func (d *TheoryDescriptor) fieldWeight(field string) float64 {
	if w, ok := d.FieldWeights[field]; ok {
		return w
	}
	return 1.0
}

// TheoryResult is one estimator's verdict. Immutable once produced; the
// resolver owns the set for the duration of one analysis pass.
type TheoryResult struct {
	Theory         string         `json:"theory"`
	Judgment       Judgment       `json:"judgment"`
	Level          float64        `json:"judgment_level"`
	Confidence     float64        `json:"confidence"`
	Calculation    map[string]any `json:"calculation,omitempty"`
	Interpretation string         `json:"interpretation,omitempty"`
}

// WithConfidence returns a copy with an adjusted, clamped confidence.
// Results are never mutated in place.
func (r TheoryResult) WithConfidence(c float64) TheoryResult {
	r.Confidence = ClampUnit(c)
	return r
}
