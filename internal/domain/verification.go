package domain

import "time"

// AnswerShape tells the guard what kind of reply a verification question
// expects, which drives semantic classification of the answer.
type AnswerShape string

const (
	ShapeYesNo    AnswerShape = "yes_no"
	ShapeChoice   AnswerShape = "choice"
	ShapeYear     AnswerShape = "year"
	ShapeFreeText AnswerShape = "free_text"
)

// VerificationOutcome classifies a user's answer against the expected one.
type VerificationOutcome string

const (
	OutcomeConfirmed VerificationOutcome = "confirmed"
	OutcomePartial   VerificationOutcome = "partially_confirmed"
	OutcomeDenied    VerificationOutcome = "denied"
	OutcomeUnknown   VerificationOutcome = "unknown"
)

// Confidence deltas applied per outcome.
const (
	DeltaConfirmed = 0.2
	DeltaPartial   = 0.1
	DeltaDenied    = -0.15
	DeltaUnknown   = 0.0
)

func (o VerificationOutcome) Delta() float64 {
	switch o {
	case OutcomeConfirmed:
		return DeltaConfirmed
	case OutcomePartial:
		return DeltaPartial
	case OutcomeDenied:
		return DeltaDenied
	default:
		return DeltaUnknown
	}
}

// VerificationQuestion checks one specific past-fact claim made by one
// theory. Never a future prediction.
type VerificationQuestion struct {
	Theory   string      `json:"theory"`
	Claim    string      `json:"claim"`
	Question string      `json:"question"`
	Shape    AnswerShape `json:"shape"`
	// Expected holds the answers that count as confirmation.
	Expected []string `json:"expected,omitempty"`

	Answer  string              `json:"answer,omitempty"`
	Outcome VerificationOutcome `json:"outcome,omitempty"`
}

func (q *VerificationQuestion) Answered() bool {
	return q.Outcome != ""
}

// ConfidenceAdjustment is one applied delta against one theory.
type ConfidenceAdjustment struct {
	Theory    string              `json:"theory"`
	Delta     float64             `json:"delta"`
	Outcome   VerificationOutcome `json:"outcome"`
	AppliedAt time.Time           `json:"applied_at"`
}
