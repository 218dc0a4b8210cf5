package domain

import (
	"time"

	"github.com/google/uuid"
)

// ComprehensiveReport is the single serializable aggregate handed to
// presentation and export layers. Read-only to consumers.
type ComprehensiveReport struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`

	Question string           `json:"question"`
	Category QuestionCategory `json:"category"`

	SelectedTheories []string               `json:"selected_theories"`
	Results          []TheoryResult         `json:"results"`
	Resolution       ConflictResolution     `json:"resolution"`
	Adjustments      []ConfidenceAdjustment `json:"adjustments"`

	Verdict     Judgment `json:"verdict"`
	Level       float64  `json:"level"`
	Confidence  float64  `json:"confidence"`
	Limitations []string `json:"limitations,omitempty"`
}
