package domain

import (
	"time"

	"github.com/google/uuid"
)

// Stage is the conversation state machine position. Stages are strictly
// ordered and only advance forward; the modify command patches fields
// without moving the stage.
type Stage int

const (
	StageInit Stage = iota
	StageIcebreak
	StageDeepen
	StageCollect
	StageVerify
	StageReport
	StageQA
	StageCompleted
)

var stageNames = map[Stage]string{
	StageInit:      "init",
	StageIcebreak:  "icebreak",
	StageDeepen:    "deepen",
	StageCollect:   "collect",
	StageVerify:    "verify",
	StageReport:    "report",
	StageQA:        "qa",
	StageCompleted: "completed",
}

func (s Stage) String() string {
	if n, ok := stageNames[s]; ok {
		return n
	}
	return "unknown"
}

// Next returns the following stage; Completed is terminal.
func (s Stage) Next() Stage {
	if s >= StageCompleted {
		return StageCompleted
	}
	return s + 1
}

func (s Stage) Terminal() bool { return s == StageCompleted }

// TurnRecord is one exchange kept in the session history.
type TurnRecord struct {
	Role    string    `json:"role"` // "user" or "system"
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// ConversationContext is the single-owner mutable state for one session.
// Only the flow guard mutates it, and never across sessions.
type ConversationContext struct {
	ID        uuid.UUID
	Stage     Stage
	Input     UserInput
	CreatedAt time.Time
	UpdatedAt time.Time

	// Skipped marks required fields the user declined; they stay permanently
	// absent instead of being re-asked forever.
	Skipped map[string]bool

	// StageDone flags stages whose required fields all validated.
	StageDone map[Stage]bool

	SelectedTheories []string
	Results          map[string]TheoryResult
	// Stale lists theories whose result was invalidated by a field modify
	// and must be recomputed before the next resolution.
	Stale []string

	Resolution *ConflictResolution
	Questions  []VerificationQuestion
	// QuestionCursor indexes the next unanswered verification question.
	QuestionCursor int
	Adjustments    []ConfidenceAdjustment

	Report  *ComprehensiveReport
	History []TurnRecord
}

func NewConversationContext(question string, category QuestionCategory) *ConversationContext {
	now := time.Now().UTC()
	return &ConversationContext{
		ID:        uuid.New(),
		Stage:     StageInit,
		Input:     NewUserInput(question, category),
		CreatedAt: now,
		UpdatedAt: now,
		Skipped:   make(map[string]bool),
		StageDone: make(map[Stage]bool),
		Results:   make(map[string]TheoryResult),
	}
}

func (c *ConversationContext) AddTurn(role, content string) {
	c.History = append(c.History, TurnRecord{Role: role, Content: content, At: time.Now().UTC()})
	c.UpdatedAt = time.Now().UTC()
}

// FieldAvailable reports whether a field is either present or permanently
// skipped, i.e. the guard should stop asking for it.
func (c *ConversationContext) FieldAvailable(field string) bool {
	return c.Input.Has(field) || c.Skipped[field]
}

// InvalidateDependents drops every computed result whose theory declared the
// field, queueing those theories for recomputation. Results of unrelated
// theories are untouched. Returns the invalidated theory names.
func (c *ConversationContext) InvalidateDependents(field string, registry []*TheoryDescriptor) []string {
	var invalidated []string
	for _, d := range registry {
		if _, ok := c.Results[d.Name]; !ok {
			continue
		}
		if !d.DependsOn(field) {
			continue
		}
		delete(c.Results, d.Name)
		c.Stale = append(c.Stale, d.Name)
		invalidated = append(invalidated, d.Name)
	}
	if len(invalidated) > 0 {
		c.Resolution = nil
	}
	return invalidated
}
