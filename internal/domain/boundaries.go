package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TheoryRunner executes one estimator. Implementations are opaque to the
// engine; the only contract is the TheoryResult shape.
type TheoryRunner interface {
	Run(ctx context.Context, d *TheoryDescriptor, input UserInput) (*TheoryResult, error)
}

// Extractor is the best-effort natural-language extraction boundary. It
// recovers candidate field values from free text when the deterministic
// validators come up short. Implementations must be idempotent and
// side-effect-free; failures degrade to deterministic-only validation.
type Extractor interface {
	Extract(ctx context.Context, stage Stage, text string, known UserInput) (map[string]any, error)
}

// ArchivedSession is what survives a session past its end: the final report
// plus the question's affinity vector for similarity lookup.
type ArchivedSession struct {
	SessionID  uuid.UUID
	Category   QuestionCategory
	Question   string
	Verdict    Judgment
	Level      float64
	Confidence float64
	Affinity   AffinityVector
	ReportJSON []byte
	CreatedAt  time.Time
}

// HistoryStore archives completed sessions and answers
// similar-consultation queries. Persistence is optional; a no-op
// implementation is used when no database is configured.
type HistoryStore interface {
	Archive(ctx context.Context, s *ArchivedSession) error
	FindSimilar(ctx context.Context, affinity AffinityVector, category QuestionCategory, limit int) ([]ArchivedSession, error)
}
