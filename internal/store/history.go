package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/li2092/cyber-mantic/internal/domain"
)

// HistoryStore archives completed consultations with the question's
// affinity vector, so later sessions can surface similar past readings.
type HistoryStore struct {
	db *pgxpool.Pool
}

func NewHistoryStore(db *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{db: db}
}

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS consultations (
	session_id  UUID PRIMARY KEY,
	category    TEXT NOT NULL,
	question    TEXT NOT NULL,
	verdict     TEXT NOT NULL,
	level       DOUBLE PRECISION NOT NULL,
	confidence  DOUBLE PRECISION NOT NULL,
	affinity    vector(8) NOT NULL,
	report      JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS consultations_category_idx ON consultations (category);
`

// EnsureSchema creates the consultations table and the pgvector extension.
func (s *HistoryStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure history schema: %w", err)
	}
	return nil
}

func (s *HistoryStore) Archive(ctx context.Context, rec *domain.ArchivedSession) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO consultations (session_id, category, question, verdict, level, confidence, affinity, report, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (session_id) DO UPDATE
		 SET verdict = EXCLUDED.verdict, level = EXCLUDED.level,
		     confidence = EXCLUDED.confidence, report = EXCLUDED.report`,
		rec.SessionID, string(rec.Category), rec.Question, string(rec.Verdict),
		rec.Level, rec.Confidence, affinityVector(rec.Affinity), rec.ReportJSON, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("archive consultation: %w", err)
	}
	return nil
}

func (s *HistoryStore) FindSimilar(ctx context.Context, affinity domain.AffinityVector, category domain.QuestionCategory, limit int) ([]domain.ArchivedSession, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.Query(ctx,
		`SELECT session_id, category, question, verdict, level, confidence, report, created_at
		 FROM consultations
		 WHERE category = $2
		 ORDER BY affinity <=> $1
		 LIMIT $3`,
		affinityVector(affinity), string(category), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("find similar consultations: %w", err)
	}
	defer rows.Close()

	var results []domain.ArchivedSession
	for rows.Next() {
		var rec domain.ArchivedSession
		var cat, verdict string
		if err := rows.Scan(&rec.SessionID, &cat, &rec.Question, &verdict,
			&rec.Level, &rec.Confidence, &rec.ReportJSON, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan consultation row: %w", err)
		}
		rec.Category = domain.QuestionCategory(cat)
		rec.Verdict = domain.Judgment(verdict)
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("consultation rows: %w", err)
	}
	return results, nil
}

func affinityVector(a domain.AffinityVector) pgvector.Vector {
	v := make([]float32, domain.AffinityDims)
	for i, f := range a {
		v[i] = float32(f)
	}
	return pgvector.NewVector(v)
}
