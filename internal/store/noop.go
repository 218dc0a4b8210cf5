package store

import (
	"context"

	"github.com/li2092/cyber-mantic/internal/domain"
)

// NoopHistoryStore is used when no database is configured. Sessions simply
// are not archived and similarity lookups come back empty.
type NoopHistoryStore struct{}

func NewNoopHistoryStore() *NoopHistoryStore { return &NoopHistoryStore{} }

func (NoopHistoryStore) Archive(ctx context.Context, rec *domain.ArchivedSession) error {
	return nil
}

func (NoopHistoryStore) FindSimilar(ctx context.Context, affinity domain.AffinityVector, category domain.QuestionCategory, limit int) ([]domain.ArchivedSession, error) {
	return nil, nil
}
