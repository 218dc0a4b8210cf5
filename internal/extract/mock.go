package extract

import (
	"context"

	"github.com/li2092/cyber-mantic/internal/domain"
)

// MockExtractor is a configurable extractor for testing.
// Set the response fields to control what Extract returns.
type MockExtractor struct {
	ExtractResponse map[string]any
	ExtractError    error

	// Call tracking for assertions
	ExtractCalls []struct {
		Stage domain.Stage
		Text  string
	}
}

func NewMockExtractor() *MockExtractor {
	return &MockExtractor{
		ExtractResponse: map[string]any{},
	}
}

func (m *MockExtractor) Extract(ctx context.Context, stage domain.Stage, text string, known domain.UserInput) (map[string]any, error) {
	m.ExtractCalls = append(m.ExtractCalls, struct {
		Stage domain.Stage
		Text  string
	}{stage, text})
	if m.ExtractError != nil {
		return nil, m.ExtractError
	}
	return m.ExtractResponse, nil
}
