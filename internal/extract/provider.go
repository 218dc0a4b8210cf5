package extract

import (
	"errors"
	"fmt"

	"github.com/li2092/cyber-mantic/internal/domain"
)

// Provider constants
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
	ProviderNone      = "none"
)

var (
	// ErrTimeout means the provider did not answer within the turn budget.
	// The guard degrades to deterministic-only validation for that turn.
	ErrTimeout = errors.New("extraction timed out")
	// ErrProvider wraps upstream API failures.
	ErrProvider = errors.New("extraction provider error")
	// ErrParse means the provider answered but not with usable JSON.
	ErrParse = errors.New("extraction response unparseable")
)

// NewExtractor creates an extraction client based on the provider name.
// Returns an error if the provider is unknown or the API key is empty
// (except for mock and none).
func NewExtractor(provider, apiKey string) (domain.Extractor, error) {
	switch provider {
	case ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI provider")
		}
		return NewOpenAIExtractor(apiKey), nil

	case ProviderAnthropic:
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for Anthropic provider")
		}
		return NewAnthropicExtractor(apiKey), nil

	case ProviderMock:
		return NewMockExtractor(), nil

	case ProviderNone, "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown extraction provider: %s (valid options: openai, anthropic, mock, none)", provider)
	}
}
