package theory

import (
	"context"
	"fmt"

	"github.com/li2092/cyber-mantic/internal/domain"
)

// CalculationError wraps a failed estimator run with enough context to log
// and drop the theory without aborting the whole pass.
type CalculationError struct {
	Theory string
	Err    error
}

func (e *CalculationError) Error() string {
	return fmt.Sprintf("theory %s: calculation failed: %v", e.Theory, e.Err)
}

func (e *CalculationError) Unwrap() error { return e.Err }

// runnerFunc adapts a plain calculation to the runner boundary. It checks
// cancellation up front; the built-in calculations themselves are pure and
// fast enough not to need interior checks.
type runnerFunc func(domain.UserInput) (*domain.TheoryResult, error)

func (f runnerFunc) Run(ctx context.Context, d *domain.TheoryDescriptor, input domain.UserInput) (*domain.TheoryResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	res, err := f(input)
	if err != nil {
		return nil, &CalculationError{Theory: d.Name, Err: err}
	}
	res.Theory = d.Name
	res.Level = domain.ClampUnit(res.Level)
	res.Confidence = domain.ClampUnit(res.Confidence)
	if res.Judgment == "" {
		res.Judgment = domain.JudgmentFromLevel(res.Level)
	}
	return res, nil
}
