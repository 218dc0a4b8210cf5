package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/li2092/cyber-mantic/internal/domain"
	"github.com/li2092/cyber-mantic/internal/theory"
)

// Engine runs one full analysis pass: select, run concurrently, join,
// resolve. Runners are independent and side-effect-free, so they fan out;
// the resolver only ever sees the complete joined set.
type Engine struct {
	registry *theory.Registry
	selector *Selector
	resolver *Resolver
	verifier *Verifier
	logger   *zap.Logger
}

func New(registry *theory.Registry, logger *zap.Logger) *Engine {
	arbitrator := NewArbitrator(registry, logger)
	resolver := NewResolver(arbitrator, logger)
	return &Engine{
		registry: registry,
		selector: NewSelector(registry, logger),
		resolver: resolver,
		verifier: NewVerifier(resolver, logger),
		logger:   logger,
	}
}

func (e *Engine) Selector() *Selector { return e.selector }

// Descriptors exposes the registry catalog for dependency checks.
func (e *Engine) Descriptors() []*domain.TheoryDescriptor { return e.registry.Descriptors() }
func (e *Engine) Resolver() *Resolver                     { return e.resolver }
func (e *Engine) Verifier() *Verifier                     { return e.verifier }

// Analysis is the read-only product of one pass.
type Analysis struct {
	Selected   []string
	Results    []domain.TheoryResult
	Resolution *domain.ConflictResolution
}

// Analyze is the join point of the pipeline. Failed runners are dropped
// with a logged reason; the pass aborts only when nothing remains.
func (e *Engine) Analyze(ctx context.Context, input domain.UserInput) (*Analysis, error) {
	sel, err := e.selector.Select(input)
	if err != nil {
		return nil, err
	}

	order := sel.ExecutionOrder()
	results := make([]domain.TheoryResult, 0, len(order))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, desc := range order {
		runner, ok := e.registry.Runner(desc.Name)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(d *domain.TheoryDescriptor, run domain.TheoryRunner) {
			defer wg.Done()
			res, err := run.Run(ctx, d, input.Clone())
			if err != nil {
				e.logger.Warn("theory dropped from pass",
					zap.String("theory", d.Name), zap.Error(err))
				return
			}
			mu.Lock()
			results = append(results, *res)
			mu.Unlock()
		}(desc, runner)
	}
	wg.Wait()

	if len(results) == 0 {
		return nil, ErrInsufficientTheories
	}
	// Joined order follows the execution tiers, not goroutine completion.
	ordered := make([]domain.TheoryResult, 0, len(results))
	for _, d := range order {
		if r := findResult(results, d.Name); r != nil {
			ordered = append(ordered, *r)
		}
	}

	resolution, err := e.resolver.Resolve(ctx, input, ordered)
	if err != nil {
		return nil, err
	}
	return &Analysis{
		Selected:   sel.Names(),
		Results:    ordered,
		Resolution: resolution,
	}, nil
}

// Rerun re-executes the named theories against the patched input, splicing
// fresh results over the stale ones. Used by the modify command.
func (e *Engine) Rerun(ctx context.Context, input domain.UserInput, prior []domain.TheoryResult, names []string) ([]domain.TheoryResult, *domain.ConflictResolution, error) {
	updated := make([]domain.TheoryResult, len(prior))
	copy(updated, prior)

	for _, name := range names {
		desc, ok := e.registry.Descriptor(name)
		if !ok {
			continue
		}
		runner, _ := e.registry.Runner(name)
		if !desc.Eligible(input) {
			updated = removeResult(updated, name)
			continue
		}
		res, err := runner.Run(ctx, desc, input.Clone())
		if err != nil {
			e.logger.Warn("recomputation failed, theory dropped",
				zap.String("theory", name), zap.Error(err))
			updated = removeResult(updated, name)
			continue
		}
		if r := findResult(updated, name); r != nil {
			*r = *res
		} else {
			updated = append(updated, *res)
		}
	}
	if len(updated) == 0 {
		return nil, nil, ErrInsufficientTheories
	}
	resolution, err := e.resolver.Resolve(ctx, input, updated)
	if err != nil {
		return nil, nil, err
	}
	return updated, resolution, nil
}

func removeResult(results []domain.TheoryResult, name string) []domain.TheoryResult {
	out := results[:0]
	for _, r := range results {
		if r.Theory != name {
			out = append(out, r)
		}
	}
	return out
}
