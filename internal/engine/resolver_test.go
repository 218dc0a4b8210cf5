package engine

import (
	"context"
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/li2092/cyber-mantic/internal/domain"
	"github.com/li2092/cyber-mantic/internal/theory"
)

type stubRunner struct {
	result *domain.TheoryResult
	err    error
	calls  int
}

func (s *stubRunner) Run(ctx context.Context, d *domain.TheoryDescriptor, input domain.UserInput) (*domain.TheoryResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	r := *s.result
	r.Theory = d.Name
	return &r, nil
}

func result(name string, judgment domain.Judgment, level, confidence float64) domain.TheoryResult {
	return domain.TheoryResult{Theory: name, Judgment: judgment, Level: level, Confidence: confidence}
}

func newTestResolver(registry *theory.Registry) *Resolver {
	logger := zap.NewNop()
	if registry == nil {
		registry = theory.NewRegistry()
	}
	return NewResolver(NewArbitrator(registry, logger), logger)
}

func TestResolver_ClassifySymmetric(t *testing.T) {
	r := newTestResolver(nil)
	pairs := []struct{ a, b domain.TheoryResult }{
		{result("x", domain.JudgmentFavorable, 0.75, 0.8), result("y", domain.JudgmentFavorable, 0.70, 0.8)},
		{result("x", domain.JudgmentFavorable, 0.75, 0.8), result("y", domain.JudgmentNeutral, 0.45, 0.8)},
		{result("x", domain.JudgmentFavorable, 0.70, 0.8), result("y", domain.JudgmentUnfavorable, 0.25, 0.8)},
	}
	for _, p := range pairs {
		if got, want := r.Classify(p.a, p.b), r.Classify(p.b, p.a); got != want {
			t.Errorf("classify(%s,%s) = %v but classify(%s,%s) = %v", p.a.Theory, p.b.Theory, got, p.b.Theory, p.a.Theory, want)
		}
	}
}

func TestResolver_ClassifyTiers(t *testing.T) {
	r := newTestResolver(nil)

	tests := []struct {
		name string
		a, b domain.TheoryResult
		want domain.ConflictTier
	}{
		{"within epsilon1", result("a", domain.JudgmentFavorable, 0.75, 0.8), result("b", domain.JudgmentFavorable, 0.70, 0.8), domain.ConflictConsistent},
		{"minor gap", result("a", domain.JudgmentFavorable, 0.80, 0.8), result("b", domain.JudgmentNeutral, 0.50, 0.8), domain.ConflictMinor},
		{"significant gap same side", result("a", domain.JudgmentVeryFavorable, 0.95, 0.8), result("b", domain.JudgmentNeutral, 0.50, 0.8), domain.ConflictSignificant},
		{"opposite sides small delta", result("a", domain.JudgmentFavorable, 0.65, 0.8), result("b", domain.JudgmentUnfavorable, 0.34, 0.8), domain.ConflictSevere},
	}
	for _, tt := range tests {
		if got := r.Classify(tt.a, tt.b); got != tt.want {
			t.Errorf("%s: tier = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestResolver_SingleResult(t *testing.T) {
	r := newTestResolver(nil)
	res, err := r.Resolve(context.Background(), domain.NewUserInput("q", domain.CategoryCareer),
		[]domain.TheoryResult{result("bazi", domain.JudgmentFavorable, 0.7, 0.85)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Strategy != domain.StrategySingleResult {
		t.Errorf("strategy = %s, want %s", res.Strategy, domain.StrategySingleResult)
	}
	if res.Judgment != domain.JudgmentFavorable || res.Level != 0.7 {
		t.Errorf("resolution = %s/%f, want favorable/0.7", res.Judgment, res.Level)
	}
}

func TestResolver_MinorConflictAveragesLevels(t *testing.T) {
	r := newTestResolver(nil)
	r.EpsilonConsistent = 0.05
	r.EpsilonMinor = 0.15

	a := result("meihua", domain.JudgmentFavorable, 0.70, 0.7)
	b := result("liuyao", domain.JudgmentFavorable, 0.80, 0.7)
	res, err := r.Resolve(context.Background(), domain.NewUserInput("q", domain.CategoryCareer),
		[]domain.TheoryResult{a, b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Strategy != domain.StrategySimpleAverage {
		t.Errorf("strategy = %s, want %s", res.Strategy, domain.StrategySimpleAverage)
	}
	if math.Abs(res.Level-0.75) > 1e-9 {
		t.Errorf("level = %f, want 0.75 (arithmetic mean)", res.Level)
	}
	if res.Judgment != domain.JudgmentFromLevel(0.75) {
		t.Errorf("judgment = %s, want %s", res.Judgment, domain.JudgmentFromLevel(0.75))
	}
}

func TestResolver_WeightedBlendLeansTowardConfidence(t *testing.T) {
	r := newTestResolver(nil)
	r.EpsilonConsistent = 0.05
	r.EpsilonMinor = 0.1

	a := result("bazi", domain.JudgmentVeryFavorable, 0.8, 0.9)
	b := result("cezi", domain.JudgmentFavorable, 0.6, 0.5)
	res, err := r.Resolve(context.Background(), domain.NewUserInput("q", domain.CategoryCareer),
		[]domain.TheoryResult{a, b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Strategy != domain.StrategyConfidenceWeighted {
		t.Errorf("strategy = %s, want %s", res.Strategy, domain.StrategyConfidenceWeighted)
	}
	if res.Level <= 0.6 || res.Level >= 0.8 {
		t.Errorf("level = %f, want strictly between 0.6 and 0.8", res.Level)
	}
	if res.Level <= 0.7 {
		t.Errorf("level = %f, want closer to the 0.9-confidence side (> 0.7)", res.Level)
	}
}

func TestResolver_SevereConflictArbitrated(t *testing.T) {
	logger := zap.NewNop()
	registry := theory.NewRegistry()
	arb := &stubRunner{result: &domain.TheoryResult{Judgment: domain.JudgmentFavorable, Level: 0.7, Confidence: 0.8}}
	err := registry.Register(&domain.TheoryDescriptor{Name: theory.LiuYao}, arb)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	r := NewResolver(NewArbitrator(registry, logger), logger)

	a := result("bazi", domain.JudgmentFavorable, 0.72, 0.7)
	b := result("qimen", domain.JudgmentUnfavorable, 0.28, 0.7)
	input := domain.NewUserInput("should I switch jobs", domain.CategoryCareer)
	res, err := r.Resolve(context.Background(), input, []domain.TheoryResult{a, b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Strategy != domain.StrategyArbitrated {
		t.Fatalf("strategy = %s, want %s", res.Strategy, domain.StrategyArbitrated)
	}
	if res.Judgment != domain.JudgmentFavorable {
		t.Errorf("judgment = %s, want favorable", res.Judgment)
	}
	if res.Confidence < a.Confidence {
		t.Errorf("confidence = %f, want >= original favorable side %f", res.Confidence, a.Confidence)
	}
	if arb.calls != 1 {
		t.Errorf("arbitrator calls = %d, want 1", arb.calls)
	}
	if res.Conflicts[0].Arbitration == nil {
		t.Error("severe conflict record has no arbitration outcome")
	}
}

func TestResolver_SevereConflictNoArbitratorFallsBack(t *testing.T) {
	// Empty registry: every priority-list lookup misses.
	r := newTestResolver(theory.NewRegistry())

	a := result("bazi", domain.JudgmentFavorable, 0.72, 0.7)
	b := result("qimen", domain.JudgmentUnfavorable, 0.28, 0.7)
	res, err := r.Resolve(context.Background(), domain.NewUserInput("q", domain.CategoryCareer),
		[]domain.TheoryResult{a, b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Strategy != domain.StrategyConservativeFallback {
		t.Fatalf("strategy = %s, want %s", res.Strategy, domain.StrategyConservativeFallback)
	}
	// The fallback dampens toward neutral rather than averaging naively.
	blended, _ := confidenceWeighted([]domain.TheoryResult{a, b}, r.ConfidenceExponent)
	if math.Abs(res.Level-domain.NeutralLevel) >= math.Abs(blended-domain.NeutralLevel) && blended != domain.NeutralLevel {
		t.Errorf("level = %f not damped toward neutral vs blend %f", res.Level, blended)
	}
	if res.Confidence > ArbitrationInconclusiveCap {
		t.Errorf("confidence = %f, want <= %f", res.Confidence, ArbitrationInconclusiveCap)
	}
}

func TestResolver_ConsistentSetUsesConsensus(t *testing.T) {
	r := newTestResolver(nil)
	results := []domain.TheoryResult{
		result("xiaoliu", domain.JudgmentFavorable, 0.72, 0.65),
		result("meihua", domain.JudgmentFavorable, 0.70, 0.70),
		result("liuyao", domain.JudgmentFavorable, 0.68, 0.75),
	}
	res, err := r.Resolve(context.Background(), domain.NewUserInput("q", domain.CategoryCareer), results)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Strategy != domain.StrategyConsensus {
		t.Errorf("strategy = %s, want %s", res.Strategy, domain.StrategyConsensus)
	}
	if res.Judgment != domain.JudgmentFavorable {
		t.Errorf("judgment = %s, want favorable", res.Judgment)
	}
	if res.HighestTier() != domain.ConflictConsistent {
		t.Errorf("highest tier = %v, want consistent", res.HighestTier())
	}
}

func TestResolver_OneSeverePairGovernsBlend(t *testing.T) {
	// Two agreeing pairs plus one severe pair: the severe pair must pick
	// the strategy for the whole set.
	r := newTestResolver(theory.NewRegistry())
	results := []domain.TheoryResult{
		result("xiaoliu", domain.JudgmentFavorable, 0.70, 0.65),
		result("meihua", domain.JudgmentFavorable, 0.72, 0.70),
		result("qimen", domain.JudgmentUnfavorable, 0.25, 0.80),
	}
	res, err := r.Resolve(context.Background(), domain.NewUserInput("q", domain.CategoryCareer), results)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.HighestTier() != domain.ConflictSevere {
		t.Fatalf("highest tier = %v, want severe", res.HighestTier())
	}
	if res.Strategy != domain.StrategyConservativeFallback && res.Strategy != domain.StrategyArbitrated {
		t.Errorf("strategy = %s, want a severe-tier strategy", res.Strategy)
	}
}

func TestResolver_NoResults(t *testing.T) {
	r := newTestResolver(nil)
	if _, err := r.Resolve(context.Background(), domain.NewUserInput("q", domain.CategoryCareer), nil); err != ErrNoResults {
		t.Errorf("err = %v, want ErrNoResults", err)
	}
}
