package engine

import (
	"context"
	"errors"
	"math"

	"go.uber.org/zap"

	"github.com/li2092/cyber-mantic/internal/domain"
)

const (
	DefaultEpsilonConsistent  = 0.2
	DefaultEpsilonMinor       = 0.4
	DefaultEpsilonSignificant = 0.5
	DefaultConfidenceExponent = 1.5

	// How far a severe conflict with no arbitrator is pulled back
	// toward neutral.
	conservativeDamping = 0.5
)

// Resolver blends a complete set of theory results into one verdict.
// Classification is pairwise; the blending rule is chosen by the highest
// tier any pair reached, so one severe disagreement governs the whole pass.
type Resolver struct {
	arbitrator *Arbitrator
	logger     *zap.Logger

	EpsilonConsistent  float64
	EpsilonMinor       float64
	EpsilonSignificant float64
	ConfidenceExponent float64
}

func NewResolver(arbitrator *Arbitrator, logger *zap.Logger) *Resolver {
	return &Resolver{
		arbitrator:         arbitrator,
		logger:             logger,
		EpsilonConsistent:  DefaultEpsilonConsistent,
		EpsilonMinor:       DefaultEpsilonMinor,
		EpsilonSignificant: DefaultEpsilonSignificant,
		ConfidenceExponent: DefaultConfidenceExponent,
	}
}

// Classify tiers one unordered pair. Opposite sides of neutral are severe
// no matter how small the numeric gap; everything else goes by |Δ|.
func (r *Resolver) Classify(a, b domain.TheoryResult) domain.ConflictTier {
	sa, sb := a.Judgment.Side(), b.Judgment.Side()
	if sa != 0 && sb != 0 && sa != sb {
		return domain.ConflictSevere
	}
	delta := math.Abs(a.Level - b.Level)
	switch {
	case delta <= r.EpsilonConsistent:
		return domain.ConflictConsistent
	case delta <= r.EpsilonMinor:
		return domain.ConflictMinor
	default:
		return domain.ConflictSignificant
	}
}

// Resolve produces the single blended resolution for one analysis pass.
// The result set must be complete; partial sets are a caller bug.
func (r *Resolver) Resolve(ctx context.Context, input domain.UserInput, results []domain.TheoryResult) (*domain.ConflictResolution, error) {
	switch len(results) {
	case 0:
		return nil, ErrNoResults
	case 1:
		return &domain.ConflictResolution{
			Strategy:   domain.StrategySingleResult,
			Judgment:   results[0].Judgment,
			Level:      results[0].Level,
			Confidence: results[0].Confidence,
		}, nil
	}

	conflicts := make([]domain.ConflictRecord, 0, len(results)*(len(results)-1)/2)
	severeIdx := -1
	for i := 0; i < len(results); i++ {
		for j := i + 1; j < len(results); j++ {
			tier := r.Classify(results[i], results[j])
			rec := domain.ConflictRecord{
				TheoryA: results[i].Theory,
				TheoryB: results[j].Theory,
				Delta:   math.Abs(results[i].Level - results[j].Level),
				Tier:    tier,
			}
			conflicts = append(conflicts, rec)
			if tier == domain.ConflictSevere && severeIdx == -1 {
				severeIdx = len(conflicts) - 1
			}
		}
	}

	res := &domain.ConflictResolution{Conflicts: conflicts}
	switch res.HighestTier() {
	case domain.ConflictConsistent:
		r.blendConsensus(res, results)
	case domain.ConflictMinor:
		r.blendAverage(res, results)
	case domain.ConflictSignificant:
		r.blendWeighted(res, results)
	case domain.ConflictSevere:
		r.resolveSevere(ctx, input, res, results, severeIdx)
	}

	r.logger.Debug("conflict resolved",
		zap.String("strategy", res.Strategy),
		zap.String("judgment", string(res.Judgment)),
		zap.Float64("level", res.Level),
		zap.Float64("confidence", res.Confidence))
	return res, nil
}

// blendConsensus: all pairs agree within ε1. The representative judgment
// is the confidence-weighted mode; agreement earns a small bonus.
func (r *Resolver) blendConsensus(res *domain.ConflictResolution, results []domain.TheoryResult) {
	byJudgment := map[domain.Judgment]float64{}
	for _, t := range results {
		byJudgment[t.Judgment] += t.Confidence
	}
	var winner domain.Judgment
	var best float64
	for _, t := range results {
		// iterate results, not the map, to keep the pick deterministic
		if byJudgment[t.Judgment] > best {
			winner, best = t.Judgment, byJudgment[t.Judgment]
		}
	}
	level, conf := confidenceWeighted(results, 1.0)
	res.Strategy = domain.StrategyConsensus
	res.Judgment = winner
	res.Level = level
	res.Confidence = domain.ClampUnit(conf + 0.05*float64(len(results)-1))
}

func (r *Resolver) blendAverage(res *domain.ConflictResolution, results []domain.TheoryResult) {
	var level, conf float64
	for _, t := range results {
		level += t.Level
		conf += t.Confidence
	}
	level /= float64(len(results))
	res.Strategy = domain.StrategySimpleAverage
	res.Level = domain.ClampUnit(level)
	res.Judgment = domain.JudgmentFromLevel(res.Level)
	res.Confidence = domain.ClampUnit(conf / float64(len(results)))
}

func (r *Resolver) blendWeighted(res *domain.ConflictResolution, results []domain.TheoryResult) {
	level, conf := confidenceWeighted(results, r.ConfidenceExponent)
	res.Strategy = domain.StrategyConfidenceWeighted
	res.Level = level
	res.Judgment = domain.JudgmentFromLevel(level)
	res.Confidence = conf
}

func (r *Resolver) resolveSevere(ctx context.Context, input domain.UserInput, res *domain.ConflictResolution, results []domain.TheoryResult, severeIdx int) {
	rec := &res.Conflicts[severeIdx]
	sideA := findResult(results, rec.TheoryA)
	sideB := findResult(results, rec.TheoryB)
	used := make(map[string]bool, len(results))
	for _, t := range results {
		used[t.Theory] = true
	}

	outcome, err := r.arbitrator.Arbitrate(ctx, input, *sideA, *sideB, used)
	if err != nil {
		if !errors.Is(err, ErrArbitrationUnavailable) {
			r.logger.Warn("arbitration error, using conservative fallback", zap.Error(err))
		}
		level, conf := confidenceWeighted(results, r.ConfidenceExponent)
		res.Strategy = domain.StrategyConservativeFallback
		res.Level = domain.ClampUnit(domain.NeutralLevel + (level-domain.NeutralLevel)*conservativeDamping)
		res.Judgment = domain.JudgmentFromLevel(res.Level)
		res.Confidence = minFloat(conf, ArbitrationInconclusiveCap)
		return
	}

	rec.Arbitration = outcome
	res.Strategy = domain.StrategyArbitrated
	res.Judgment = outcome.FinalJudgment
	res.Confidence = outcome.Confidence
	switch outcome.MatchedSide {
	case domain.ArbitrationMatchA:
		res.Level = sideA.Level
	case domain.ArbitrationMatchB:
		res.Level = sideB.Level
	case domain.ArbitrationMatchBoth:
		res.Level = (sideA.Level + sideB.Level) / 2
	default:
		res.Level = domain.NeutralLevel
	}
}

func confidenceWeighted(results []domain.TheoryResult, exponent float64) (level, confidence float64) {
	var wSum, lSum, cSum float64
	for _, t := range results {
		w := math.Pow(t.Confidence, exponent)
		wSum += w
		lSum += w * t.Level
		cSum += w * t.Confidence
	}
	if wSum == 0 {
		// all-zero confidence degenerates to a plain mean
		for _, t := range results {
			level += t.Level
		}
		return domain.ClampUnit(level / float64(len(results))), 0
	}
	return domain.ClampUnit(lSum / wSum), domain.ClampUnit(cSum / wSum)
}

func findResult(results []domain.TheoryResult, name string) *domain.TheoryResult {
	for i := range results {
		if results[i].Theory == name {
			return &results[i]
		}
	}
	return nil
}
