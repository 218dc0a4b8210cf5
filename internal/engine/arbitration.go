package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/li2092/cyber-mantic/internal/domain"
	"github.com/li2092/cyber-mantic/internal/theory"
)

const (
	// Confidence floor for a decisively broken tie.
	ArbitrationAdoptedFloor = 0.75
	// Confidence cap when the arbitrator lands on a third reading.
	ArbitrationInconclusiveCap = 0.5
	ArbitrationConsensusBonus  = 0.1
)

// arbitrationPriority ranks tiebreak theories per question category. The
// arts each have classical domains of authority; career and timing lean on
// qimen, relationship questions on the hexagram arts, personal fate on the
// charts.
var arbitrationPriority = map[domain.QuestionCategory][]string{
	domain.CategoryCareer:       {theory.QiMen, theory.BaZi, theory.LiuYao, theory.ZiWei, theory.MeiHua},
	domain.CategoryWealth:       {theory.QiMen, theory.LiuYao, theory.BaZi, theory.MeiHua, theory.DaLiuRen},
	domain.CategoryLove:         {theory.ZiWei, theory.LiuYao, theory.MeiHua, theory.BaZi, theory.XiaoLiu},
	domain.CategoryMarriage:     {theory.BaZi, theory.ZiWei, theory.LiuYao, theory.MeiHua, theory.DaLiuRen},
	domain.CategoryHealth:       {theory.BaZi, theory.ZiWei, theory.QiMen, theory.LiuYao, theory.MeiHua},
	domain.CategoryStudy:        {theory.ZiWei, theory.BaZi, theory.LiuYao, theory.MeiHua, theory.CeZi},
	domain.CategoryRelationship: {theory.LiuYao, theory.MeiHua, theory.ZiWei, theory.XiaoLiu, theory.CeZi},
	domain.CategoryTiming:       {theory.DaLiuRen, theory.QiMen, theory.XiaoLiu, theory.LiuYao, theory.MeiHua},
	domain.CategoryDecision:     {theory.QiMen, theory.DaLiuRen, theory.LiuYao, theory.MeiHua, theory.XiaoLiu},
	domain.CategoryPersonality:  {theory.BaZi, theory.ZiWei, theory.CeZi, theory.MeiHua, theory.LiuYao},
}

// defaultArbitrationOrder serves categories without a dedicated list.
var defaultArbitrationOrder = []string{
	theory.LiuYao, theory.QiMen, theory.BaZi, theory.MeiHua, theory.XiaoLiu,
}

// Arbitrator breaks severe conflicts by running one additional theory
// that took no part in the disputed analysis.
type Arbitrator struct {
	registry *theory.Registry
	logger   *zap.Logger
}

func NewArbitrator(registry *theory.Registry, logger *zap.Logger) *Arbitrator {
	return &Arbitrator{registry: registry, logger: logger}
}

// SelectArbitrator walks the category's priority list and returns the
// first theory that is both unused and eligible on the current input.
func (a *Arbitrator) SelectArbitrator(category domain.QuestionCategory, used map[string]bool, input domain.UserInput) (*domain.TheoryDescriptor, error) {
	order, ok := arbitrationPriority[category]
	if !ok {
		order = defaultArbitrationOrder
	}
	for _, name := range order {
		if used[name] {
			continue
		}
		d, ok := a.registry.Descriptor(name)
		if !ok || !d.Eligible(input) {
			continue
		}
		return d, nil
	}
	return nil, ErrArbitrationUnavailable
}

// Arbitrate runs the chosen theory and matches its verdict against the two
// sides of the conflict. One matching side wins the tie; a third distinct
// reading marks the outcome inconclusive.
func (a *Arbitrator) Arbitrate(ctx context.Context, input domain.UserInput, sideA, sideB domain.TheoryResult, used map[string]bool) (*domain.ArbitrationOutcome, error) {
	desc, err := a.SelectArbitrator(input.Category(), used, input)
	if err != nil {
		return nil, err
	}
	runner, ok := a.registry.Runner(desc.Name)
	if !ok {
		return nil, ErrArbitrationUnavailable
	}
	res, err := runner.Run(ctx, desc, input.Clone())
	if err != nil {
		a.logger.Warn("arbitrator run failed, trying next",
			zap.String("theory", desc.Name), zap.Error(err))
		next := make(map[string]bool, len(used)+1)
		for k, v := range used {
			next[k] = v
		}
		next[desc.Name] = true
		return a.Arbitrate(ctx, input, sideA, sideB, next)
	}

	outcome := &domain.ArbitrationOutcome{Theory: desc.Name, Result: *res}
	side := res.Judgment.Side()
	matchA := side != 0 && side == sideA.Judgment.Side()
	matchB := side != 0 && side == sideB.Judgment.Side()

	switch {
	case matchA && matchB:
		outcome.MatchedSide = domain.ArbitrationMatchBoth
		outcome.FinalJudgment = sideA.Judgment
		outcome.Confidence = domain.ClampUnit(maxFloat(sideA.Confidence, sideB.Confidence) + ArbitrationConsensusBonus)
	case matchA:
		outcome.MatchedSide = domain.ArbitrationMatchA
		outcome.FinalJudgment = sideA.Judgment
		outcome.Confidence = domain.ClampUnit(maxFloat(sideA.Confidence, ArbitrationAdoptedFloor))
	case matchB:
		outcome.MatchedSide = domain.ArbitrationMatchB
		outcome.FinalJudgment = sideB.Judgment
		outcome.Confidence = domain.ClampUnit(maxFloat(sideB.Confidence, ArbitrationAdoptedFloor))
	default:
		outcome.MatchedSide = domain.ArbitrationMatchNone
		outcome.FinalJudgment = domain.JudgmentNeutral
		outcome.Confidence = minFloat(res.Confidence, ArbitrationInconclusiveCap)
		outcome.Inconclusive = true
	}

	a.logger.Info("arbitration complete",
		zap.String("arbitrator", desc.Name),
		zap.String("matched_side", outcome.MatchedSide),
		zap.String("final_judgment", string(outcome.FinalJudgment)),
		zap.Bool("inconclusive", outcome.Inconclusive))
	return outcome, nil
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
