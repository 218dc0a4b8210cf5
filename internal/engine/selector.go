package engine

import (
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/li2092/cyber-mantic/internal/domain"
	"github.com/li2092/cyber-mantic/internal/theory"
)

const (
	DefaultWeightCompleteness = 0.40
	DefaultWeightCategory     = 0.35
	DefaultWeightPersonality  = 0.25
	DefaultPrimaryThreshold   = 0.30
	DefaultFallbackThreshold  = 0.15
	DefaultMaxTheories        = 5
	DefaultMinTheories        = 3

	// Selection discounts for birth-time sensitive theories.
	DiscountHourUnknown   = 0.3
	DiscountHourUncertain = 0.8
)

// Selector scores every registered theory against the accumulated input
// and picks the execution set for one analysis pass.
type Selector struct {
	registry *theory.Registry
	logger   *zap.Logger

	WeightCompleteness float64
	WeightCategory     float64
	WeightPersonality  float64
	PrimaryThreshold   float64
	FallbackThreshold  float64
	MaxTheories        int
	MinTheories        int
}

func NewSelector(registry *theory.Registry, logger *zap.Logger) *Selector {
	return &Selector{
		registry:           registry,
		logger:             logger,
		WeightCompleteness: DefaultWeightCompleteness,
		WeightCategory:     DefaultWeightCategory,
		WeightPersonality:  DefaultWeightPersonality,
		PrimaryThreshold:   DefaultPrimaryThreshold,
		FallbackThreshold:  DefaultFallbackThreshold,
		MaxTheories:        DefaultMaxTheories,
		MinTheories:        DefaultMinTheories,
	}
}

// scored pairs a descriptor with its fitness and its registration index,
// which is the stable tie-break.
type scored struct {
	desc    *domain.TheoryDescriptor
	fitness float64
	index   int
}

// Selection is the ordered outcome of one selection run. Theories is
// fitness-descending; ExecutionOrder regroups it by tier for the runner.
type Selection struct {
	Theories  []*domain.TheoryDescriptor
	Fitness   map[string]float64
	Threshold float64
}

// ExecutionOrder returns the selected theories quick-tier first so cheap
// results surface before the deep calculations finish.
func (s *Selection) ExecutionOrder() []*domain.TheoryDescriptor {
	out := make([]*domain.TheoryDescriptor, len(s.Theories))
	copy(out, s.Theories)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Tier < out[j].Tier })
	return out
}

func (s *Selection) Names() []string {
	names := make([]string, len(s.Theories))
	for i, d := range s.Theories {
		names[i] = d.Name
	}
	return names
}

// Select picks up to MaxTheories eligible theories above the primary
// fitness threshold, retrying once at the fallback threshold when fewer
// than MinTheories clear it. It never returns an empty selection without
// an error naming what the best candidate is missing.
func (s *Selector) Select(input domain.UserInput) (*Selection, error) {
	category := input.Category()
	personality, _ := input.String(domain.FieldPersonality)
	catAffinity := category.Affinity()

	var eligible, blocked []scored
	for i, d := range s.registry.Descriptors() {
		f := s.fitness(d, input, catAffinity, personality)
		if d.Eligible(input) {
			eligible = append(eligible, scored{desc: d, fitness: f, index: i})
		} else {
			blocked = append(blocked, scored{desc: d, fitness: f, index: i})
		}
	}

	chosen, threshold := s.pick(eligible, s.PrimaryThreshold)
	if len(chosen) < s.MinTheories {
		chosen, threshold = s.pick(eligible, s.FallbackThreshold)
	}
	if len(chosen) == 0 {
		best := bestScored(append(blocked, eligible...))
		if best == nil {
			return nil, ErrInsufficientTheories
		}
		missing := best.desc.MissingRequired(input)
		if len(missing) == 0 {
			missing = []string{"more complete input"}
		}
		return nil, &NoEligibleTheoryError{BestTheory: best.desc.Name, MissingFields: missing}
	}

	sel := &Selection{
		Theories:  make([]*domain.TheoryDescriptor, len(chosen)),
		Fitness:   make(map[string]float64, len(chosen)),
		Threshold: threshold,
	}
	for i, c := range chosen {
		sel.Theories[i] = c.desc
		sel.Fitness[c.desc.Name] = c.fitness
	}
	s.logger.Debug("theories selected",
		zap.String("category", string(category)),
		zap.Strings("theories", sel.Names()),
		zap.Float64("threshold", threshold))
	return sel, nil
}

func (s *Selector) pick(candidates []scored, threshold float64) ([]scored, float64) {
	var above []scored
	for _, c := range candidates {
		if c.fitness >= threshold {
			above = append(above, c)
		}
	}
	sort.SliceStable(above, func(i, j int) bool {
		if above[i].fitness != above[j].fitness {
			return above[i].fitness > above[j].fitness
		}
		return above[i].index < above[j].index
	})
	if len(above) > s.MaxTheories {
		above = above[:s.MaxTheories]
	}
	return above, threshold
}

func (s *Selector) fitness(d *domain.TheoryDescriptor, input domain.UserInput, catAffinity domain.AffinityVector, personality string) float64 {
	f := s.WeightCompleteness*domain.Completeness(input, d) +
		s.WeightCategory*cosine(catAffinity, d.Affinity) +
		s.WeightPersonality*d.PersonalityMatch(personality)
	if d.BirthTimeSensitive {
		f *= s.birthTimeDiscount(input)
	}
	return f
}

func (s *Selector) birthTimeDiscount(input domain.UserInput) float64 {
	hour, ok := input.Int(domain.FieldBirthHour)
	if ok && hour == domain.BirthHourUnknown {
		return DiscountHourUnknown
	}
	if certainty, ok := input.String(domain.FieldTimeCertainty); ok {
		switch strings.ToLower(certainty) {
		case "unknown", "no idea":
			return DiscountHourUnknown
		case "uncertain", "roughly", "approximate":
			return DiscountHourUncertain
		}
	}
	return 1.0
}

func bestScored(all []scored) *scored {
	var best *scored
	for i := range all {
		if best == nil || all[i].fitness > best.fitness {
			best = &all[i]
		}
	}
	return best
}

func cosine(a, b domain.AffinityVector) float64 {
	var dot, na, nb float64
	for i := 0; i < domain.AffinityDims; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
