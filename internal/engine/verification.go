package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/li2092/cyber-mantic/internal/domain"
)

// VerificationCount is fixed: three retrospective questions per analysis,
// each checking one past-fact claim of one theory.
const VerificationCount = 3

// Verifier generates retrospective verification questions, classifies the
// answers, and applies the confidence deltas before the final re-resolution.
type Verifier struct {
	resolver *Resolver
	logger   *zap.Logger
}

func NewVerifier(resolver *Resolver, logger *zap.Logger) *Verifier {
	return &Verifier{resolver: resolver, logger: logger}
}

// verificationTemplate phrases one past-fact probe for a category. The
// claim is about what already happened, never a forward prediction.
type verificationTemplate struct {
	claim    string
	question string
	shape    domain.AnswerShape
	expected []string
}

var verificationTemplates = map[domain.QuestionCategory][]verificationTemplate{
	domain.CategoryCareer: {
		{"a notable work opportunity appeared in the last two years", "In the past two years, did a clear opportunity to change roles or take on more come your way?", domain.ShapeYesNo, []string{"yes"}},
		{"friction with a superior occurred recently", "Have you had noticeable friction with a manager or senior colleague this past year?", domain.ShapeYesNo, []string{"yes"}},
		{"the year the current position started", "Which year did you start your current position?", domain.ShapeYear, nil},
	},
	domain.CategoryWealth: {
		{"an unexpected expense hit in the last year", "Did a sizable expense you had not planned for come up in the last year?", domain.ShapeYesNo, []string{"yes"}},
		{"an investment or side income was attempted recently", "Have you tried an investment or a side source of income in the past two years?", domain.ShapeYesNo, []string{"yes"}},
		{"overall money flow tightened or loosened lately", "Over the past year, has money felt tighter, looser, or about the same?", domain.ShapeChoice, []string{"tighter", "looser"}},
	},
	domain.CategoryLove: {
		{"a meaningful encounter occurred in the recent past", "In the past year, did you meet someone who genuinely caught your attention?", domain.ShapeYesNo, []string{"yes"}},
		{"an old relationship resurfaced", "Has someone from a past relationship reappeared in your life recently?", domain.ShapeYesNo, []string{"yes"}},
		{"the year the last significant relationship ended", "Which year did your last significant relationship end?", domain.ShapeYear, nil},
	},
	domain.CategoryHealth: {
		{"sleep quality declined in recent months", "Over the last few months, has your sleep been worse than usual?", domain.ShapeYesNo, []string{"yes"}},
		{"a recurring minor ailment has been present", "Is there a small recurring complaint, like headaches or stomach trouble, that keeps coming back?", domain.ShapeYesNo, []string{"yes"}},
		{"energy levels through a typical day", "Through a typical day, is your energy steady, fading by afternoon, or low from the start?", domain.ShapeChoice, []string{"steady", "fading", "low"}},
	},
	domain.CategoryTiming: {
		{"a previous attempt at this stalled", "Have you tried to move on this matter before and had it stall?", domain.ShapeYesNo, []string{"yes"}},
		{"the matter has been pending for over a year", "Has this been on your mind for more than a year?", domain.ShapeYesNo, []string{"yes"}},
		{"the year this matter first arose", "Which year did this matter first come up?", domain.ShapeYear, nil},
	},
}

// defaultTemplates covers categories without a dedicated set.
var defaultTemplates = []verificationTemplate{
	{"a turning point occurred in the last two years", "Looking back over the last two years, was there a clear turning point related to your question?", domain.ShapeYesNo, []string{"yes"}},
	{"outside advice was already sought on this", "Have you already asked someone you trust about this matter?", domain.ShapeYesNo, []string{"yes"}},
	{"how the situation has trended recently", "Over recent months, has this situation been improving, worsening, or flat?", domain.ShapeChoice, []string{"improving", "worsening", "flat"}},
}

// GenerateQuestions produces exactly three questions, spread across the
// selected theories so no single estimator absorbs all the feedback.
func (v *Verifier) GenerateQuestions(category domain.QuestionCategory, results []domain.TheoryResult) []domain.VerificationQuestion {
	templates, ok := verificationTemplates[category]
	if !ok {
		templates = defaultTemplates
	}
	questions := make([]domain.VerificationQuestion, 0, VerificationCount)
	for i := 0; i < VerificationCount; i++ {
		t := templates[i%len(templates)]
		theoryName := results[i%len(results)].Theory
		questions = append(questions, domain.VerificationQuestion{
			Theory:   theoryName,
			Claim:    t.claim,
			Question: t.question,
			Shape:    t.shape,
			Expected: t.expected,
		})
	}
	return questions
}

var yearPattern = regexp.MustCompile(`(19|20)\d{2}`)

var (
	affirmWords = []string{"yes", "yeah", "yep", "definitely", "correct", "true", "indeed", "right", "did"}
	denyWords   = []string{"no", "nope", "never", "not", "didn't", "haven't", "hasn't", "wrong", "false"}
	hedgeWords  = []string{"maybe", "sort of", "kind of", "somewhat", "partly", "a bit", "possibly", "i think", "probably", "more or less"}
	unsureWords = []string{"don't know", "dont know", "not sure", "no idea", "can't remember", "cant remember", "unsure", "forget"}
)

// ClassifyAnswer matches the user's reply against the expected shape.
// This is semantic in the loose sense: hedged affirmation is partial, an
// admission of not knowing is unknown, and choice answers match any listed
// expected option.
func (v *Verifier) ClassifyAnswer(q *domain.VerificationQuestion, answer string) domain.VerificationOutcome {
	text := strings.ToLower(strings.TrimSpace(answer))
	if text == "" || containsAny(text, unsureWords) {
		return domain.OutcomeUnknown
	}

	switch q.Shape {
	case domain.ShapeYesNo:
		hedged := containsAny(text, hedgeWords)
		affirmed := containsAny(text, affirmWords)
		denied := containsAny(text, denyWords)
		// "not really", "didn't" carry the negation even alongside hedges
		switch {
		case denied && !affirmed:
			return domain.OutcomeDenied
		case affirmed && hedged:
			return domain.OutcomePartial
		case affirmed:
			return domain.OutcomeConfirmed
		case hedged:
			return domain.OutcomePartial
		default:
			return domain.OutcomeUnknown
		}
	case domain.ShapeYear:
		m := yearPattern.FindString(text)
		if m == "" {
			return domain.OutcomeUnknown
		}
		year, _ := strconv.Atoi(m)
		// Any plausible past year confirms that the event happened at all;
		// a future year denies the past-fact claim.
		if year <= time.Now().Year() {
			return domain.OutcomeConfirmed
		}
		return domain.OutcomeDenied
	case domain.ShapeChoice:
		for _, opt := range q.Expected {
			if strings.Contains(text, strings.ToLower(opt)) {
				return domain.OutcomeConfirmed
			}
		}
		if containsAny(text, hedgeWords) {
			return domain.OutcomePartial
		}
		return domain.OutcomeDenied
	default:
		if containsAny(text, denyWords) {
			return domain.OutcomeDenied
		}
		if containsAny(text, affirmWords) || containsAny(text, hedgeWords) {
			return domain.OutcomePartial
		}
		return domain.OutcomeUnknown
	}
}

// Apply folds every answered question's delta into its theory's confidence
// and re-runs the resolver with the adjusted set. Same algorithm, second
// pass; nothing about the re-resolution is special-cased.
func (v *Verifier) Apply(ctx context.Context, input domain.UserInput, results []domain.TheoryResult, questions []domain.VerificationQuestion) ([]domain.TheoryResult, []domain.ConfidenceAdjustment, *domain.ConflictResolution, error) {
	adjusted := make([]domain.TheoryResult, len(results))
	copy(adjusted, results)

	var adjustments []domain.ConfidenceAdjustment
	for i := range questions {
		q := &questions[i]
		if !q.Answered() {
			continue
		}
		delta := q.Outcome.Delta()
		adjustments = append(adjustments, domain.ConfidenceAdjustment{
			Theory:    q.Theory,
			Delta:     delta,
			Outcome:   q.Outcome,
			AppliedAt: time.Now().UTC(),
		})
		if delta == 0 {
			continue
		}
		for j := range adjusted {
			if adjusted[j].Theory == q.Theory {
				before := adjusted[j].Confidence
				adjusted[j] = adjusted[j].WithConfidence(before + delta)
				v.logger.Debug("confidence adjusted",
					zap.String("theory", q.Theory),
					zap.String("outcome", string(q.Outcome)),
					zap.Float64("before", before),
					zap.Float64("after", adjusted[j].Confidence))
			}
		}
	}

	resolution, err := v.resolver.Resolve(ctx, input, adjusted)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("re-resolving after verification: %w", err)
	}
	return adjusted, adjustments, resolution, nil
}

// containsAny matches single words against whole tokens and multi-word
// phrases as substrings, so "noted" or "november" never registers as "no".
func containsAny(text string, words []string) bool {
	var tokens []string
	for _, w := range words {
		if strings.ContainsRune(w, ' ') {
			if strings.Contains(text, w) {
				return true
			}
			continue
		}
		if tokens == nil {
			tokens = strings.FieldsFunc(text, func(r rune) bool {
				return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
			})
		}
		for _, tok := range tokens {
			if tok == w {
				return true
			}
		}
	}
	return false
}
