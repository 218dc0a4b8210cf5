package flow

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/li2092/cyber-mantic/internal/domain"
	"github.com/li2092/cyber-mantic/internal/engine"
)

const DefaultExtractTimeout = 8 * time.Second

// stageSpec declares what a stage needs before the guard lets the
// conversation move on. Optional fields never block advancement.
type stageSpec struct {
	required []string
	optional []string
	prompt   string
}

var stageSpecs = map[domain.Stage]stageSpec{
	domain.StageInit: {
		required: []string{domain.FieldQuestion, domain.FieldCategory},
		prompt:   "Tell me what's on your mind.",
	},
	domain.StageIcebreak: {
		required: []string{domain.FieldNumbers},
		optional: []string{domain.FieldColor, domain.FieldDirection},
		prompt:   "Give me three numbers between 1 and 9, whatever comes to mind. A color or direction you're drawn to helps too.",
	},
	domain.StageDeepen: {
		required: []string{domain.FieldCharacter},
		optional: []string{domain.FieldPersonality},
		prompt:   "Now a single character or word that captures your question. If you know your personality type (like INTJ), add it.",
	},
	domain.StageCollect: {
		required: []string{
			domain.FieldBirthYear, domain.FieldBirthMonth,
			domain.FieldBirthDay, domain.FieldBirthHour, domain.FieldGender,
		},
		optional: []string{domain.FieldTimeCertainty},
		prompt:   "I need your birth date: year, month, day and hour, plus your gender. Say so if you don't know the hour.",
	},
}

var fieldPrompts = map[string]string{
	domain.FieldNumbers:     "three numbers between 1 and 9",
	domain.FieldCharacter:   "a single character or word",
	domain.FieldBirthYear:   "your birth year",
	domain.FieldBirthMonth:  "your birth month",
	domain.FieldBirthDay:    "your birth day",
	domain.FieldBirthHour:   "your birth hour (or say you don't know)",
	domain.FieldGender:      "your gender",
	domain.FieldPersonality: "your personality type",
	domain.FieldColor:       "a color on your mind",
	domain.FieldDirection:   "a direction you're drawn to",
}

// modifiableFields lists the field names the modify path accepts, sorted
// for stable error messages.
func modifiableFields() []string {
	fields := make([]string, 0, len(fieldPrompts))
	for f := range fieldPrompts {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// TurnOutcome is what one processed turn hands back to the caller.
type TurnOutcome struct {
	SessionID uuid.UUID                    `json:"session_id"`
	Stage     string                       `json:"stage"`
	Prompt    string                       `json:"prompt"`
	Missing   []string                     `json:"missing_fields,omitempty"`
	Progress  string                       `json:"progress,omitempty"`
	Question  *domain.VerificationQuestion `json:"verification_question,omitempty"`
	Report    *domain.ComprehensiveReport  `json:"report,omitempty"`
	Completed bool                         `json:"completed"`
}

// Guard is the conversation state machine. It owns every mutation of a
// ConversationContext; callers serialize access per session.
type Guard struct {
	engine    *engine.Engine
	extractor domain.Extractor
	logger    *zap.Logger

	ExtractTimeout time.Duration
}

func NewGuard(eng *engine.Engine, extractor domain.Extractor, logger *zap.Logger) *Guard {
	return &Guard{
		engine:         eng,
		extractor:      extractor,
		logger:         logger,
		ExtractTimeout: DefaultExtractTimeout,
	}
}

// Greeting returns the opening prompt after session start.
func (g *Guard) Greeting(cctx *domain.ConversationContext) *TurnOutcome {
	// Question and category arrive with session start, so INIT completes
	// immediately and the icebreak begins.
	cctx.StageDone[domain.StageInit] = true
	cctx.Stage = domain.StageIcebreak
	return &TurnOutcome{
		SessionID: cctx.ID,
		Stage:     cctx.Stage.String(),
		Prompt:    stageSpecs[domain.StageIcebreak].prompt,
	}
}

// ProcessTurn runs the full per-turn pipeline: modify detection, skip
// policy, deterministic validators, extraction fallback, merge, stage
// advancement and the stage-specific handlers.
func (g *Guard) ProcessTurn(ctx context.Context, cctx *domain.ConversationContext, text string) (*TurnOutcome, error) {
	cctx.AddTurn("user", text)

	var out *TurnOutcome
	var err error
	if field, raw, ok := DetectModify(text); ok {
		out, err = g.handleModify(ctx, cctx, field, raw)
		if err != nil {
			return nil, err
		}
		cctx.AddTurn("system", out.Prompt)
		return out, nil
	}
	switch cctx.Stage {
	case domain.StageInit, domain.StageIcebreak, domain.StageDeepen, domain.StageCollect:
		out, err = g.collectTurn(ctx, cctx, text)
	case domain.StageVerify:
		out, err = g.verifyTurn(ctx, cctx, text)
	case domain.StageQA:
		out, err = g.qaTurn(cctx, text)
	case domain.StageCompleted:
		out = &TurnOutcome{SessionID: cctx.ID, Stage: cctx.Stage.String(), Prompt: "This consultation is complete.", Completed: true}
	default:
		return nil, fmt.Errorf("turn received in unexpected stage %s", cctx.Stage)
	}
	if err != nil {
		return nil, err
	}
	cctx.AddTurn("system", out.Prompt)
	return out, nil
}

func (g *Guard) collectTurn(ctx context.Context, cctx *domain.ConversationContext, text string) (*TurnOutcome, error) {
	spec := stageSpecs[cctx.Stage]
	missing := g.missingRequired(cctx, spec)

	// Deterministic pass over every outstanding field, optional included.
	recovered := map[string]any{}
	for _, field := range append(append([]string{}, missing...), spec.optional...) {
		if cctx.FieldAvailable(field) {
			continue
		}
		if v, err := ParseField(field, text); err == nil {
			recovered[field] = v
		}
	}

	// Skip policy: a decline marks the first still-missing required field
	// permanently absent instead of re-asking forever.
	if len(recovered) == 0 && IsSkip(text) && len(missing) > 0 {
		cctx.Skipped[missing[0]] = true
		g.logger.Info("field skipped",
			zap.String("session_id", cctx.ID.String()),
			zap.String("field", missing[0]),
			zap.String("stage", cctx.Stage.String()))
	}

	g.mergeFields(cctx, recovered)

	// Extraction fallback only when deterministic validation left required
	// fields open. A timeout degrades to the deterministic result.
	if len(g.missingRequired(cctx, spec)) > 0 && g.extractor != nil {
		g.extractFallback(ctx, cctx, text)
	}

	return g.advance(ctx, cctx)
}

func (g *Guard) extractFallback(ctx context.Context, cctx *domain.ConversationContext, text string) {
	extractCtx, cancel := context.WithTimeout(ctx, g.ExtractTimeout)
	defer cancel()

	fields, err := g.extractor.Extract(extractCtx, cctx.Stage, text, cctx.Input)
	if err != nil {
		g.logger.Warn("extraction degraded to deterministic-only",
			zap.String("session_id", cctx.ID.String()),
			zap.String("stage", cctx.Stage.String()),
			zap.Error(err))
		return
	}
	// Re-validate everything the provider claims; never overwrite a field
	// the deterministic pass already set.
	validated := map[string]any{}
	for field, raw := range fields {
		if cctx.FieldAvailable(field) {
			continue
		}
		v, err := ParseField(field, fmt.Sprintf("%v", raw))
		if err != nil {
			continue
		}
		validated[field] = v
	}
	g.mergeFields(cctx, validated)
}

func (g *Guard) mergeFields(cctx *domain.ConversationContext, fields map[string]any) {
	for field, v := range fields {
		if err := cctx.Input.Set(field, v); err == nil {
			g.logger.Debug("field collected",
				zap.String("session_id", cctx.ID.String()),
				zap.String("field", field))
		}
	}
	if len(fields) > 0 {
		cctx.UpdatedAt = time.Now().UTC()
	}
}

// advance walks the stage machine forward as far as the accumulated input
// allows, then renders the outcome for the stage it lands on.
func (g *Guard) advance(ctx context.Context, cctx *domain.ConversationContext) (*TurnOutcome, error) {
	for cctx.Stage <= domain.StageCollect {
		spec := stageSpecs[cctx.Stage]
		missing := g.missingRequired(cctx, spec)
		if len(missing) > 0 {
			return &TurnOutcome{
				SessionID: cctx.ID,
				Stage:     cctx.Stage.String(),
				Prompt:    g.missingPrompt(missing),
				Missing:   missing,
				Progress:  g.progress(cctx),
			}, nil
		}
		cctx.StageDone[cctx.Stage] = true
		cctx.Stage = cctx.Stage.Next()
	}

	if cctx.Stage == domain.StageVerify && cctx.Resolution == nil {
		return g.runAnalysis(ctx, cctx)
	}
	return g.currentQuestion(cctx), nil
}

// runAnalysis is the COLLECT→VERIFY hinge: the full engine pass runs once
// all collectable fields are settled, then verification starts.
func (g *Guard) runAnalysis(ctx context.Context, cctx *domain.ConversationContext) (*TurnOutcome, error) {
	analysis, err := g.engine.Analyze(ctx, cctx.Input)
	if err != nil {
		return nil, err
	}
	cctx.SelectedTheories = analysis.Selected
	for _, r := range analysis.Results {
		cctx.Results[r.Theory] = r
	}
	cctx.Resolution = analysis.Resolution
	cctx.Questions = g.engine.Verifier().GenerateQuestions(cctx.Input.Category(), analysis.Results)
	cctx.QuestionCursor = 0

	g.logger.Info("analysis complete, verification begins",
		zap.String("session_id", cctx.ID.String()),
		zap.Strings("theories", analysis.Selected),
		zap.String("strategy", analysis.Resolution.Strategy))
	return g.currentQuestion(cctx), nil
}

func (g *Guard) currentQuestion(cctx *domain.ConversationContext) *TurnOutcome {
	q := &cctx.Questions[cctx.QuestionCursor]
	return &TurnOutcome{
		SessionID: cctx.ID,
		Stage:     cctx.Stage.String(),
		Prompt:    fmt.Sprintf("Before the reading, let me check something. %s", q.Question),
		Question:  q,
	}
}

func (g *Guard) verifyTurn(ctx context.Context, cctx *domain.ConversationContext, text string) (*TurnOutcome, error) {
	q := &cctx.Questions[cctx.QuestionCursor]
	q.Answer = text
	q.Outcome = g.engine.Verifier().ClassifyAnswer(q, text)
	cctx.QuestionCursor++

	if cctx.QuestionCursor < len(cctx.Questions) {
		return g.currentQuestion(cctx), nil
	}

	results := g.orderedResults(cctx)
	adjusted, adjustments, resolution, err := g.engine.Verifier().Apply(ctx, cctx.Input, results, cctx.Questions)
	if err != nil {
		return nil, err
	}
	for _, r := range adjusted {
		cctx.Results[r.Theory] = r
	}
	cctx.Adjustments = append(cctx.Adjustments, adjustments...)
	cctx.Resolution = resolution
	cctx.StageDone[domain.StageVerify] = true
	cctx.Stage = domain.StageReport

	report := g.buildReport(cctx)
	cctx.Report = report
	cctx.StageDone[domain.StageReport] = true
	cctx.Stage = domain.StageQA

	return &TurnOutcome{
		SessionID: cctx.ID,
		Stage:     cctx.Stage.String(),
		Prompt:    g.renderVerdict(report) + " Ask me anything about the reading, or say you're done.",
		Report:    report,
	}, nil
}

var farewellWords = []string{"done", "bye", "goodbye", "that's all", "thats all", "no more", "thanks, that", "nothing else"}

func (g *Guard) qaTurn(cctx *domain.ConversationContext, text string) (*TurnOutcome, error) {
	t := strings.ToLower(text)
	for _, w := range farewellWords {
		if strings.Contains(t, w) {
			cctx.StageDone[domain.StageQA] = true
			cctx.Stage = domain.StageCompleted
			return &TurnOutcome{
				SessionID: cctx.ID,
				Stage:     cctx.Stage.String(),
				Prompt:    "Take care. The full report stays available on this session.",
				Report:    cctx.Report,
				Completed: true,
			}, nil
		}
	}
	return &TurnOutcome{
		SessionID: cctx.ID,
		Stage:     cctx.Stage.String(),
		Prompt:    g.answerQuestion(cctx, t),
		Report:    cctx.Report,
	}, nil
}

func (g *Guard) answerQuestion(cctx *domain.ConversationContext, text string) string {
	r := cctx.Report
	switch {
	case strings.Contains(text, "why") || strings.Contains(text, "how did"):
		names := strings.Join(r.SelectedTheories, ", ")
		return fmt.Sprintf("The verdict rests on %d methods (%s), blended with the %s strategy at %.0f%% confidence.",
			len(r.Results), names, r.Resolution.Strategy, r.Confidence*100)
	case strings.Contains(text, "confiden") || strings.Contains(text, "reliab") || strings.Contains(text, "trust"):
		if len(r.Limitations) > 0 {
			return fmt.Sprintf("Confidence stands at %.0f%%. Bear in mind: %s.", r.Confidence*100, strings.Join(r.Limitations, "; "))
		}
		return fmt.Sprintf("Confidence stands at %.0f%%.", r.Confidence*100)
	default:
		return g.renderVerdict(r)
	}
}

func (g *Guard) renderVerdict(r *domain.ComprehensiveReport) string {
	return fmt.Sprintf("The overall reading on %q is %s (strength %.2f, confidence %.0f%%).",
		r.Question, strings.ReplaceAll(string(r.Verdict), "_", " "), r.Level, r.Confidence*100)
}

func (g *Guard) buildReport(cctx *domain.ConversationContext) *domain.ComprehensiveReport {
	results := g.orderedResults(cctx)
	return &domain.ComprehensiveReport{
		ID:               uuid.New(),
		SessionID:        cctx.ID,
		CreatedAt:        time.Now().UTC(),
		Question:         cctx.Input.Question(),
		Category:         cctx.Input.Category(),
		SelectedTheories: cctx.SelectedTheories,
		Results:          results,
		Resolution:       *cctx.Resolution,
		Adjustments:      cctx.Adjustments,
		Verdict:          cctx.Resolution.Judgment,
		Level:            cctx.Resolution.Level,
		Confidence:       cctx.Resolution.Confidence,
		Limitations:      g.limitations(cctx, results),
	}
}

func (g *Guard) limitations(cctx *domain.ConversationContext, results []domain.TheoryResult) []string {
	var lims []string
	if hour, ok := cctx.Input.Int(domain.FieldBirthHour); ok && hour == domain.BirthHourUnknown {
		lims = append(lims, "birth hour unknown, chart-based readings carry reduced weight")
	}
	if len(results) < 3 {
		lims = append(lims, fmt.Sprintf("only %d method(s) were applicable to the provided input", len(results)))
	}
	var skipped []string
	for f := range cctx.Skipped {
		skipped = append(skipped, f)
	}
	if len(skipped) > 0 {
		sort.Strings(skipped)
		lims = append(lims, fmt.Sprintf("skipped fields lowered completeness: %s", strings.Join(skipped, ", ")))
	}
	return lims
}

func (g *Guard) orderedResults(cctx *domain.ConversationContext) []domain.TheoryResult {
	results := make([]domain.TheoryResult, 0, len(cctx.Results))
	for _, name := range cctx.SelectedTheories {
		if r, ok := cctx.Results[name]; ok {
			results = append(results, r)
		}
	}
	return results
}

// handleModify patches the field out-of-band, invalidates dependent
// results and recomputes them. The stage does not move.
func (g *Guard) handleModify(ctx context.Context, cctx *domain.ConversationContext, field, raw string) (*TurnOutcome, error) {
	hint, known := fieldPrompts[field]
	if !known {
		return nil, &InputValidationError{
			Field:  field,
			Reason: fmt.Sprintf("not a modifiable field (one of: %s)", strings.Join(modifiableFields(), ", ")),
		}
	}
	value, err := ParseField(field, raw)
	if err != nil {
		return &TurnOutcome{
			SessionID: cctx.ID,
			Stage:     cctx.Stage.String(),
			Prompt:    fmt.Sprintf("I couldn't read the new value for %s. Give me %s.", field, hint),
		}, nil
	}
	cctx.Input.Replace(field, value)
	delete(cctx.Skipped, field)
	cctx.UpdatedAt = time.Now().UTC()

	invalidated := cctx.InvalidateDependents(field, g.engine.Descriptors())
	g.logger.Info("field modified",
		zap.String("session_id", cctx.ID.String()),
		zap.String("field", field),
		zap.Strings("invalidated", invalidated))

	if len(invalidated) > 0 {
		results := g.orderedResults(cctx)
		updated, resolution, err := g.engine.Rerun(ctx, cctx.Input, results, cctx.Stale)
		if err != nil {
			return nil, err
		}
		cctx.Stale = nil
		for _, r := range updated {
			cctx.Results[r.Theory] = r
		}
		cctx.Resolution = resolution
		if cctx.Report != nil {
			cctx.Report = g.buildReport(cctx)
		}
	}

	prompt := fmt.Sprintf("Noted, %s updated.", field)
	if len(invalidated) > 0 {
		prompt = fmt.Sprintf("Noted, %s updated and %d reading(s) recomputed.", field, len(invalidated))
	}
	return &TurnOutcome{
		SessionID: cctx.ID,
		Stage:     cctx.Stage.String(),
		Prompt:    prompt,
		Report:    cctx.Report,
	}, nil
}

func (g *Guard) missingRequired(cctx *domain.ConversationContext, spec stageSpec) []string {
	var missing []string
	for _, f := range spec.required {
		if !cctx.FieldAvailable(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

func (g *Guard) missingPrompt(missing []string) string {
	parts := make([]string, 0, len(missing))
	for _, f := range missing {
		if p, ok := fieldPrompts[f]; ok {
			parts = append(parts, p)
		} else {
			parts = append(parts, f)
		}
	}
	return fmt.Sprintf("I still need %s.", strings.Join(parts, " and "))
}

// progress renders how much of the collectable input is in hand.
func (g *Guard) progress(cctx *domain.ConversationContext) string {
	var total, have int
	for stage := domain.StageInit; stage <= domain.StageCollect; stage++ {
		for _, f := range stageSpecs[stage].required {
			total++
			if cctx.FieldAvailable(f) {
				have++
			}
		}
	}
	return fmt.Sprintf("%d of %d details collected", have, total)
}
