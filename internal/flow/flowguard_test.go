package flow

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/li2092/cyber-mantic/internal/domain"
	"github.com/li2092/cyber-mantic/internal/engine"
	"github.com/li2092/cyber-mantic/internal/extract"
	"github.com/li2092/cyber-mantic/internal/theory"
)

func newTestGuard(extractor domain.Extractor) *Guard {
	logger := zap.NewNop()
	return NewGuard(engine.New(theory.Default(), logger), extractor, logger)
}

func startedContext(t *testing.T, g *Guard, question string) *domain.ConversationContext {
	t.Helper()
	cctx := domain.NewConversationContext(question, DetectCategory(question))
	out := g.Greeting(cctx)
	if out.Stage != domain.StageIcebreak.String() {
		t.Fatalf("stage after greeting = %s, want icebreak", out.Stage)
	}
	return cctx
}

func turn(t *testing.T, g *Guard, cctx *domain.ConversationContext, text string) *TurnOutcome {
	t.Helper()
	out, err := g.ProcessTurn(context.Background(), cctx, text)
	if err != nil {
		t.Fatalf("turn %q: %v", text, err)
	}
	return out
}

func TestGuard_FullConversation(t *testing.T) {
	g := newTestGuard(nil)
	cctx := startedContext(t, g, "Should I take the new job offer?")

	out := turn(t, g, cctx, "okay: 3, 7 and 5. blue, if that matters")
	if cctx.Stage != domain.StageDeepen {
		t.Fatalf("stage = %s, want deepen", cctx.Stage)
	}
	if v, _ := cctx.Input.String(domain.FieldColor); v != "blue" {
		t.Errorf("optional color not collected")
	}

	out = turn(t, g, cctx, "the character 换 and I'm an ENTP")
	if cctx.Stage != domain.StageCollect {
		t.Fatalf("stage = %s, want collect", cctx.Stage)
	}

	out = turn(t, g, cctx, "born 1992, April, the 18th, around 2pm, female")
	if cctx.Stage != domain.StageVerify {
		t.Fatalf("stage = %s, want verify (got prompt %q)", cctx.Stage, out.Prompt)
	}
	if cctx.Resolution == nil {
		t.Fatal("no resolution after reaching verify")
	}
	if len(cctx.Questions) != engine.VerificationCount {
		t.Fatalf("%d verification questions, want %d", len(cctx.Questions), engine.VerificationCount)
	}
	if out.Question == nil {
		t.Fatal("verify stage outcome carries no question")
	}

	out = turn(t, g, cctx, "yes, definitely")
	out = turn(t, g, cctx, "no, never")
	out = turn(t, g, cctx, "maybe, sort of")
	if cctx.Stage != domain.StageQA {
		t.Fatalf("stage = %s, want qa", cctx.Stage)
	}
	if out.Report == nil {
		t.Fatal("no report after verification")
	}
	if out.Report.Verdict == "" || len(out.Report.Results) == 0 {
		t.Errorf("report incomplete: %+v", out.Report)
	}
	if len(out.Report.Adjustments) == 0 {
		t.Error("answered questions produced no adjustments")
	}

	out = turn(t, g, cctx, "why that verdict?")
	if !strings.Contains(out.Prompt, out.Report.Resolution.Strategy) {
		t.Errorf("qa answer %q does not explain the strategy", out.Prompt)
	}

	out = turn(t, g, cctx, "that's all, bye")
	if !out.Completed || cctx.Stage != domain.StageCompleted {
		t.Errorf("farewell did not complete the session (stage %s)", cctx.Stage)
	}
}

func TestGuard_MissingFieldsBlockAdvancement(t *testing.T) {
	g := newTestGuard(nil)
	cctx := startedContext(t, g, "Will I pass the exam?")

	out := turn(t, g, cctx, "I like the number 7")
	if cctx.Stage != domain.StageIcebreak {
		t.Errorf("stage advanced with one number, want icebreak")
	}
	if len(out.Missing) == 0 || out.Missing[0] != domain.FieldNumbers {
		t.Errorf("missing = %v, want numbers", out.Missing)
	}
	if out.Progress == "" {
		t.Error("no progress rendered with fields outstanding")
	}
}

func TestGuard_SkipPolicyAdvancesWithReducedInput(t *testing.T) {
	g := newTestGuard(nil)
	cctx := startedContext(t, g, "Should I change jobs?")

	turn(t, g, cctx, "numbers 2 8 4")
	turn(t, g, cctx, "the word luck")
	// Year, month, day, gender land; hour is declined on its own turn.
	turn(t, g, cctx, "1990, June 12, male")
	if cctx.Stage != domain.StageCollect {
		t.Fatalf("stage = %s, want collect while hour outstanding", cctx.Stage)
	}
	out := turn(t, g, cctx, "I really can't remember")
	if cctx.Stage != domain.StageVerify {
		t.Fatalf("stage = %s, want verify after skip (prompt %q)", cctx.Stage, out.Prompt)
	}
	if hour, ok := cctx.Input.Int(domain.FieldBirthHour); !ok || hour != domain.BirthHourUnknown {
		t.Errorf("skipped hour = %v, want recorded as unknown", hour)
	}
}

func TestGuard_ModifyInvalidatesOnlyDependents(t *testing.T) {
	g := newTestGuard(nil)
	cctx := startedContext(t, g, "Should I take the offer?")
	turn(t, g, cctx, "3 7 5, feeling gold today")
	turn(t, g, cctx, "the character 进, ESTJ")
	turn(t, g, cctx, "1988, 11, 23, 7am, male")
	if cctx.Stage != domain.StageVerify {
		t.Fatalf("stage = %s, want verify", cctx.Stage)
	}

	before := make(map[string]domain.TheoryResult, len(cctx.Results))
	for k, v := range cctx.Results {
		before[k] = v
	}

	out := turn(t, g, cctx, "actually, change my birth year to 1989")
	if cctx.Stage != domain.StageVerify {
		t.Errorf("modify moved the stage to %s", cctx.Stage)
	}
	if y, _ := cctx.Input.Int(domain.FieldBirthYear); y != 1989 {
		t.Errorf("birth year = %d, want 1989", y)
	}
	if !strings.Contains(out.Prompt, "updated") {
		t.Errorf("modify ack = %q", out.Prompt)
	}
	for name, prev := range before {
		d, _ := theory.Default().Descriptor(name)
		cur, ok := cctx.Results[name]
		if !ok {
			t.Errorf("theory %s missing after modify", name)
			continue
		}
		if !d.DependsOn(domain.FieldBirthYear) && !reflect.DeepEqual(cur, prev) {
			t.Errorf("independent theory %s changed by modify", name)
		}
	}
	if cctx.Resolution == nil {
		t.Error("no re-resolution after modify")
	}
}

func TestGuard_ExtractionFallbackFillsGaps(t *testing.T) {
	mock := extract.NewMockExtractor()
	mock.ExtractResponse = map[string]any{
		domain.FieldNumbers: "6 2 9",
	}
	g := newTestGuard(mock)
	cctx := startedContext(t, g, "Will my investment pay off?")

	turn(t, g, cctx, "six, two and nine I suppose")
	if len(mock.ExtractCalls) != 1 {
		t.Fatalf("extractor calls = %d, want 1", len(mock.ExtractCalls))
	}
	if cctx.Stage != domain.StageDeepen {
		t.Errorf("stage = %s, want deepen after extraction recovered the numbers", cctx.Stage)
	}
	if nums, ok := cctx.Input.Ints(domain.FieldNumbers); !ok || len(nums) != 3 {
		t.Errorf("numbers = %v, want three from extraction", nums)
	}
}

func TestGuard_ExtractionFailureDegradesToReask(t *testing.T) {
	mock := extract.NewMockExtractor()
	mock.ExtractError = extract.ErrTimeout
	g := newTestGuard(mock)
	cctx := startedContext(t, g, "When will this end?")

	out, err := g.ProcessTurn(context.Background(), cctx, "hard to say in words")
	if err != nil {
		t.Fatalf("extraction failure surfaced as turn error: %v", err)
	}
	if len(out.Missing) == 0 {
		t.Error("degraded turn did not re-ask for missing fields")
	}
	if strings.Contains(strings.ToLower(out.Prompt), "timeout") || strings.Contains(strings.ToLower(out.Prompt), "error") {
		t.Errorf("technical failure leaked into the prompt: %q", out.Prompt)
	}
}

func TestGuard_ExtractionNeverOverwritesDeterministic(t *testing.T) {
	mock := extract.NewMockExtractor()
	mock.ExtractResponse = map[string]any{
		domain.FieldNumbers:   "1 1 1",
		domain.FieldCharacter: "shift",
	}
	g := newTestGuard(mock)
	cctx := startedContext(t, g, "Should I move cities for work?")

	// Numbers parse deterministically; character comes from the extractor.
	turn(t, g, cctx, "4 4 8 and that's it for now")
	if nums, _ := cctx.Input.Ints(domain.FieldNumbers); len(nums) != 3 || nums[0] != 4 {
		t.Errorf("numbers = %v, want the deterministic 4 4 8", nums)
	}
}

func TestGuard_AnalysisErrorPropagates(t *testing.T) {
	registry := theory.NewRegistry()
	logger := zap.NewNop()
	g := NewGuard(engine.New(registry, logger), nil, logger)
	cctx := startedContext(t, g, "anything")
	turn(t, g, cctx, "5 5 5")
	turn(t, g, cctx, "word")
	_, err := g.ProcessTurn(context.Background(), cctx, "1990 3 3 noon, male")
	if err == nil {
		t.Fatal("empty registry produced a pass")
	}
	if !errors.Is(err, engine.ErrInsufficientTheories) {
		var missing *engine.NoEligibleTheoryError
		if !errors.As(err, &missing) {
			t.Errorf("err = %v, want a selection failure", err)
		}
	}
}
