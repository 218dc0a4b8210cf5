package flow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/li2092/cyber-mantic/internal/domain"
	"github.com/li2092/cyber-mantic/internal/engine"
	"github.com/li2092/cyber-mantic/internal/theory"
)

type recordingHistory struct {
	mu       sync.Mutex
	archived []*domain.ArchivedSession
}

func (h *recordingHistory) Archive(ctx context.Context, s *domain.ArchivedSession) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.archived = append(h.archived, s)
	return nil
}

func (h *recordingHistory) FindSimilar(ctx context.Context, affinity domain.AffinityVector, category domain.QuestionCategory, limit int) ([]domain.ArchivedSession, error) {
	return nil, nil
}

func newTestManager(history domain.HistoryStore) *Manager {
	logger := zap.NewNop()
	eng := engine.New(theory.Default(), logger)
	return NewManager(NewGuard(eng, nil, logger), eng, history, time.Minute, logger)
}

func TestManager_StartAndSubmit(t *testing.T) {
	m := newTestManager(nil)
	out, err := m.StartSession("Should I take the job?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.SessionID == uuid.Nil {
		t.Fatal("no session id assigned")
	}
	if out.Stage != domain.StageIcebreak.String() {
		t.Errorf("opening stage = %s, want icebreak", out.Stage)
	}

	next, err := m.SubmitTurn(context.Background(), out.SessionID, "2, 6 and 8")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.Stage != domain.StageDeepen.String() {
		t.Errorf("stage = %s, want deepen", next.Stage)
	}
}

func TestManager_EmptyQuestionRejected(t *testing.T) {
	m := newTestManager(nil)
	if _, err := m.StartSession(""); err != ErrEmptyQuestion {
		t.Errorf("err = %v, want ErrEmptyQuestion", err)
	}
}

func TestManager_UnknownSession(t *testing.T) {
	m := newTestManager(nil)
	if _, err := m.SubmitTurn(context.Background(), uuid.New(), "hello"); err != ErrSessionNotFound {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
	if err := m.Abandon(uuid.New()); err != ErrSessionNotFound {
		t.Errorf("abandon err = %v, want ErrSessionNotFound", err)
	}
}

func TestManager_AbandonDiscardsSession(t *testing.T) {
	m := newTestManager(nil)
	out, err := m.StartSession("Will I pass?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Abandon(out.SessionID); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if _, err := m.SubmitTurn(context.Background(), out.SessionID, "3 3 3"); err != ErrSessionNotFound {
		t.Errorf("turn after abandon err = %v, want ErrSessionNotFound", err)
	}
}

func TestManager_CompletedSessionArchived(t *testing.T) {
	history := &recordingHistory{}
	m := newTestManager(history)
	out, err := m.StartSession("Should I take the new job offer?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id := out.SessionID

	ctx := context.Background()
	turns := []string{
		"3 7 5",
		"the character 进",
		"1991, March 9, 10am, female",
		"yes", "no", "not sure",
		"bye now, done",
	}
	var last *TurnOutcome
	for _, text := range turns {
		last, err = m.SubmitTurn(ctx, id, text)
		if err != nil {
			t.Fatalf("turn %q: %v", text, err)
		}
	}
	if !last.Completed {
		t.Fatalf("conversation not completed, stage %s prompt %q", last.Stage, last.Prompt)
	}

	history.mu.Lock()
	defer history.mu.Unlock()
	if len(history.archived) != 1 {
		t.Fatalf("archived %d sessions, want 1", len(history.archived))
	}
	rec := history.archived[0]
	if rec.SessionID != id || rec.Category != domain.CategoryCareer {
		t.Errorf("archived record = %+v", rec)
	}
	if len(rec.ReportJSON) == 0 {
		t.Error("archived record has no report payload")
	}
	if rec.Affinity != domain.CategoryCareer.Affinity() {
		t.Error("archived affinity vector does not match the category")
	}
}

func TestManager_ModifyFieldSurface(t *testing.T) {
	m := newTestManager(nil)
	out, err := m.StartSession("Should I change jobs?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()
	if _, err := m.SubmitTurn(ctx, out.SessionID, "1 2 3"); err != nil {
		t.Fatalf("turn: %v", err)
	}
	ack, err := m.ModifyField(ctx, out.SessionID, domain.FieldNumbers, "9 9 9")
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if ack.Stage != domain.StageDeepen.String() {
		t.Errorf("modify moved stage to %s", ack.Stage)
	}

	report, err := m.Report(out.SessionID)
	if err == nil {
		t.Errorf("report before completion = %+v, want error", report)
	}
}

func TestManager_ModifyFieldRejectsUnknownField(t *testing.T) {
	m := newTestManager(nil)
	out, err := m.StartSession("Should I change jobs?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = m.ModifyField(context.Background(), out.SessionID, "shoe_size", "42")
	var invalid *InputValidationError
	if !errors.As(err, &invalid) {
		t.Fatalf("modify unknown field: err = %v, want InputValidationError", err)
	}
	if invalid.Field != "shoe_size" {
		t.Errorf("error field = %q, want shoe_size", invalid.Field)
	}
	if !strings.Contains(invalid.Reason, domain.FieldBirthYear) {
		t.Errorf("reason %q does not list modifiable fields", invalid.Reason)
	}
}
