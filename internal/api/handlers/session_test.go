package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/li2092/cyber-mantic/internal/domain"
	"github.com/li2092/cyber-mantic/internal/engine"
	"github.com/li2092/cyber-mantic/internal/flow"
	"github.com/li2092/cyber-mantic/internal/store"
	"github.com/li2092/cyber-mantic/internal/theory"
)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	logger := zap.NewNop()
	eng := engine.New(theory.Default(), logger)
	guard := flow.NewGuard(eng, nil, logger)
	mgr := flow.NewManager(guard, eng, store.NewNoopHistoryStore(), time.Minute, logger)

	sessionHandler := NewSessionHandler(mgr)
	historyHandler := NewHistoryHandler(store.NewNoopHistoryStore())

	r := chi.NewRouter()
	r.Route("/v1", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Start)
			r.Route("/{id}", func(r chi.Router) {
				r.Post("/turns", sessionHandler.SubmitTurn)
				r.Patch("/fields", sessionHandler.ModifyField)
				r.Delete("/", sessionHandler.Abandon)
				r.Get("/report", sessionHandler.GetReport)
			})
		})
		r.Get("/history/similar", historyHandler.FindSimilar)
	})
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSessionStart(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/sessions", map[string]string{
		"question": "should I take the new job offer",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	var out flow.TurnOutcome
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	assert.NotEqual(t, uuid.Nil, out.SessionID)
	assert.Equal(t, "icebreak", out.Stage)
	assert.NotEmpty(t, out.Prompt)
}

func TestSessionStartRejectsEmptyQuestion(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/sessions", map[string]string{"question": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitTurnUnknownSession(t *testing.T) {
	r := newTestRouter(t)

	path := fmt.Sprintf("/v1/sessions/%s/turns", uuid.New())
	rec := doJSON(t, r, http.MethodPost, path, map[string]string{"text": "3, 7, 5"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitTurnInvalidID(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/sessions/not-a-uuid/turns", map[string]string{"text": "hi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitTurnAdvancesStage(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/sessions", map[string]string{
		"question": "will my startup succeed",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
	var start flow.TurnOutcome
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&start))

	path := fmt.Sprintf("/v1/sessions/%s/turns", start.SessionID)
	rec = doJSON(t, r, http.MethodPost, path, map[string]string{"text": "3, 7 and 5, and I like blue"})
	assert.Equal(t, http.StatusOK, rec.Code)

	var out flow.TurnOutcome
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	assert.Equal(t, "deepen", out.Stage)
}

func TestAbandonThenGone(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/sessions", map[string]string{
		"question": "is this a good year to move",
	})
	var start flow.TurnOutcome
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&start))

	path := fmt.Sprintf("/v1/sessions/%s", start.SessionID)
	rec = doJSON(t, r, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, r, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportBeforeCompletion(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/sessions", map[string]string{
		"question": "will the deal close",
	})
	var start flow.TurnOutcome
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&start))

	rec = doJSON(t, r, http.MethodGet, fmt.Sprintf("/v1/sessions/%s/report", start.SessionID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestModifyFieldRequiresField(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/sessions", map[string]string{
		"question": "should I change careers",
	})
	var start flow.TurnOutcome
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&start))

	path := fmt.Sprintf("/v1/sessions/%s/fields", start.SessionID)
	rec = doJSON(t, r, http.MethodPatch, path, map[string]string{"field": "", "value": "1990"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPatch, path, map[string]string{"field": "shoe_size", "value": "42"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var errResp map[string]string
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
	assert.Contains(t, errResp["error"], "modifiable field")

	rec = doJSON(t, r, http.MethodPatch, path, map[string]string{"field": domain.FieldBirthYear, "value": "1990"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFindSimilarValidation(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/v1/history/similar", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/v1/history/similar?category=career&limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/v1/history/similar?category=career", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Sessions []similarSessionResponse `json:"sessions"`
	}
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Empty(t, resp.Sessions)
}
