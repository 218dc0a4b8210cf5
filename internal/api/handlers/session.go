package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/li2092/cyber-mantic/internal/engine"
	"github.com/li2092/cyber-mantic/internal/flow"
)

type SessionHandler struct {
	mgr *flow.Manager
}

func NewSessionHandler(mgr *flow.Manager) *SessionHandler {
	return &SessionHandler{mgr: mgr}
}

type startSessionRequest struct {
	Question string `json:"question"`
}

type submitTurnRequest struct {
	Text string `json:"text"`
}

type modifyFieldRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := h.mgr.StartSession(req.Question)
	if err != nil {
		if errors.Is(err, flow.ErrEmptyQuestion) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to start session")
		return
	}

	writeJSON(w, http.StatusCreated, out)
}

func (h *SessionHandler) SubmitTurn(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	var req submitTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	out, err := h.mgr.SubmitTurn(r.Context(), id, req.Text)
	if err != nil {
		writeTurnError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *SessionHandler) ModifyField(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	var req modifyFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Field == "" {
		writeError(w, http.StatusBadRequest, "field is required")
		return
	}

	out, err := h.mgr.ModifyField(r.Context(), id, req.Field, req.Value)
	if err != nil {
		writeTurnError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *SessionHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	if err := h.mgr.Abandon(id); err != nil {
		if errors.Is(err, flow.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to abandon session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	report, err := h.mgr.Report(id)
	if err != nil {
		if errors.Is(err, flow.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// writeTurnError maps conversation errors onto HTTP statuses. Validation
// problems inside a turn are re-prompted by the guard, so anything
// surfacing here is either a missing session or an analysis failure.
func writeTurnError(w http.ResponseWriter, err error) {
	var noEligible *engine.NoEligibleTheoryError
	var invalid *flow.InputValidationError
	switch {
	case errors.Is(err, flow.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &invalid):
		writeError(w, http.StatusBadRequest, invalid.Error())
	case errors.As(err, &noEligible):
		writeError(w, http.StatusUnprocessableEntity, noEligible.Error())
	case errors.Is(err, engine.ErrInsufficientTheories), errors.Is(err, engine.ErrNoResults):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "failed to process turn")
	}
}
