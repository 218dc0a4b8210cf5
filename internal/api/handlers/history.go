package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/li2092/cyber-mantic/internal/domain"
)

const defaultSimilarLimit = 5

type HistoryHandler struct {
	history domain.HistoryStore
}

func NewHistoryHandler(history domain.HistoryStore) *HistoryHandler {
	return &HistoryHandler{history: history}
}

type similarSessionResponse struct {
	SessionID  uuid.UUID       `json:"session_id"`
	Category   string          `json:"category"`
	Question   string          `json:"question"`
	Verdict    domain.Judgment `json:"verdict"`
	Level      float64         `json:"level"`
	Confidence float64         `json:"confidence"`
	CreatedAt  time.Time       `json:"created_at"`
}

// FindSimilar returns past consultations closest to the requested
// category's affinity vector.
func (h *HistoryHandler) FindSimilar(w http.ResponseWriter, r *http.Request) {
	categoryStr := r.URL.Query().Get("category")
	if !domain.ValidCategory(categoryStr) {
		writeError(w, http.StatusBadRequest, "invalid or missing category")
		return
	}
	category := domain.QuestionCategory(categoryStr)

	limit := defaultSimilarLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 50 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 50")
			return
		}
		limit = n
	}

	sessions, err := h.history.FindSimilar(r.Context(), category.Affinity(), category, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query history")
		return
	}

	resp := make([]similarSessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, similarSessionResponse{
			SessionID:  s.SessionID,
			Category:   string(s.Category),
			Question:   s.Question,
			Verdict:    s.Verdict,
			Level:      s.Level,
			Confidence: s.Confidence,
			CreatedAt:  s.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"sessions": resp})
}
