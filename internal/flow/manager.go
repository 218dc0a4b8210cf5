package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/li2092/cyber-mantic/internal/domain"
	"github.com/li2092/cyber-mantic/internal/engine"
)

const (
	DefaultSessionTTL      = 30 * time.Minute
	DefaultCleanupInterval = 10 * time.Minute
)

var (
	ErrSessionNotFound = errors.New("session not found or expired")
	ErrEmptyQuestion   = errors.New("question must not be empty")
)

// Manager owns the session registry. Each session's context is mutated by
// exactly one goroutine at a time via a per-session lock; expired sessions
// are evicted by the cache and abandoned ones removed eagerly.
type Manager struct {
	guard    *Guard
	engine   *engine.Engine
	history  domain.HistoryStore
	sessions *gocache.Cache
	logger   *zap.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewManager(guard *Guard, eng *engine.Engine, history domain.HistoryStore, ttl time.Duration, logger *zap.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	m := &Manager{
		guard:    guard,
		engine:   eng,
		history:  history,
		sessions: gocache.New(ttl, DefaultCleanupInterval),
		logger:   logger,
		locks:    make(map[uuid.UUID]*sync.Mutex),
	}
	m.sessions.OnEvicted(func(key string, _ any) {
		m.mu.Lock()
		if id, err := uuid.Parse(key); err == nil {
			delete(m.locks, id)
		}
		m.mu.Unlock()
	})
	return m
}

// StartSession creates a context for the question, detecting the category
// from the question text, and returns the opening outcome.
func (m *Manager) StartSession(question string) (*TurnOutcome, error) {
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	cctx := domain.NewConversationContext(question, DetectCategory(question))
	m.sessions.SetDefault(cctx.ID.String(), cctx)

	m.logger.Info("session started",
		zap.String("session_id", cctx.ID.String()),
		zap.String("category", string(cctx.Input.Category())))
	return m.guard.Greeting(cctx), nil
}

// SubmitTurn feeds one user reply through the guard.
func (m *Manager) SubmitTurn(ctx context.Context, sessionID uuid.UUID, text string) (*TurnOutcome, error) {
	cctx, unlock, err := m.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	out, err := m.guard.ProcessTurn(ctx, cctx, text)
	if err != nil {
		return nil, err
	}
	if out.Completed && cctx.Report != nil {
		m.archive(ctx, cctx)
	}
	return out, nil
}

// ModifyField is the explicit out-of-band correction surface; it bypasses
// free-text modify detection.
func (m *Manager) ModifyField(ctx context.Context, sessionID uuid.UUID, field, raw string) (*TurnOutcome, error) {
	cctx, unlock, err := m.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	return m.guard.handleModify(ctx, cctx, field, raw)
}

// Abandon discards the session. Partial results are dropped, never
// archived as final.
func (m *Manager) Abandon(sessionID uuid.UUID) error {
	if _, found := m.sessions.Get(sessionID.String()); !found {
		return ErrSessionNotFound
	}
	m.sessions.Delete(sessionID.String())
	m.logger.Info("session abandoned", zap.String("session_id", sessionID.String()))
	return nil
}

// Report returns the finished report for a session, if one exists yet.
func (m *Manager) Report(sessionID uuid.UUID) (*domain.ComprehensiveReport, error) {
	cctx, unlock, err := m.acquire(sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	if cctx.Report == nil {
		return nil, fmt.Errorf("session %s has no report yet (stage %s)", sessionID, cctx.Stage)
	}
	return cctx.Report, nil
}

func (m *Manager) acquire(sessionID uuid.UUID) (*domain.ConversationContext, func(), error) {
	v, found := m.sessions.Get(sessionID.String())
	if !found {
		return nil, nil, ErrSessionNotFound
	}
	cctx := v.(*domain.ConversationContext)

	m.mu.Lock()
	lock, ok := m.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[sessionID] = lock
	}
	m.mu.Unlock()

	lock.Lock()
	// Touch the TTL so an active conversation does not expire mid-turn.
	m.sessions.SetDefault(sessionID.String(), cctx)
	return cctx, lock.Unlock, nil
}

// archive persists the completed session's report for later similarity
// lookups. Archival failure never fails the turn.
func (m *Manager) archive(ctx context.Context, cctx *domain.ConversationContext) {
	if m.history == nil {
		return
	}
	reportJSON, err := json.Marshal(cctx.Report)
	if err != nil {
		m.logger.Error("report marshal failed, session not archived",
			zap.String("session_id", cctx.ID.String()), zap.Error(err))
		return
	}
	record := &domain.ArchivedSession{
		SessionID:  cctx.ID,
		Category:   cctx.Input.Category(),
		Question:   cctx.Input.Question(),
		Verdict:    cctx.Report.Verdict,
		Level:      cctx.Report.Level,
		Confidence: cctx.Report.Confidence,
		Affinity:   cctx.Input.Category().Affinity(),
		ReportJSON: reportJSON,
		CreatedAt:  cctx.Report.CreatedAt,
	}
	if err := m.history.Archive(ctx, record); err != nil {
		m.logger.Error("session archive failed",
			zap.String("session_id", cctx.ID.String()), zap.Error(err))
		return
	}
	m.logger.Info("session archived", zap.String("session_id", cctx.ID.String()))
}
