package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/li2092/cyber-mantic/internal/api/handlers"
	mw "github.com/li2092/cyber-mantic/internal/api/middleware"
	"github.com/li2092/cyber-mantic/internal/buildconfig"
	"github.com/li2092/cyber-mantic/internal/config"
	"github.com/li2092/cyber-mantic/internal/domain"
	"github.com/li2092/cyber-mantic/internal/engine"
	"github.com/li2092/cyber-mantic/internal/extract"
	"github.com/li2092/cyber-mantic/internal/flow"
	"github.com/li2092/cyber-mantic/internal/store"
	"github.com/li2092/cyber-mantic/internal/theory"
)

// App holds the router plus the session manager for lifecycle management.
type App struct {
	Router       *chi.Mux
	Manager      *flow.Manager
	Engine       *engine.Engine
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

// NewApp wires the divination engine, conversation flow and HTTP surface.
// db may be nil; consultations are then kept in memory only and the
// history endpoints return empty results.
func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	var history domain.HistoryStore
	if db != nil {
		history = store.NewHistoryStore(db)
	} else {
		history = store.NewNoopHistoryStore()
		logger.Info("no database configured, session history disabled")
	}

	extractor, err := extract.NewExtractor(config.ExtractProvider(), config.ExtractAPIKey())
	if err != nil {
		logger.Warn("extractor initialization failed, deterministic validation only",
			zap.String("provider", config.ExtractProvider()), zap.Error(err))
	} else if extractor != nil {
		logger.Info("extractor initialized", zap.String("provider", config.ExtractProvider()))
	}

	registry := theory.Default()
	eng := engine.New(registry, logger)

	// Deployment tunables override the engine defaults.
	sel := eng.Selector()
	sel.MaxTheories = config.MaxTheories()
	sel.MinTheories = config.MinTheories()
	res := eng.Resolver()
	res.EpsilonConsistent = config.EpsilonConsistent()
	res.EpsilonMinor = config.EpsilonMinor()
	res.EpsilonSignificant = config.EpsilonSignificant()
	res.ConfidenceExponent = config.ConfidenceExponent()

	guard := flow.NewGuard(eng, extractor, logger)
	guard.ExtractTimeout = config.ExtractTimeout()
	mgr := flow.NewManager(guard, eng, history, config.SessionTTL(), logger)

	sessionHandler := handlers.NewSessionHandler(mgr)
	historyHandler := handlers.NewHistoryHandler(history)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Manager:   mgr,
		Engine:    eng,
		startTime: time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())

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

	return app
}

// NewRouter returns just the chi.Mux for callers that manage nothing else.
func NewRouter(db *pgxpool.Pool, logger *zap.Logger) *chi.Mux {
	return NewApp(db, logger).Router
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
			"version":    buildconfig.Version(),
			"commit":     buildconfig.Commit(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and clients satisfy interfaces at compile time.
var (
	_ domain.HistoryStore = (*store.HistoryStore)(nil)
	_ domain.HistoryStore = (*store.NoopHistoryStore)(nil)
	_ domain.Extractor    = (*extract.AnthropicExtractor)(nil)
	_ domain.Extractor    = (*extract.OpenAIExtractor)(nil)
	_ domain.Extractor    = (*extract.MockExtractor)(nil)
)
