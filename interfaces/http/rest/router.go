package rest

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mirror-backend/application/draft"
	"mirror-backend/application/ports"
	"mirror-backend/application/services"
	"mirror-backend/application/state"
	"mirror-backend/infrastructure/config"
	"mirror-backend/interfaces/http/rest/handlers"
	"mirror-backend/interfaces/http/rest/middleware"
	"mirror-backend/pkg/observability"
)

// Router creates and configures the HTTP router
type Router struct {
	manager  *state.Manager
	sessions *draft.Sessions
	backups  *services.BackupService
	store    ports.Store
	cfg      *config.Config
	metrics  *observability.Collector
	ws       http.Handler
	logger   *zap.Logger
}

// NewRouter creates a new router instance. The websocket handler is optional;
// when nil the /ws route is not mounted.
func NewRouter(
	manager *state.Manager,
	sessions *draft.Sessions,
	backups *services.BackupService,
	store ports.Store,
	cfg *config.Config,
	metrics *observability.Collector,
	ws http.Handler,
	logger *zap.Logger,
) *Router {
	return &Router{
		manager:  manager,
		sessions: sessions,
		backups:  backups,
		store:    store,
		cfg:      cfg,
		metrics:  metrics,
		ws:       ws,
		logger:   logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.cfg.EnableMetrics {
		router.Use(middleware.Metrics(rt.metrics))
	}

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health checks
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	if rt.cfg.EnableMetrics && rt.metrics != nil {
		router.Handle("/metrics", promhttp.HandlerFor(rt.metrics.Registry(), promhttp.HandlerOpts{}))
	}

	if rt.ws != nil {
		router.Handle("/ws", rt.ws)
	}

	router.Route("/api", func(r chi.Router) {
		r.Route("/reflections", func(r chi.Router) {
			reflectionHandler := handlers.NewReflectionHandler(rt.manager, rt.logger)
			r.Get("/", reflectionHandler.ListReflections)
			r.Post("/", reflectionHandler.CreateReflection)
			r.Get("/{reflectionID}", reflectionHandler.GetReflection)
			r.Put("/{reflectionID}", reflectionHandler.UpdateReflection)
			r.Delete("/{reflectionID}", reflectionHandler.DeleteReflection)
		})

		r.Route("/threads", func(r chi.Router) {
			threadHandler := handlers.NewThreadHandler(rt.manager, rt.logger)
			r.Get("/", threadHandler.ListThreads)
			r.Post("/", threadHandler.CreateThread)
			r.Get("/{threadID}", threadHandler.GetThread)
			r.Put("/{threadID}", threadHandler.RenameThread)
			r.Delete("/{threadID}", threadHandler.DeleteThread)
			r.Get("/{threadID}/reflections", threadHandler.GetThreadReflections)
			r.Post("/{threadID}/reflections", threadHandler.AddReflection)
		})

		r.Route("/axes", func(r chi.Router) {
			axisHandler := handlers.NewAxisHandler(rt.manager, rt.logger)
			r.Get("/", axisHandler.ListAxes)
			r.Post("/", axisHandler.CreateAxis)
			r.Get("/{axisID}", axisHandler.GetAxis)
			r.Put("/{axisID}", axisHandler.UpdateAxis)
			r.Delete("/{axisID}", axisHandler.DeleteAxis)
		})

		settingsHandler := handlers.NewSettingsHandler(rt.manager, rt.logger)
		r.Get("/settings", settingsHandler.GetSettings)
		r.Put("/settings", settingsHandler.UpdateSettings)
		r.Put("/context", settingsHandler.UpdateContext)
		r.Get("/state", settingsHandler.GetState)

		dataHandler := handlers.NewDataHandler(rt.manager, rt.backups, rt.logger)
		r.Route("/data", func(r chi.Router) {
			r.Get("/export", dataHandler.Export)
			r.Post("/import", dataHandler.Import)
			r.Post("/clear", dataHandler.Clear)
		})

		r.Route("/backups", func(r chi.Router) {
			r.Get("/", dataHandler.ListBackups)
			r.Post("/", dataHandler.CreateBackup)
			r.Post("/prune", dataHandler.PruneBackups)
			r.Get("/{slot}", dataHandler.GetBackup)
			r.Delete("/{slot}", dataHandler.DeleteBackup)
			r.Post("/{slot}/restore", dataHandler.RestoreBackup)
		})

		r.Route("/drafts", func(r chi.Router) {
			draftHandler := handlers.NewDraftHandler(rt.manager, rt.sessions, rt.logger)
			r.Post("/{reflectionID}", draftHandler.Open)
			r.Delete("/{reflectionID}", draftHandler.Close)
			r.Post("/{reflectionID}/input", draftHandler.Input)
			r.Post("/{reflectionID}/undo", draftHandler.Undo)
			r.Post("/{reflectionID}/redo", draftHandler.Redo)
			r.Post("/{reflectionID}/save", draftHandler.Save)
			r.Get("/{reflectionID}/recovery", draftHandler.Recovery)
			r.Post("/{reflectionID}/recovery/accept", draftHandler.AcceptRecovery)
		})
	})

	return router
}

// healthCheck reports liveness only; the process is up
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck reports whether the state manager can serve traffic.
// Degraded still answers reads, so it stays ready but says so.
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	health := rt.manager.Health()

	body := map[string]string{"status": health.Status.String()}
	if health.Reason != "" {
		body["reason"] = health.Reason
	}
	if reporter, ok := rt.store.(interface{ State() string }); ok {
		body["storage"] = reporter.State()
	}

	status := http.StatusOK
	if health.Status == state.StatusLoading {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
