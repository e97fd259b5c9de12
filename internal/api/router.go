package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/axisfin/conductor/internal/api/handlers"
	mw "github.com/axisfin/conductor/internal/api/middleware"
	"github.com/axisfin/conductor/internal/buildconfig"
	"github.com/axisfin/conductor/internal/config"
	"github.com/axisfin/conductor/internal/credentials"
	"github.com/axisfin/conductor/internal/domain"
	"github.com/axisfin/conductor/internal/metrics"
	agentruntime "github.com/axisfin/conductor/internal/runtime"
	"github.com/axisfin/conductor/internal/service"
	"github.com/axisfin/conductor/internal/state"
	"github.com/axisfin/conductor/internal/store"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router   *chi.Mux
	Rollover *service.RolloverService
}

// NewApp wires stores, services and handlers into a ready-to-serve router.
// db may be nil, in which case tenant auth falls back to the configured
// static service key and provider keys are read from the environment.
func NewApp(db *pgxpool.Pool, logger *zap.Logger) (*App, error) {
	stateStore := state.NewStore()

	source, err := credentials.NewSource(config.CredentialsBackend(), db, config.StaticProviderKeys())
	if err != nil {
		return nil, fmt.Errorf("credentials backend: %w", err)
	}
	creds := credentials.NewCachedSource(source, config.CredentialCacheTTL())

	rt, err := agentruntime.New(config.AgentRuntime(), config.AgentRuntimeURL())
	if err != nil {
		return nil, fmt.Errorf("agent runtime: %w", err)
	}

	// Services
	lifecycleSvc := service.NewLifecycleService(stateStore, creds, rt, logger)
	orchestratorSvc := service.NewOrchestrator(stateStore, creds, rt, logger)
	rolloverSvc := service.NewRolloverService(stateStore, logger)

	// Handlers
	agentHandler := handlers.NewAgentHandler(lifecycleSvc)
	documentHandler := handlers.NewDocumentHandler(orchestratorSvc)
	statsHandler := handlers.NewStatsHandler(lifecycleSvc)

	r := chi.NewRouter()
	app := &App{
		Router:   r,
		Rollover: rolloverSvc,
	}

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Metrics)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	// Health and Prometheus metrics (no auth)
	r.Get("/health", healthHandler(db))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Process-wide aggregates (no auth, no per-tenant detail)
	r.Get("/v1/system/stats", statsHandler.Global)

	var auth func(http.Handler) http.Handler
	if db != nil {
		tenantStore := store.NewTenantStore(db)
		tenantHandler := handlers.NewTenantHandler(tenantStore)

		// Tenant creation (no auth, bootstrap endpoint)
		r.Post("/v1/tenants", tenantHandler.Create)

		auth = mw.APIKeyAuth(tenantStore)
	} else {
		serviceKey := config.ServiceAPIKey()
		if serviceKey == "" {
			return nil, errors.New("SERVICE_API_KEY is required when no database is configured")
		}
		auth = mw.StaticKeyAuth(serviceKey, staticTenant())
	}

	// Authenticated routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(auth)

		r.Route("/agents", func(r chi.Router) {
			r.Post("/initialize", agentHandler.Initialize)
			r.Get("/", agentHandler.List)
			r.Route("/{agentType}", func(r chi.Router) {
				r.Get("/", agentHandler.Get)
				r.Post("/start", agentHandler.Start)
				r.Post("/stop", agentHandler.Stop)
				r.Post("/test", agentHandler.Test)
			})
		})

		r.Post("/documents/process", documentHandler.Process)
		r.Post("/questions", documentHandler.Ask)
		r.Get("/stats", statsHandler.Tenant)
	})

	return app, nil
}

// staticTenant is the synthetic tenant all requests resolve to when running
// without a database. Agent state lives in memory for the process lifetime,
// so a per-process ID is as stable as the state it keys.
func staticTenant() *domain.Tenant {
	now := time.Now().UTC()
	return &domain.Tenant{
		ID:        uuid.New(),
		Name:      "default",
		CreatedAt: now,
		UpdatedAt: now,
	}
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
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"version": buildconfig.Version(),
		})
	}
}

// Ensure stores, sources and runtimes satisfy interfaces at compile time.
var (
	_ domain.TenantStore      = (*store.TenantStore)(nil)
	_ domain.CredentialSource = (*credentials.PostgresSource)(nil)
	_ domain.CredentialSource = (*credentials.StaticSource)(nil)
	_ domain.CredentialSource = (*credentials.CachedSource)(nil)
	_ domain.AgentRuntime     = (*agentruntime.Simulated)(nil)
	_ domain.AgentRuntime     = (*agentruntime.HTTPRuntime)(nil)
)
