package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	fmhttp "github.com/wikifarm/farmd/internal/adapter/http"
	fmnats "github.com/wikifarm/farmd/internal/adapter/nats"
	fmotel "github.com/wikifarm/farmd/internal/adapter/otel"
	"github.com/wikifarm/farmd/internal/adapter/postgres"
	"github.com/wikifarm/farmd/internal/adapter/ristretto"
	"github.com/wikifarm/farmd/internal/config"
	"github.com/wikifarm/farmd/internal/domain/extension"
	"github.com/wikifarm/farmd/internal/domain/setting"
	"github.com/wikifarm/farmd/internal/logger"
	"github.com/wikifarm/farmd/internal/middleware"
	"github.com/wikifarm/farmd/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"base_domain", cfg.Farm.BaseDomain,
	)

	ctx := context.Background()

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	audit, err := fmnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = audit.Close() }()
	slog.Info("audit stream ready")

	regCache, err := ristretto.New(cfg.Cache.MaxBytes)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer regCache.Close()

	metrics, err := fmotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Services ---

	store := postgres.NewStore(pool)
	prov := postgres.NewProvisioner(cfg.Provisioner)

	settings := setting.DefaultCatalog()
	extensions := extension.DefaultCatalog()
	defaults := defaultToggles(extensions)

	registrySvc := service.NewRegistryService(store, prov, audit, regCache, metrics, service.RegistryConfig{
		BaseDomain:      cfg.Farm.BaseDomain,
		Categories:      cfg.Farm.Categories,
		CacheTTL:        cfg.Cache.TTL,
		InitialSettings: defaults,
	})
	requestSvc := service.NewRequestService(store, registrySvc, audit, metrics)
	overrideSvc := service.NewOverrideService(store, registrySvc, audit, settings, extensions, defaults)
	namespaceSvc := service.NewNamespaceService(store, registrySvc, audit)
	permissionSvc := service.NewPermissionService(store, registrySvc, audit)
	activationSvc := service.NewActivationService(store, overrideSvc)

	// --- HTTP ---

	handlers := &fmhttp.Handlers{
		Registry:    registrySvc,
		Requests:    requestSvc,
		Overrides:   overrideSvc,
		Namespaces:  namespaceSvc,
		Permissions: permissionSvc,
		Activation:  activationSvc,
		Settings:    settings,
		Extensions:  extensions,
	}

	r := chi.NewRouter()

	r.Use(fmhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(middleware.RequestID)
	r.Use(fmhttp.Logger)
	r.Use(fmotel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/health", healthHandler(pool.Ping))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Actor)
		fmhttp.MountRoutes(r, handlers)
	})

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// defaultToggles builds the global default settings layer: every wiki starts
// with the default extensions switched on.
func defaultToggles(catalog extension.Catalog) map[string]json.RawMessage {
	toggles := make(map[string]json.RawMessage)
	for _, name := range extension.DefaultEnabled() {
		if e, ok := catalog.Lookup(name); ok {
			toggles[e.VarKey] = json.RawMessage("true")
		}
	}
	return toggles
}

func healthHandler(ping func(context.Context) error) http.HandlerFunc {
	type healthStatus struct {
		Status   string `json:"status"`
		Postgres string `json:"postgres"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		status := healthStatus{Status: "ok", Postgres: "ok"}
		code := http.StatusOK
		if err := ping(r.Context()); err != nil {
			status.Status = "degraded"
			status.Postgres = err.Error()
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	}
}
