package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/pulsedash/pulsedash/internal/api/handlers"
	"github.com/pulsedash/pulsedash/internal/api/middleware"
	"github.com/pulsedash/pulsedash/internal/auth/state"
	"github.com/pulsedash/pulsedash/internal/config"
	"github.com/pulsedash/pulsedash/internal/db"
	"github.com/pulsedash/pulsedash/internal/integrations"
	"github.com/pulsedash/pulsedash/internal/metrics"
	"github.com/pulsedash/pulsedash/internal/providers"
	"github.com/pulsedash/pulsedash/internal/providers/catalog"
	"github.com/pulsedash/pulsedash/internal/reports"
	"github.com/pulsedash/pulsedash/internal/vault"
	"github.com/pulsedash/pulsedash/internal/version"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	database, err := db.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	credVault, err := vault.New(cfg.EncryptionSecret)
	if err != nil {
		log.Fatalf("Failed to initialize credential vault: %v", err)
	}

	cat := catalog.Default()
	if cfg.Catalog != "" {
		cat, err = catalog.Load(cfg.Catalog)
		if err != nil {
			log.Fatalf("Failed to load provider catalog %s: %v", cfg.Catalog, err)
		}
	}

	signer := state.NewSigner(cfg.SigningSecret)
	registry := providers.NewRegistry(cfg)

	integrationStore := integrations.NewStore(database, credVault)
	checker := integrations.NewChecker(integrationStore, credVault, registry)
	metricStore := metrics.NewStore(database)
	reportService := reports.NewService(database, metricStore)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// ============================================
	// Public Routes (No Account Scope)
	// ============================================

	r.Get("/healthz", handlers.HealthHandler())

	// OAuth callback: the account travels inside the signed state token
	r.Get("/api/auth/callback/{provider}", handlers.CallbackHandler(cfg, registry, signer, integrationStore, cat))

	// Anonymous share links
	r.Get("/api/shared/reports/{token}", handlers.SharedReportHandler(reportService))

	// ============================================
	// Account-Scoped Routes
	// ============================================

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.AccountScope)

		// Integration lifecycle
		r.Get("/integrations", handlers.IntegrationsHandler(integrationStore))
		r.Post("/integrations", handlers.CreateIntegrationHandler(integrationStore))
		r.Get("/integrations/connect/{provider}", handlers.ConnectHandler(cfg, registry, signer))
		r.Get("/integrations/{id}", handlers.IntegrationHandler(integrationStore))
		r.Delete("/integrations/{id}", handlers.DeleteIntegrationHandler(integrationStore))
		r.Post("/integrations/{id}/check", handlers.CheckIntegrationHandler(checker))
		r.Post("/integrations/{id}/sync", handlers.SyncIntegrationHandler(integrationStore, database))

		// Metrics
		r.Get("/metrics", handlers.MetricsHandler(metricStore))
		r.Get("/metrics/sources", handlers.MetricSourcesHandler(metricStore))

		// Reports
		r.Get("/reports", handlers.ReportsHandler(reportService))
		r.Post("/reports", handlers.CreateReportHandler(reportService))
		r.Get("/reports/{id}", handlers.ReportHandler(reportService))
		r.Patch("/reports/{id}", handlers.UpdateReportHandler(reportService))
		r.Delete("/reports/{id}", handlers.DeleteReportHandler(reportService))
		r.Post("/reports/{id}/share", handlers.ShareReportHandler(reportService))
		r.Delete("/reports/{id}/share", handlers.RevokeShareHandler(reportService))
		r.Get("/reports/{id}/export/csv", handlers.ExportReportCSVHandler(reportService))

		// Provider catalog
		r.Get("/providers", handlers.ProvidersHandler(cat, registry, integrationStore))
	})

	addr := cfg.Host + ":" + cfg.Port
	log.Printf("PulseDash %s listening on http://%s", version.Version, addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
