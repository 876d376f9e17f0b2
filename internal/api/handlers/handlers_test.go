package handlers

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/go-chi/chi/v5"
	"github.com/pulsedash/pulsedash/internal/api/middleware"
	"github.com/pulsedash/pulsedash/internal/auth/state"
	"github.com/pulsedash/pulsedash/internal/config"
	"github.com/pulsedash/pulsedash/internal/db/models"
	"github.com/pulsedash/pulsedash/internal/integrations"
	"github.com/pulsedash/pulsedash/internal/metrics"
	"github.com/pulsedash/pulsedash/internal/providers"
	"github.com/pulsedash/pulsedash/internal/providers/catalog"
	"github.com/pulsedash/pulsedash/internal/reports"
	"github.com/pulsedash/pulsedash/internal/vault"
	"gorm.io/gorm"
)

const (
	testSigningSecret    = "handler-test-signing-secret-32-b"
	testEncryptionSecret = "handler-test-encryption-key-32-b"
)

// stubAdapter is a canned provider for handler tests.
type stubAdapter struct {
	key         string
	exchangeTok *providers.Token
	exchangeErr error
	identity    string
	identityErr error
}

func (s *stubAdapter) Key() string { return s.key }
func (s *stubAdapter) BuildAuthURL(state, feature, redirectURI string) string {
	return "https://consent.example.com/auth?state=" + state + "&feature=" + feature
}
func (s *stubAdapter) ExchangeCode(ctx context.Context, code, redirectURI string) (*providers.Token, error) {
	if s.exchangeErr != nil {
		return nil, s.exchangeErr
	}
	if s.exchangeTok != nil {
		return s.exchangeTok, nil
	}
	return &providers.Token{AccessToken: "exchanged-" + code}, nil
}
func (s *stubAdapter) FetchIdentity(ctx context.Context, accessToken string) (string, error) {
	return s.identity, s.identityErr
}
func (s *stubAdapter) CheckConnection(ctx context.Context, accessToken string) (providers.CheckResult, error) {
	return providers.CheckResult{OK: true}, nil
}

type testEnv struct {
	cfg      *config.Config
	db       *gorm.DB
	signer   *state.Signer
	registry *providers.Registry
	store    *integrations.Store
	reports  *reports.Service
	router   chi.Router
}

// testDSN names a per-test shared in-memory database so every pooled
// connection sees the same tables.
func testDSN(t *testing.T) string {
	t.Helper()
	return "file:" + strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "?mode=memory&cache=shared"
}

// newTestEnv wires the full route table against an in-memory database and
// an empty provider registry; tests register stub adapters as needed.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(testDSN(t)), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.Integration{}, &models.Metric{}, &models.Report{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	credVault, err := vault.New(testEncryptionSecret)
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}

	cfg := &config.Config{AppURL: "http://app.test"}
	signer := state.NewSigner(testSigningSecret)
	registry := providers.NewRegistry(cfg)
	cat := catalog.Default()

	store := integrations.NewStore(conn, credVault)
	checker := integrations.NewChecker(store, credVault, registry)
	metricStore := metrics.NewStore(conn)
	reportService := reports.NewService(conn, metricStore)

	r := chi.NewRouter()
	r.Get("/api/auth/callback/{provider}", CallbackHandler(cfg, registry, signer, store, cat))
	r.Get("/api/shared/reports/{token}", SharedReportHandler(reportService))
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.AccountScope)
		r.Get("/integrations", IntegrationsHandler(store))
		r.Post("/integrations", CreateIntegrationHandler(store))
		r.Get("/integrations/connect/{provider}", ConnectHandler(cfg, registry, signer))
		r.Get("/integrations/{id}", IntegrationHandler(store))
		r.Delete("/integrations/{id}", DeleteIntegrationHandler(store))
		r.Post("/integrations/{id}/check", CheckIntegrationHandler(checker))
		r.Post("/integrations/{id}/sync", SyncIntegrationHandler(store, conn))
		r.Get("/metrics", MetricsHandler(metricStore))
		r.Get("/metrics/sources", MetricSourcesHandler(metricStore))
		r.Get("/reports", ReportsHandler(reportService))
		r.Post("/reports", CreateReportHandler(reportService))
		r.Get("/reports/{id}", ReportHandler(reportService))
		r.Patch("/reports/{id}", UpdateReportHandler(reportService))
		r.Delete("/reports/{id}", DeleteReportHandler(reportService))
		r.Post("/reports/{id}/share", ShareReportHandler(reportService))
		r.Delete("/reports/{id}/share", RevokeShareHandler(reportService))
		r.Get("/reports/{id}/export/csv", ExportReportCSVHandler(reportService))
		r.Get("/providers", ProvidersHandler(cat, registry, store))
	})

	return &testEnv{
		cfg:      cfg,
		db:       conn,
		signer:   signer,
		registry: registry,
		store:    store,
		reports:  reportService,
		router:   r,
	}
}

// do issues a request through the full router as the given account. An
// empty account sends no scope header at all.
func (e *testEnv) do(t *testing.T, method, target, account string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if account != "" {
		req.Header.Set(middleware.HeaderAccountID, account)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}
