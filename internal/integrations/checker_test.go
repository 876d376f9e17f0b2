package integrations

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pulsedash/pulsedash/internal/config"
	"github.com/pulsedash/pulsedash/internal/db/models"
	"github.com/pulsedash/pulsedash/internal/providers"
	"github.com/pulsedash/pulsedash/internal/vault"
)

type fakeAdapter struct {
	key         string
	checkedWith []string
	checkResult providers.CheckResult
	checkErr    error
}

func (f *fakeAdapter) Key() string { return f.key }
func (f *fakeAdapter) BuildAuthURL(state, feature, redirectURI string) string {
	return "https://fake/auth?state=" + state
}
func (f *fakeAdapter) ExchangeCode(ctx context.Context, code, redirectURI string) (*providers.Token, error) {
	return &providers.Token{AccessToken: "exchanged-" + code}, nil
}
func (f *fakeAdapter) FetchIdentity(ctx context.Context, accessToken string) (string, error) {
	return "Fake Identity", nil
}
func (f *fakeAdapter) CheckConnection(ctx context.Context, accessToken string) (providers.CheckResult, error) {
	f.checkedWith = append(f.checkedWith, accessToken)
	return f.checkResult, f.checkErr
}

type fakeRefresher struct {
	fakeAdapter
	refreshCalls int
	refreshTok   *providers.Token
	refreshErr   error
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (*providers.Token, error) {
	f.refreshCalls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshTok, nil
}

func newTestChecker(t *testing.T, adapter providers.Adapter) (*Checker, *Store, *vault.Vault) {
	t.Helper()
	store, v := newTestStore(t)
	registry := providers.NewRegistry(&config.Config{})
	if adapter != nil {
		registry.Register(adapter)
	}
	return NewChecker(store, v, registry), store, v
}

func TestCheck_NoCredentialsPingsPropertyURL(t *testing.T) {
	status := http.StatusOK
	var method string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.WriteHeader(status)
	}))
	defer ts.Close()

	checker, store, _ := newTestChecker(t, nil)
	created, err := store.Create("acc-1", CreateInput{
		Provider:           "gsc",
		ExternalPropertyID: ts.URL,
		Name:               "Example",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	res, err := checker.Check(context.Background(), "acc-1", created.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !res.OK || res.ConnectionStatus != models.ConnectionOK {
		t.Fatalf("expected ok ping, got %+v", res)
	}
	if method != http.MethodHead {
		t.Fatalf("ping must be a HEAD request, got %s", method)
	}

	// 4xx still counts as reachable; only >=500 fails.
	status = http.StatusForbidden
	res, err = checker.Check(context.Background(), "acc-1", created.ID)
	if err != nil || !res.OK {
		t.Fatalf("4xx should be ok, got %+v err=%v", res, err)
	}

	status = http.StatusServiceUnavailable
	res, err = checker.Check(context.Background(), "acc-1", created.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.OK || res.LastError != "HTTP 503" {
		t.Fatalf("expected HTTP 503 failure, got %+v", res)
	}
}

func TestCheck_NoCredentialsNoURL(t *testing.T) {
	checker, store, _ := newTestChecker(t, nil)
	created, err := store.Create("acc-1", CreateInput{Provider: "gsc", Name: "Bare"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	res, err := checker.Check(context.Background(), "acc-1", created.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.OK || res.LastError != "No credentials. Please reconnect via OAuth." {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestCheck_CorruptedCredentials(t *testing.T) {
	checker, store, _ := newTestChecker(t, nil)

	created, err := store.Upsert(UpsertInput{
		AccountID:   "acc-1",
		Provider:    "gsc",
		Name:        "Example",
		AccessToken: "at-1",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// Corrupt the stored ciphertext directly.
	if err := store.db.Model(&models.Integration{}).Where("id = ?", created.ID).
		Update("encrypted_access_token", "not-a-ciphertext").Error; err != nil {
		t.Fatalf("corrupt: %v", err)
	}

	res, err := checker.Check(context.Background(), "acc-1", created.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.OK || res.LastError != "Credentials corrupted. Please reconnect." {
		t.Fatalf("unexpected result: %+v", res)
	}

	got, _ := store.Get("acc-1", created.ID)
	if got.IsActive {
		t.Fatal("corrupted integration must be inactive")
	}
}

func TestCheck_ExpiredTokenRefreshesBeforeVerify(t *testing.T) {
	adapter := &fakeRefresher{
		fakeAdapter: fakeAdapter{key: providers.KeyGoogle, checkResult: providers.CheckResult{OK: true}},
		refreshTok:  &providers.Token{AccessToken: "at-fresh", Expiry: time.Now().Add(time.Hour)},
	}
	checker, store, v := newTestChecker(t, adapter)

	expired := time.Now().Add(-time.Minute)
	created, err := store.Upsert(UpsertInput{
		AccountID:    "acc-1",
		Provider:     "google_ads",
		Name:         "Ads",
		AccessToken:  "at-stale",
		RefreshToken: "rt-1",
		TokenExpiry:  &expired,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	res, err := checker.Check(context.Background(), "acc-1", created.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !res.OK {
		t.Fatalf("expected ok, got %+v", res)
	}
	if adapter.refreshCalls != 1 {
		t.Fatalf("expected one refresh, got %d", adapter.refreshCalls)
	}
	if len(adapter.checkedWith) != 1 || adapter.checkedWith[0] != "at-fresh" {
		t.Fatalf("verification must use the refreshed token, got %v", adapter.checkedWith)
	}

	got, _ := store.Get("acc-1", created.ID)
	at, err := v.Decrypt(got.EncryptedAccessToken)
	if err != nil || at != "at-fresh" {
		t.Fatalf("refreshed token must be persisted encrypted, got %q err=%v", at, err)
	}
	if got.TokenExpiry == nil || !got.TokenExpiry.After(time.Now()) {
		t.Fatal("new expiry must be persisted")
	}
}

func TestCheck_RefreshFailureIsTerminal(t *testing.T) {
	adapter := &fakeRefresher{
		fakeAdapter: fakeAdapter{key: providers.KeyGoogle, checkResult: providers.CheckResult{OK: true}},
		refreshErr:  &providers.Error{Status: 400, Body: `{"error":"invalid_grant"}`},
	}
	checker, store, _ := newTestChecker(t, adapter)

	expired := time.Now().Add(-time.Minute)
	created, err := store.Upsert(UpsertInput{
		AccountID:    "acc-1",
		Provider:     "google_ads",
		Name:         "Ads",
		AccessToken:  "at-stale",
		RefreshToken: "rt-dead",
		TokenExpiry:  &expired,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	res, err := checker.Check(context.Background(), "acc-1", created.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.OK || res.LastError != "Token refresh failed. Please reconnect." {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(adapter.checkedWith) != 0 {
		t.Fatal("verification must not run after a failed refresh")
	}
}

func TestCheck_FailedVerificationPersistsError(t *testing.T) {
	adapter := &fakeAdapter{
		key:         providers.KeyMeta,
		checkResult: providers.CheckResult{OK: false, Detail: "Meta token invalid or expired"},
	}
	checker, store, _ := newTestChecker(t, adapter)

	created, err := store.Upsert(UpsertInput{
		AccountID:   "acc-1",
		Provider:    "meta_social",
		Name:        "Meta",
		AccessToken: "at-1",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	res, err := checker.Check(context.Background(), "acc-1", created.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.OK || res.ConnectionStatus != models.ConnectionError {
		t.Fatalf("unexpected result: %+v", res)
	}

	got, _ := store.Get("acc-1", created.ID)
	if got.IsActive {
		t.Fatal("failed verification must deactivate the integration")
	}
	meta := got.Meta()
	if meta.ConnectionStatus != models.ConnectionError || meta.LastCheckedAt == "" {
		t.Fatalf("failed check must still record a fresh timestamp: %+v", meta)
	}
	if meta.LastError != "Meta token invalid or expired" {
		t.Fatalf("unexpected last error: %s", meta.LastError)
	}
}

func TestCheck_UnknownIntegration(t *testing.T) {
	checker, _, _ := newTestChecker(t, nil)
	if _, err := checker.Check(context.Background(), "acc-1", "missing"); err == nil {
		t.Fatal("expected not-found error")
	}
}
