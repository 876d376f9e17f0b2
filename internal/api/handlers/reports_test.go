package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pulsedash/pulsedash/internal/db/models"
)

func seedMetricRow(t *testing.T, env *testEnv, account, metricType string, date time.Time, value float64) {
	t.Helper()
	row := models.Metric{
		ID:         uuid.New().String(),
		AccountID:  account,
		MetricType: metricType,
		Value:      value,
		Date:       date,
		Source:     "google_ads",
	}
	if err := env.db.Create(&row).Error; err != nil {
		t.Fatalf("seed metric: %v", err)
	}
}

func createTestReport(t *testing.T, env *testEnv, account, body string) string {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/reports", account, strings.NewReader(body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create report: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return created.ID
}

func TestReports_CreateValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"no name", `{"metric_types":["leads"]}`},
		{"no types", `{"name":"Weekly"}`},
		{"bad range", `{"name":"Weekly","metric_types":["leads"],"date_range":"14d"}`},
		{"not json", `{{{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/reports", "acc-1", strings.NewReader(tt.body))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestReports_GetReturnsConfigAndData(t *testing.T) {
	env := newTestEnv(t)
	seedMetricRow(t, env, "acc-1", "leads", time.Now().AddDate(0, 0, -1), 12)
	id := createTestReport(t, env, "acc-1", `{"name":"Weekly","metric_types":["leads"],"date_range":"7d"}`)

	rec := env.do(t, http.MethodGet, "/api/reports/"+id, "acc-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Report struct {
			Name        string   `json:"name"`
			MetricTypes []string `json:"metric_types"`
		} `json:"report"`
		Data struct {
			Kpis  []map[string]interface{} `json:"kpis"`
			Chart []map[string]interface{} `json:"chart"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Report.Name != "Weekly" {
		t.Fatalf("name = %q", resp.Report.Name)
	}
	if len(resp.Data.Kpis) != 1 || len(resp.Data.Chart) != 1 {
		t.Fatalf("data = %+v", resp.Data)
	}
	if resp.Data.Chart[0]["leads"] != 12.0 {
		t.Fatalf("chart point = %+v", resp.Data.Chart[0])
	}
}

func TestReports_UpdateAndList(t *testing.T) {
	env := newTestEnv(t)
	id := createTestReport(t, env, "acc-1", `{"name":"Draft","metric_types":["leads"]}`)

	rec := env.do(t, http.MethodPatch, "/api/reports/"+id, "acc-1", strings.NewReader(`{"name":"Final"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status = %d, body %s", rec.Code, rec.Body.String())
	}

	list := env.do(t, http.MethodGet, "/api/reports", "acc-1", nil)
	if !strings.Contains(list.Body.String(), `"Final"`) {
		t.Fatalf("list = %s", list.Body.String())
	}
}

func TestReports_ScopedToAccount(t *testing.T) {
	env := newTestEnv(t)
	id := createTestReport(t, env, "acc-1", `{"name":"Mine","metric_types":["leads"]}`)

	if rec := env.do(t, http.MethodGet, "/api/reports/"+id, "acc-2", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("foreign read: status = %d, want 404", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/reports/"+id, "acc-2", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("foreign delete: status = %d, want 404", rec.Code)
	}
}

func TestReports_ShareLifecycle(t *testing.T) {
	env := newTestEnv(t)
	seedMetricRow(t, env, "acc-1", "leads", time.Now().AddDate(0, 0, -1), 3)
	id := createTestReport(t, env, "acc-1", `{"name":"Shared","metric_types":["leads"]}`)

	rec := env.do(t, http.MethodPost, "/api/reports/"+id+"/share", "acc-1", strings.NewReader(`{"expiry_days":7}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("share: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var share struct {
		ShareToken string `json:"share_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &share); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(share.ShareToken) != 64 {
		t.Fatalf("token = %q, want 64 hex chars", share.ShareToken)
	}

	// Public endpoint needs no account header.
	public := env.do(t, http.MethodGet, "/api/shared/reports/"+share.ShareToken, "", nil)
	if public.Code != http.StatusOK {
		t.Fatalf("public: status = %d, body %s", public.Code, public.Body.String())
	}
	if !strings.Contains(public.Body.String(), `"Shared"`) {
		t.Fatalf("public body = %s", public.Body.String())
	}
	if strings.Contains(public.Body.String(), "acc-1") {
		t.Fatalf("public body leaks account id: %s", public.Body.String())
	}

	revoke := env.do(t, http.MethodDelete, "/api/reports/"+id+"/share", "acc-1", nil)
	if revoke.Code != http.StatusOK {
		t.Fatalf("revoke: status = %d", revoke.Code)
	}
	gone := env.do(t, http.MethodGet, "/api/shared/reports/"+share.ShareToken, "", nil)
	if gone.Code != http.StatusNotFound {
		t.Fatalf("after revoke: status = %d, want 404", gone.Code)
	}
}

func TestSharedReport_UnknownTokenIs404(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/shared/reports/deadbeef", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestReports_ExportCSV(t *testing.T) {
	env := newTestEnv(t)
	seedMetricRow(t, env, "acc-1", "leads", time.Now().AddDate(0, 0, -1), 10)
	seedMetricRow(t, env, "acc-1", "spend", time.Now().AddDate(0, 0, -1), 120.5)
	id := createTestReport(t, env, "acc-1", `{"name":"Q2 Overview","metric_types":["leads","spend"]}`)

	rec := env.do(t, http.MethodGet, "/api/reports/"+id+"/export/csv", "acc-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("content type = %q", ct)
	}
	disposition := rec.Header().Get("Content-Disposition")
	if !strings.HasPrefix(disposition, `attachment; filename="q2-overview-`) {
		t.Fatalf("disposition = %q", disposition)
	}

	lines := strings.Split(rec.Body.String(), "\n")
	if lines[0] != "date,leads,spend" {
		t.Fatalf("header = %q", lines[0])
	}
	if len(lines) != 2 || !strings.HasSuffix(lines[1], ",10,120.5") {
		t.Fatalf("rows = %q", lines)
	}
}
