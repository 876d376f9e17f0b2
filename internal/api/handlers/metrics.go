package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/pulsedash/pulsedash/internal/metrics"
)

// MetricsHandler serves the dashboard aggregation: KPI comparisons plus the
// daily chart series for the requested window.
func MetricsHandler(store *metrics.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		window := metrics.ResolvePreset(query.Get("range"), time.Now())
		if from, ok := parseDate(query.Get("from")); ok {
			window.From = from
		}
		if to, ok := parseDate(query.Get("to")); ok {
			window.To = to
		}
		if window.From.After(window.To) {
			window.From, window.To = window.To, window.From
		}

		var types []string
		if raw := query.Get("types"); raw != "" {
			for _, t := range strings.Split(raw, ",") {
				if t = strings.TrimSpace(t); t != "" {
					types = append(types, t)
				}
			}
		}

		filter := metrics.Filter{
			AccountID: accountID(r),
			ClientID:  query.Get("client_id"),
			Types:     types,
			From:      window.From,
			To:        window.To,
			Source:    query.Get("source"),
		}

		kpis, err := store.KpiSummaries(filter)
		if err != nil {
			log.Printf("metrics: kpi query failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to load metrics")
			return
		}
		rows, err := store.Query(filter)
		if err != nil {
			log.Printf("metrics: query failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to load metrics")
			return
		}

		// No type filter: chart every type observed in the window, in
		// first-seen order, matching the KPI side.
		chartTypes := types
		if len(chartTypes) == 0 {
			seen := map[string]bool{}
			for _, row := range rows {
				if !seen[row.MetricType] {
					seen[row.MetricType] = true
					chartTypes = append(chartTypes, row.MetricType)
				}
			}
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"kpis":  kpis,
			"chart": metrics.ToChartSeries(rows, chartTypes),
			"from":  window.From,
			"to":    window.To,
		})
	}
}

// MetricSourcesHandler lists the distinct sources the account has data from.
func MetricSourcesHandler(store *metrics.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sources, err := store.AvailableSources(accountID(r))
		if err != nil {
			log.Printf("metrics: sources query failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to load sources")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"sources": sources})
	}
}

func parseDate(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, true
	}
	return time.Time{}, false
}
