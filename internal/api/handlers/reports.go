package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pulsedash/pulsedash/internal/db/models"
	"github.com/pulsedash/pulsedash/internal/reports"
	"gorm.io/gorm"
)

type reportView struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	ClientID    string     `json:"client_id,omitempty"`
	MetricTypes []string   `json:"metric_types"`
	DateRange   string     `json:"date_range"`
	DateFrom    *time.Time `json:"date_from,omitempty"`
	DateTo      *time.Time `json:"date_to,omitempty"`
	Breakdown   string     `json:"breakdown"`
	Source      string     `json:"source,omitempty"`
	ShareToken  *string    `json:"share_token,omitempty"`
	ShareExpiry *time.Time `json:"share_expiry,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func toReportView(r models.Report) reportView {
	return reportView{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		ClientID:    r.ClientID,
		MetricTypes: r.Types(),
		DateRange:   r.DateRange,
		DateFrom:    r.DateFrom,
		DateTo:      r.DateTo,
		Breakdown:   r.Breakdown,
		Source:      r.Source,
		ShareToken:  r.ShareToken,
		ShareExpiry: r.ShareExpiry,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type reportPayload struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	ClientID    *string    `json:"client_id"`
	MetricTypes []string   `json:"metric_types"`
	DateRange   *string    `json:"date_range"`
	DateFrom    *time.Time `json:"date_from"`
	DateTo      *time.Time `json:"date_to"`
	Breakdown   *string    `json:"breakdown"`
	Source      *string    `json:"source"`
}

func (p reportPayload) toInput() reports.Input {
	return reports.Input{
		Name:        p.Name,
		Description: p.Description,
		ClientID:    p.ClientID,
		MetricTypes: p.MetricTypes,
		DateRange:   p.DateRange,
		DateFrom:    p.DateFrom,
		DateTo:      p.DateTo,
		Breakdown:   p.Breakdown,
		Source:      p.Source,
	}
}

// CreateReportHandler stores a new report configuration.
func CreateReportHandler(svc *reports.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload reportPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		report, err := svc.Create(accountID(r), payload.toInput())
		if errors.Is(err, reports.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			log.Printf("reports: create failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to create report")
			return
		}
		writeJSON(w, http.StatusCreated, toReportView(*report))
	}
}

// ReportsHandler lists report configurations without hydrating them.
func ReportsHandler(svc *reports.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(accountID(r))
		if err != nil {
			log.Printf("reports: list failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to list reports")
			return
		}
		views := make([]reportView, 0, len(list))
		for _, report := range list {
			views = append(views, toReportView(report))
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"reports": views,
			"count":   len(views),
		})
	}
}

// ReportHandler returns one report's configuration together with freshly
// computed data.
func ReportHandler(svc *reports.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.Get(accountID(r), chi.URLParam(r, "id"))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "Report not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load report")
			return
		}
		data, err := svc.Hydrate(report)
		if err != nil {
			log.Printf("reports: hydrate failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to compute report data")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"report": toReportView(*report),
			"data":   data,
		})
	}
}

// UpdateReportHandler patches a report configuration.
func UpdateReportHandler(svc *reports.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload reportPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		report, err := svc.Update(accountID(r), chi.URLParam(r, "id"), payload.toInput())
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "Report not found")
			return
		}
		if errors.Is(err, reports.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			log.Printf("reports: update failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to update report")
			return
		}
		writeJSON(w, http.StatusOK, toReportView(*report))
	}
}

// DeleteReportHandler removes a report.
func DeleteReportHandler(svc *reports.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.Delete(accountID(r), chi.URLParam(r, "id"))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "Report not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to delete report")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true}`))
	}
}

// ShareReportHandler mints a share link for a report.
func ShareReportHandler(svc *reports.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ExpiryDays int `json:"expiry_days"`
		}
		// Body is optional; default to 30 days.
		json.NewDecoder(r.Body).Decode(&body)
		if body.ExpiryDays <= 0 {
			body.ExpiryDays = 30
		}

		report, err := svc.GenerateShareToken(accountID(r), chi.URLParam(r, "id"), body.ExpiryDays)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "Report not found")
			return
		}
		if err != nil {
			log.Printf("reports: share failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to create share link")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"share_token":  report.ShareToken,
			"share_expiry": report.ShareExpiry,
		})
	}
}

// RevokeShareHandler invalidates all outstanding share links for a report.
func RevokeShareHandler(svc *reports.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := svc.RevokeShareToken(accountID(r), chi.URLParam(r, "id"))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "Report not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to revoke share link")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true}`))
	}
}

// ExportReportCSVHandler streams the hydrated report as a CSV download.
func ExportReportCSVHandler(svc *reports.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.Get(accountID(r), chi.URLParam(r, "id"))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "Report not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load report")
			return
		}
		data, err := svc.Hydrate(report)
		if err != nil {
			log.Printf("reports: export failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to compute report data")
			return
		}

		filename := fmt.Sprintf("%s-%s.csv", csvSlug(report.Name), time.Now().Format("2006-01-02"))
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		w.Write([]byte(reports.ToCSV(data)))
	}
}

// SharedReportHandler is the public share-link endpoint. Unknown, revoked
// and expired tokens all read as 404.
func SharedReportHandler(svc *reports.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.GetByShareToken(chi.URLParam(r, "token"))
		if err != nil {
			log.Printf("reports: shared lookup failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to load report")
			return
		}
		if report == nil {
			writeError(w, http.StatusNotFound, "Report not found")
			return
		}
		data, err := svc.Hydrate(report)
		if err != nil {
			log.Printf("reports: shared hydrate failed: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to compute report data")
			return
		}

		// Shared view exposes no account internals, just name and data.
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"name":        report.Name,
			"description": report.Description,
			"data":        data,
		})
	}
}

func csvSlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, slug)
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "report"
	}
	return slug
}
