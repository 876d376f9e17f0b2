// Package reports handles report configuration CRUD, on-read data hydration,
// CSV export, and share-token access. Reports store configuration only; the
// data behind them is recomputed on every read.
package reports

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pulsedash/pulsedash/internal/db/models"
	"github.com/pulsedash/pulsedash/internal/metrics"
	"gorm.io/gorm"
)

// Input validation bounds, mirrored by the API layer.
const (
	maxNameLen        = 120
	maxDescriptionLen = 500
)

var validRanges = map[string]bool{
	models.Range7d:     true,
	models.Range30d:    true,
	models.Range90d:    true,
	models.Range12m:    true,
	models.RangeCustom: true,
}

// ErrInvalidInput wraps all validation failures; the API maps it to 400.
var ErrInvalidInput = errors.New("reports: invalid input")

// Input is a report create/update payload. Nil-able fields distinguish
// "leave unchanged" from "set empty" on update.
type Input struct {
	Name        *string
	Description *string
	ClientID    *string
	MetricTypes []string
	DateRange   *string
	DateFrom    *time.Time
	DateTo      *time.Time
	Breakdown   *string
	Source      *string
}

// Service owns report rows and their hydration.
type Service struct {
	db    *gorm.DB
	store *metrics.Store
	now   func() time.Time
}

func NewService(db *gorm.DB, store *metrics.Store) *Service {
	return &Service{db: db, store: store, now: time.Now}
}

// Create inserts a new report configuration.
func (s *Service) Create(accountID string, in Input) (*models.Report, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(in.MetricTypes) == 0 {
		return nil, fmt.Errorf("%w: metric_types must not be empty", ErrInvalidInput)
	}

	report := &models.Report{
		ID:        uuid.New().String(),
		AccountID: accountID,
		DateRange: models.Range30d,
		Breakdown: "daily",
	}
	if err := s.apply(report, in); err != nil {
		return nil, err
	}
	if err := s.db.Create(report).Error; err != nil {
		return nil, err
	}
	return report, nil
}

// List returns the account's reports, most recently updated first.
func (s *Service) List(accountID string) ([]models.Report, error) {
	var list []models.Report
	err := s.db.Where("account_id = ?", accountID).
		Order("updated_at DESC").
		Find(&list).Error
	return list, err
}

// Get returns one report; a foreign account id reads as not found.
func (s *Service) Get(accountID, id string) (*models.Report, error) {
	var report models.Report
	err := s.db.Where("id = ? AND account_id = ?", id, accountID).First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// Update patches the stored configuration.
func (s *Service) Update(accountID, id string, in Input) (*models.Report, error) {
	report, err := s.Get(accountID, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(report, in); err != nil {
		return nil, err
	}
	if err := s.db.Save(report).Error; err != nil {
		return nil, err
	}
	return report, nil
}

// Delete removes a report permanently.
func (s *Service) Delete(accountID, id string) error {
	res := s.db.Where("id = ? AND account_id = ?", id, accountID).Delete(&models.Report{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *Service) apply(report *models.Report, in Input) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" || len(name) > maxNameLen {
			return fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidInput, maxNameLen)
		}
		report.Name = name
	}
	if in.Description != nil {
		if len(*in.Description) > maxDescriptionLen {
			return fmt.Errorf("%w: description too long", ErrInvalidInput)
		}
		report.Description = *in.Description
	}
	if in.ClientID != nil {
		report.ClientID = *in.ClientID
	}
	if in.MetricTypes != nil {
		if len(in.MetricTypes) == 0 {
			return fmt.Errorf("%w: metric_types must not be empty", ErrInvalidInput)
		}
		report.SetTypes(in.MetricTypes)
	}
	if in.DateRange != nil {
		if !validRanges[*in.DateRange] {
			return fmt.Errorf("%w: unknown date_range %q", ErrInvalidInput, *in.DateRange)
		}
		report.DateRange = *in.DateRange
	}
	if in.DateFrom != nil {
		report.DateFrom = in.DateFrom
	}
	if in.DateTo != nil {
		report.DateTo = in.DateTo
	}
	if report.DateRange == models.RangeCustom &&
		report.DateFrom != nil && report.DateTo != nil &&
		report.DateFrom.After(*report.DateTo) {
		return fmt.Errorf("%w: date_from must not be after date_to", ErrInvalidInput)
	}
	if in.Breakdown != nil {
		switch *in.Breakdown {
		case "daily", "weekly", "monthly":
			report.Breakdown = *in.Breakdown
		default:
			return fmt.Errorf("%w: unknown breakdown %q", ErrInvalidInput, *in.Breakdown)
		}
	}
	if in.Source != nil {
		report.Source = *in.Source
	}
	return nil
}

// Data is a hydrated report: KPI comparisons plus the chart table.
type Data struct {
	Kpis        []metrics.KpiSummary `json:"kpis"`
	Chart       []metrics.ChartPoint `json:"chart"`
	Breakdown   string               `json:"breakdown"`
	MetricTypes []string             `json:"metric_types"`
	From        time.Time            `json:"from"`
	To          time.Time            `json:"to"`
}

// Hydrate computes the report's data fresh. Preset ranges resolve relative
// to now, so a saved "30d" report is always a rolling window.
func (s *Service) Hydrate(report *models.Report) (*Data, error) {
	var window metrics.DateRange
	if report.DateRange == models.RangeCustom && report.DateFrom != nil && report.DateTo != nil {
		window = metrics.DateRange{From: *report.DateFrom, To: *report.DateTo}
		if window.From.After(window.To) {
			window.From, window.To = window.To, window.From
		}
	} else {
		window = metrics.ResolvePreset(report.DateRange, s.now())
	}

	types := report.Types()
	filter := metrics.Filter{
		AccountID: report.AccountID,
		ClientID:  report.ClientID,
		Types:     types,
		From:      window.From,
		To:        window.To,
		Source:    report.Source,
	}

	kpis, err := s.store.KpiSummaries(filter)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.Query(filter)
	if err != nil {
		return nil, err
	}

	breakdown := report.Breakdown
	if breakdown == "" {
		breakdown = "daily"
	}

	return &Data{
		Kpis:        kpis,
		Chart:       metrics.ToChartSeries(rows, types),
		Breakdown:   breakdown,
		MetricTypes: types,
		From:        window.From,
		To:          window.To,
	}, nil
}

// GenerateShareToken mints a 256-bit capability token with an absolute
// expiry and stores it on the report.
func (s *Service) GenerateShareToken(accountID, id string, expiryDays int) (*models.Report, error) {
	report, err := s.Get(accountID, id)
	if err != nil {
		return nil, err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	token := hex.EncodeToString(raw)
	expiry := s.now().Add(time.Duration(expiryDays) * 24 * time.Hour)

	report.ShareToken = &token
	report.ShareExpiry = &expiry
	if err := s.db.Save(report).Error; err != nil {
		return nil, err
	}
	return report, nil
}

// RevokeShareToken clears the token; outstanding links stop working.
func (s *Service) RevokeShareToken(accountID, id string) error {
	report, err := s.Get(accountID, id)
	if err != nil {
		return err
	}
	report.ShareToken = nil
	report.ShareExpiry = nil
	return s.db.Save(report).Error
}

// GetByShareToken resolves an anonymous share link. Unknown, revoked and
// expired tokens are all indistinguishable: nil report, no error detail.
func (s *Service) GetByShareToken(token string) (*models.Report, error) {
	if token == "" {
		return nil, nil
	}
	var report models.Report
	err := s.db.Where("share_token = ?", token).First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if report.ShareExpiry != nil && report.ShareExpiry.Before(s.now()) {
		return nil, nil
	}
	return &report, nil
}

// ToCSV renders hydrated data as date,<type>... lines. Values are joined
// with bare commas; embedded delimiters are not escaped.
func ToCSV(data *Data) string {
	var b strings.Builder
	b.WriteString("date")
	for _, t := range data.MetricTypes {
		b.WriteString(",")
		b.WriteString(t)
	}
	b.WriteString("\n")

	for i, point := range data.Chart {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(point.Date)
		for _, t := range data.MetricTypes {
			b.WriteString(",")
			b.WriteString(formatValue(point.Values[t]))
		}
	}
	return b.String()
}

func formatValue(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
