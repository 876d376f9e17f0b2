// Package metrics is the query and aggregation layer over the append-only
// metric table. Every read is scoped by an explicit account id — this is the
// tenant-isolation boundary the rest of the core depends on.
package metrics

import (
	"errors"
	"time"

	"github.com/pulsedash/pulsedash/internal/db/models"
	"gorm.io/gorm"
)

// ErrMissingAccountScope guards against unscoped reads.
var ErrMissingAccountScope = errors.New("metrics: filter requires an account id")

// Filter selects metric rows for one account.
type Filter struct {
	AccountID string
	ClientID  string
	Types     []string
	From      time.Time
	To        time.Time
	Source    string
}

// Row is one metric fact.
type Row struct {
	MetricType string    `json:"metric_type"`
	Value      float64   `json:"value"`
	Date       time.Time `json:"date"`
	Source     string    `json:"source,omitempty"`
}

// Store reads metric rows.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Query returns the filtered rows ordered by date ascending.
func (s *Store) Query(f Filter) ([]Row, error) {
	if f.AccountID == "" {
		return nil, ErrMissingAccountScope
	}

	q := s.db.Model(&models.Metric{}).
		Where("account_id = ?", f.AccountID).
		Where("date >= ? AND date <= ?", f.From, f.To)
	if f.ClientID != "" {
		q = q.Where("client_id = ?", f.ClientID)
	}
	if len(f.Types) > 0 {
		q = q.Where("metric_type IN ?", f.Types)
	}
	if f.Source != "" {
		q = q.Where("source = ?", f.Source)
	}

	var raw []models.Metric
	if err := q.Order("date ASC").Find(&raw).Error; err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(raw))
	for _, m := range raw {
		rows = append(rows, Row{
			MetricType: m.MetricType,
			Value:      m.Value,
			Date:       m.Date,
			Source:     m.Source,
		})
	}
	return rows, nil
}

// AvailableSources returns the distinct non-empty sources an account has
// ingested, for the source filter dropdown.
func (s *Store) AvailableSources(accountID string) ([]string, error) {
	if accountID == "" {
		return nil, ErrMissingAccountScope
	}
	var sources []string
	err := s.db.Model(&models.Metric{}).
		Where("account_id = ? AND source <> ''", accountID).
		Distinct("source").
		Order("source ASC").
		Pluck("source", &sources).Error
	return sources, err
}
