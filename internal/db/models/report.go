package models

import (
	"encoding/json"
	"time"
)

// Date range presets a report can store. "custom" uses DateFrom/DateTo.
const (
	Range7d     = "7d"
	Range30d    = "30d"
	Range90d    = "90d"
	Range12m    = "12m"
	RangeCustom = "custom"
)

// Report holds configuration only. KPI and chart data are computed fresh on
// every read, so a saved "30d" report always reflects a rolling window.
type Report struct {
	ID          string `gorm:"primaryKey"` // UUID
	AccountID   string `gorm:"index;not null"`
	Name        string `gorm:"not null"`
	Description string
	ClientID    string
	MetricTypes string // JSON array of metric type strings
	DateRange   string `gorm:"default:'30d'"`
	DateFrom    *time.Time
	DateTo      *time.Time
	Breakdown   string `gorm:"default:'daily'"` // stored, not used by aggregation yet
	Source      string

	ShareToken  *string `gorm:"index"`
	ShareExpiry *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Types parses the MetricTypes JSON column.
func (r *Report) Types() []string {
	var types []string
	if r.MetricTypes == "" {
		return types
	}
	if err := json.Unmarshal([]byte(r.MetricTypes), &types); err != nil {
		return nil
	}
	return types
}

// SetTypes serializes the metric type list.
func (r *Report) SetTypes(types []string) {
	raw, _ := json.Marshal(types)
	r.MetricTypes = string(raw)
}
