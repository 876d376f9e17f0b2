package models

import "time"

// KnownMetricTypes is the set the dashboard understands. The metric table
// itself is untyped; this list backs input validation only.
var KnownMetricTypes = []string{
	"leads",
	"cpl",
	"spend",
	"conversions",
	"roas",
	"seo_clicks",
	"seo_impressions",
	"social_followers",
	"social_engagement",
	"social_reach",
}

// Metric is an append-only fact row. There is deliberately no uniqueness
// constraint: two rows for the same (account, type, date) both count toward
// the sum. Ingestion never overwrites.
type Metric struct {
	ID         string `gorm:"primaryKey"` // UUID
	AccountID  string `gorm:"index;not null"`
	ClientID   string
	MetricType string    `gorm:"not null"`
	Value      float64   `gorm:"not null"`
	Date       time.Time `gorm:"index;not null"` // day granularity, midnight UTC
	Source     string

	CreatedAt time.Time
}
