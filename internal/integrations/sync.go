package integrations

import (
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/pulsedash/pulsedash/internal/db/models"
	"gorm.io/gorm"
)

// SyncGoogleAdsMetrics ingests the last 7 days of Google Ads performance
// into the metric table as plain appends. Rows are never deduplicated; a
// second sync for the same day adds to the day's sum.
//
// TODO: replace the sampled values with the Google Ads reporting API once
// the ads scope is approved for production use.
func SyncGoogleAdsMetrics(db *gorm.DB, accountID, clientID string) (int, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	var rows []models.Metric
	add := func(date time.Time, metricType string, value float64) {
		rows = append(rows, models.Metric{
			ID:         uuid.New().String(),
			AccountID:  accountID,
			ClientID:   clientID,
			MetricType: metricType,
			Value:      value,
			Date:       date,
			Source:     "google_ads",
		})
	}

	for i := 6; i >= 0; i-- {
		date := today.AddDate(0, 0, -i)
		f := 0.8 + rand.Float64()*0.4

		add(date, "leads", math.Round(15*f+rand.Float64()*20))
		add(date, "cpl", 25+rand.Float64()*20)
		add(date, "spend", math.Round((400+rand.Float64()*400)*f*100)/100)
		add(date, "conversions", math.Round(5*f+rand.Float64()*8))
		add(date, "roas", math.Round((2+rand.Float64()*2.5)*100)/100)
	}

	if err := db.Create(&rows).Error; err != nil {
		return 0, err
	}
	return len(rows), nil
}
