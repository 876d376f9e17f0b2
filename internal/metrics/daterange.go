package metrics

import (
	"time"

	"github.com/pulsedash/pulsedash/internal/db/models"
)

// DateRange is a resolved [From, To] window.
type DateRange struct {
	From time.Time
	To   time.Time
}

// ResolvePreset turns a stored range preset into a concrete window relative
// to now: To is the end of today, From the start of the window's first day.
// Unknown presets fall back to 30 days, matching the dashboard default.
func ResolvePreset(preset string, now time.Time) DateRange {
	endOfDay := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 999000000, now.Location())

	var from time.Time
	switch preset {
	case models.Range7d:
		from = endOfDay.AddDate(0, 0, -6)
	case models.Range90d:
		from = endOfDay.AddDate(0, 0, -89)
	case models.Range12m:
		from = endOfDay.AddDate(-1, 0, 0)
	default: // 30d
		from = endOfDay.AddDate(0, 0, -29)
	}

	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	return DateRange{From: from, To: endOfDay}
}
