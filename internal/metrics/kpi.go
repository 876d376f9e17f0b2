package metrics

import "time"

// KpiSummary compares a metric type's current-period sum with the
// immediately preceding period of equal length.
type KpiSummary struct {
	MetricType string  `json:"metric_type"`
	Current    float64 `json:"current"`
	Previous   float64 `json:"previous"`
	Change     float64 `json:"change"` // percent
}

// PreviousWindow returns the window of identical duration ending exactly one
// millisecond before from. The two windows never overlap.
func PreviousWindow(from, to time.Time) (time.Time, time.Time) {
	period := to.Sub(from)
	return from.Add(-period), from.Add(-time.Millisecond)
}

// KpiSummaries sums each metric type over the filter window and the previous
// window. When the filter names no types, every type observed in the current
// window is summarized, in first-seen order.
//
// Change handles empty previous periods without Inf/NaN: a previous sum of
// zero reads as +100% when anything happened and 0% when nothing did.
func (s *Store) KpiSummaries(f Filter) ([]KpiSummary, error) {
	current, err := s.Query(f)
	if err != nil {
		return nil, err
	}

	prev := f
	prev.From, prev.To = PreviousWindow(f.From, f.To)
	previous, err := s.Query(prev)
	if err != nil {
		return nil, err
	}

	types := f.Types
	if len(types) == 0 {
		seen := make(map[string]bool)
		for _, r := range current {
			if !seen[r.MetricType] {
				seen[r.MetricType] = true
				types = append(types, r.MetricType)
			}
		}
	}

	sum := func(rows []Row, metricType string) float64 {
		var total float64
		for _, r := range rows {
			if r.MetricType == metricType {
				total += r.Value
			}
		}
		return total
	}

	summaries := make([]KpiSummary, 0, len(types))
	for _, metricType := range types {
		curr := sum(current, metricType)
		prevSum := sum(previous, metricType)

		var change float64
		switch {
		case prevSum == 0 && curr > 0:
			change = 100
		case prevSum == 0:
			change = 0
		default:
			change = (curr - prevSum) / prevSum * 100
		}

		summaries = append(summaries, KpiSummary{
			MetricType: metricType,
			Current:    curr,
			Previous:   prevSum,
			Change:     change,
		})
	}
	return summaries, nil
}
