package metrics

import (
	"encoding/json"
	"sort"
	"time"
)

// ChartPoint is one calendar day's values, one column per requested metric
// type. It serializes flat: {"date":"2024-01-05","leads":12,"spend":431.5}.
type ChartPoint struct {
	Date   string
	Values map[string]float64
}

func (p ChartPoint) MarshalJSON() ([]byte, error) {
	flat := make(map[string]interface{}, len(p.Values)+1)
	flat["date"] = p.Date
	for k, v := range p.Values {
		flat[k] = v
	}
	return json.Marshal(flat)
}

// ToChartSeries groups rows into a dense per-date table ordered by date.
// Days absent from the input produce no point at all; a requested type
// missing within a present day reads as 0. Same-day same-type rows are
// summed, matching the append-only metric model.
func ToChartSeries(rows []Row, types []string) []ChartPoint {
	byDate := make(map[string]map[string]float64)
	for _, row := range rows {
		key := dateKey(row.Date)
		if byDate[key] == nil {
			byDate[key] = make(map[string]float64)
		}
		byDate[key][row.MetricType] += row.Value
	}

	keys := make([]string, 0, len(byDate))
	for k := range byDate {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	points := make([]ChartPoint, 0, len(keys))
	for _, key := range keys {
		values := make(map[string]float64, len(types))
		for _, t := range types {
			values[t] = byDate[key][t]
		}
		points = append(points, ChartPoint{Date: key, Values: values})
	}
	return points
}

func dateKey(d time.Time) string {
	return d.UTC().Format("2006-01-02")
}
