package report

import (
	"sort"
	"time"

	"liyu1981.xyz/llm-cost-service/pkg/common"
	"liyu1981.xyz/llm-cost-service/pkg/models"
	"liyu1981.xyz/llm-cost-service/pkg/sessionlog"
)

const (
	DefaultAnomalyThreshold = 0.25
	DefaultAnomalyWindow    = 7
	// days of history needed before a day is judged
	minHistoryDays = 3
)

type Anomaly struct {
	Date         string          `json:"date"`
	ExpectedCost float64         `json:"expected_cost"`
	ActualCost   float64         `json:"actual_cost"`
	Severity     models.Severity `json:"severity"`
	PctOver      float64         `json:"pct_over"`
	Project      string          `json:"project,omitempty"`
}

// dailyCosts buckets by the calendar date in each timestamp's own offset.
func dailyCosts(msgs []sessionlog.Message, keep func(*sessionlog.Message) bool) map[string]float64 {
	daily := map[string]float64{}
	for i := range msgs {
		if keep != nil && !keep(&msgs[i]) {
			continue
		}
		t, err := common.ParseTimestampInOffset(msgs[i].Timestamp)
		if err != nil {
			continue
		}
		daily[t.Format(time.DateOnly)] += msgs[i].CostTotal
	}
	return daily
}

// scanDays compares every active day, from the fourth on, with the average of
// up to window preceding active days. flagZeroAverage reports spend after an
// all-zero window as a 100% warning.
func scanDays(daily map[string]float64, threshold float64, window int, flagZeroAverage bool) []Anomaly {
	days := make([]string, 0, len(daily))
	for d := range daily {
		days = append(days, d)
	}
	sort.Strings(days)

	anomalies := []Anomaly{}
	for i, day := range days {
		if i < minHistoryDays {
			continue
		}
		prev := days[max(0, i-window):i]
		sum := 0.0
		for _, d := range prev {
			sum += daily[d]
		}
		avg := sum / float64(len(prev))
		actual := daily[day]

		if avg == 0 {
			if flagZeroAverage && actual > 0 {
				anomalies = append(anomalies, Anomaly{
					Date:       day,
					ActualCost: common.Round(actual, costPlaces),
					Severity:   models.SeverityWarning,
					PctOver:    100.0,
				})
			}
			continue
		}

		pctOver := (actual - avg) / avg
		if pctOver <= threshold {
			continue
		}
		severity := models.SeverityWarning
		if pctOver > threshold*3 {
			severity = models.SeverityCritical
		}
		anomalies = append(anomalies, Anomaly{
			Date:         day,
			ExpectedCost: common.Round(avg, costPlaces),
			ActualCost:   common.Round(actual, costPlaces),
			Severity:     severity,
			PctOver:      common.Round(pctOver*100, 1),
		})
	}
	return anomalies
}

// DetectAnomalies flags days whose spend exceeds the rolling average of the
// previous window active days by more than threshold (0.25 = 25% over).
func DetectAnomalies(msgs []sessionlog.Message, threshold float64, window int) []Anomaly {
	if window < 1 {
		window = DefaultAnomalyWindow
	}
	return scanDays(dailyCosts(msgs, nil), threshold, window, true)
}

// DetectProjectAnomalies runs the same scan per project, newest first.
func DetectProjectAnomalies(msgs []sessionlog.Message, threshold float64) []Anomaly {
	var projects []string
	seen := map[string]bool{}
	for i := range msgs {
		if !seen[msgs[i].Project] {
			seen[msgs[i].Project] = true
			projects = append(projects, msgs[i].Project)
		}
	}

	all := []Anomaly{}
	for _, project := range projects {
		daily := dailyCosts(msgs, func(m *sessionlog.Message) bool { return m.Project == project })
		for _, a := range scanDays(daily, threshold, DefaultAnomalyWindow, false) {
			a.Project = project
			all = append(all, a)
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Date > all[j].Date })
	return all
}
