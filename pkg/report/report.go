// Package report aggregates locally parsed session messages into the views
// served by the local API and printed by the CLI.
package report

import (
	"fmt"
	"sort"
	"time"

	"liyu1981.xyz/llm-cost-service/pkg/common"
	"liyu1981.xyz/llm-cost-service/pkg/models"
	"liyu1981.xyz/llm-cost-service/pkg/sessionlog"
)

const (
	DefaultDays        = 7
	DefaultTopSessions = 5
	costPlaces         = 4
)

type Summary struct {
	Date         string  `json:"date"`
	TotalCostUSD float64 `json:"total_cost_usd"`
	TotalTokens  int64   `json:"total_tokens"`
	SessionCount int     `json:"session_count"`
	MessageCount int     `json:"message_count"`
}

type ModelBreakdown struct {
	Model        string  `json:"model"`
	CostUSD      float64 `json:"cost_usd"`
	TotalTokens  int64   `json:"total_tokens"`
	MessageCount int     `json:"message_count"`
}

type ProjectBreakdown struct {
	Project      string  `json:"project"`
	CostUSD      float64 `json:"cost_usd"`
	TotalTokens  int64   `json:"total_tokens"`
	SessionCount int     `json:"session_count"`
	MessageCount int     `json:"message_count"`
}

type SessionCost struct {
	SessionID    string  `json:"session_id"`
	Project      string  `json:"project"`
	CostUSD      float64 `json:"cost_usd"`
	TotalTokens  int64   `json:"total_tokens"`
	MessageCount int     `json:"message_count"`
}

// CostReport is the full cost-report view.
type CostReport struct {
	Timeseries  []models.DailyCost `json:"timeseries"`
	Models      []ModelBreakdown   `json:"models"`
	Projects    []ProjectBreakdown `json:"projects"`
	TopSessions []SessionCost      `json:"top_sessions"`
}

func dateKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// GetSummary covers the UTC day of now.
func GetSummary(msgs []sessionlog.Message, now time.Time) Summary {
	today := dateKey(now)
	summary := Summary{Date: today}
	sessions := map[string]struct{}{}

	cost := 0.0
	for i := range msgs {
		t, ok := msgs[i].Time()
		if !ok || dateKey(t) != today {
			continue
		}
		cost += msgs[i].CostTotal
		summary.TotalTokens += msgs[i].TotalTokens()
		summary.MessageCount++
		sessions[msgs[i].SessionID] = struct{}{}
	}
	summary.TotalCostUSD = common.Round(cost, costPlaces)
	summary.SessionCount = len(sessions)
	return summary
}

// CostTimeseries returns exactly days entries, oldest first, ending today;
// days without usage are zero.
func CostTimeseries(msgs []sessionlog.Message, days int, now time.Time) []models.DailyCost {
	if days < 1 {
		days = 1
	}
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)

	daily := map[string]float64{}
	for i := range msgs {
		t, ok := msgs[i].Time()
		if !ok || t.Before(cutoff) {
			continue
		}
		daily[dateKey(t)] += msgs[i].CostTotal
	}

	series := make([]models.DailyCost, 0, days)
	for i := range days {
		day := dateKey(now.AddDate(0, 0, -(days - 1 - i)))
		series = append(series, models.DailyCost{Date: day, CostUSD: common.Round(daily[day], costPlaces)})
	}
	return series
}

// GetModelBreakdown is sorted by cost, ties in order of first appearance.
func GetModelBreakdown(msgs []sessionlog.Message) []ModelBreakdown {
	index := map[string]int{}
	out := []ModelBreakdown{}
	for i := range msgs {
		j, ok := index[msgs[i].Model]
		if !ok {
			j = len(out)
			index[msgs[i].Model] = j
			out = append(out, ModelBreakdown{Model: msgs[i].Model})
		}
		out[j].CostUSD += msgs[i].CostTotal
		out[j].TotalTokens += msgs[i].TotalTokens()
		out[j].MessageCount++
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].CostUSD > out[b].CostUSD })
	for i := range out {
		out[i].CostUSD = common.Round(out[i].CostUSD, costPlaces)
	}
	return out
}

func GetProjectBreakdown(msgs []sessionlog.Message) []ProjectBreakdown {
	index := map[string]int{}
	sessions := []map[string]struct{}{}
	out := []ProjectBreakdown{}
	for i := range msgs {
		j, ok := index[msgs[i].Project]
		if !ok {
			j = len(out)
			index[msgs[i].Project] = j
			out = append(out, ProjectBreakdown{Project: msgs[i].Project})
			sessions = append(sessions, map[string]struct{}{})
		}
		out[j].CostUSD += msgs[i].CostTotal
		out[j].TotalTokens += msgs[i].TotalTokens()
		out[j].MessageCount++
		sessions[j][msgs[i].SessionID] = struct{}{}
	}
	for j := range out {
		out[j].SessionCount = len(sessions[j])
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].CostUSD > out[b].CostUSD })
	for i := range out {
		out[i].CostUSD = common.Round(out[i].CostUSD, costPlaces)
	}
	return out
}

// GetTopSessions returns the n most expensive sessions. A session's project is
// the one of its last message.
func GetTopSessions(msgs []sessionlog.Message, n int) []SessionCost {
	index := map[string]int{}
	out := []SessionCost{}
	for i := range msgs {
		j, ok := index[msgs[i].SessionID]
		if !ok {
			j = len(out)
			index[msgs[i].SessionID] = j
			out = append(out, SessionCost{SessionID: msgs[i].SessionID})
		}
		out[j].CostUSD += msgs[i].CostTotal
		out[j].TotalTokens += msgs[i].TotalTokens()
		out[j].MessageCount++
		out[j].Project = msgs[i].Project
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].CostUSD > out[b].CostUSD })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	for i := range out {
		out[i].CostUSD = common.Round(out[i].CostUSD, costPlaces)
	}
	return out
}

func BuildCostReport(msgs []sessionlog.Message, days int, now time.Time) CostReport {
	return CostReport{
		Timeseries:  CostTimeseries(msgs, days, now),
		Models:      GetModelBreakdown(msgs),
		Projects:    GetProjectBreakdown(msgs),
		TopSessions: GetTopSessions(msgs, DefaultTopSessions),
	}
}

// FormatCost prints cents for amounts of a dollar or more and four decimals
// below that.
func FormatCost(cost float64) string {
	if cost >= 1.0 {
		return fmt.Sprintf("$%.2f", cost)
	}
	return fmt.Sprintf("$%.4f", cost)
}

func FormatTokens(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}
