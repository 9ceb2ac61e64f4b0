package meter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"liyu1981.xyz/llm-cost-service/pkg/common"
	"liyu1981.xyz/llm-cost-service/pkg/models"
)

const (
	MinStatsDays     = 1
	MaxStatsDays     = 365
	FreeTierMaxDays  = 7
	recentSessionCap = 10
	outlierCap       = 5
	communityDays    = 7
)

// ClampDays bounds a requested history length to 1..365.
func ClampDays(days int) int {
	return min(max(days, MinStatsDays), MaxStatsDays)
}

func (m *Meter) windowQuery(deviceID string, since time.Time) *gorm.DB {
	return m.Db.Conn.Model(&models.Event{}).Where("device_id = ? AND timestamp >= ?", deviceID, since)
}

func (m *Meter) windowEvents(deviceID string, since time.Time) ([]models.Event, error) {
	var events []models.Event
	err := m.windowQuery(deviceID, since).
		Select("id", "session_id", "project", "model", "cost_usd", "timestamp", "tools").
		Order("timestamp, id").
		Find(&events).Error
	return events, err
}

type sessionAgg struct {
	project  string
	requests int64
	cost     float64
	last     time.Time
}

func aggregateSessions(events []models.Event) map[string]*sessionAgg {
	sessions := map[string]*sessionAgg{}
	for _, e := range events {
		if e.SessionID == "" {
			continue
		}
		s, ok := sessions[e.SessionID]
		if !ok {
			s = &sessionAgg{}
			sessions[e.SessionID] = s
		}
		s.requests++
		s.cost += e.CostUSD
		if !e.Timestamp.Before(s.last) {
			s.last = e.Timestamp
			s.project = e.Project
		}
	}
	return sessions
}

func aggregateTools(events []models.Event) map[string]*models.ToolStat {
	tools := map[string]*models.ToolStat{}
	for _, e := range events {
		for _, tool := range splitTools(e.Tools) {
			t, ok := tools[tool]
			if !ok {
				t = &models.ToolStat{Tool: tool}
				tools[tool] = t
			}
			t.Count++
			t.CostUSD += e.CostUSD
		}
	}
	return tools
}

func (m *Meter) deviceStats(deviceID string, days int) (*models.DeviceStats, error) {
	logger := common.GetLoggerWith(
		common.LoggerNameMeterCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryStats),
	)

	days = ClampDays(days)
	since := m.now().AddDate(0, 0, -days)

	var totals struct {
		Requests int64
		Cost     float64
		Tokens   int64
	}
	err := m.windowQuery(deviceID, since).
		Select("COUNT(*) AS requests, COALESCE(SUM(cost_usd), 0) AS cost, " +
			"COALESCE(SUM(input_tokens + output_tokens + cache_read_tokens + cache_write_tokens), 0) AS tokens").
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}

	stats := &models.DeviceStats{
		DeviceID:      deviceID,
		Days:          days,
		TotalRequests: totals.Requests,
		TotalCostUSD:  common.Round(totals.Cost, 4),
		TotalTokens:   totals.Tokens,
	}
	if totals.Requests > 0 {
		stats.AvgCostPerRequest = common.Round(totals.Cost/float64(totals.Requests), 6)
	}

	stats.Models = []models.ModelStat{}
	err = m.windowQuery(deviceID, since).
		Select("model, COUNT(*) AS count, SUM(cost_usd) AS cost_usd, " +
			"SUM(input_tokens + output_tokens + cache_read_tokens + cache_write_tokens) AS tokens").
		Where("model <> ''").
		Group("model").
		Order("cost_usd DESC, model").
		Scan(&stats.Models).Error
	if err != nil {
		return nil, err
	}
	var top *models.ModelStat
	for i := range stats.Models {
		if top == nil || stats.Models[i].Count > top.Count {
			top = &stats.Models[i]
		}
		stats.Models[i].CostUSD = common.Round(stats.Models[i].CostUSD, 4)
	}
	if top != nil {
		stats.TopModel = &top.Model
	}

	stats.Projects = []models.ProjectStat{}
	err = m.windowQuery(deviceID, since).
		Select("project, COUNT(*) AS count, SUM(cost_usd) AS cost_usd, " +
			"COUNT(DISTINCT CASE WHEN session_id <> '' THEN session_id END) AS sessions").
		Where("project <> ''").
		Group("project").
		Order("cost_usd DESC, project").
		Scan(&stats.Projects).Error
	if err != nil {
		return nil, err
	}
	for i := range stats.Projects {
		stats.Projects[i].CostUSD = common.Round(stats.Projects[i].CostUSD, 4)
	}

	events, err := m.windowEvents(deviceID, since)
	if err != nil {
		return nil, err
	}

	daily := map[string]float64{}
	for _, e := range events {
		daily[e.Timestamp.UTC().Format(time.DateOnly)] += e.CostUSD
	}
	stats.Timeseries = make([]models.DailyCost, 0, len(daily))
	for day, cost := range daily {
		stats.Timeseries = append(stats.Timeseries, models.DailyCost{Date: day, CostUSD: common.Round(cost, 4)})
	}
	sort.Slice(stats.Timeseries, func(i, j int) bool { return stats.Timeseries[i].Date < stats.Timeseries[j].Date })

	stats.Sessions = []models.SessionStat{}
	for id, s := range aggregateSessions(events) {
		stats.Sessions = append(stats.Sessions, models.SessionStat{
			SessionID:  id,
			Project:    s.project,
			Requests:   s.requests,
			CostUSD:    common.Round(s.cost, 4),
			LastActive: s.last,
		})
	}
	sort.Slice(stats.Sessions, func(i, j int) bool {
		if !stats.Sessions[i].LastActive.Equal(stats.Sessions[j].LastActive) {
			return stats.Sessions[i].LastActive.After(stats.Sessions[j].LastActive)
		}
		return stats.Sessions[i].SessionID < stats.Sessions[j].SessionID
	})
	if len(stats.Sessions) > recentSessionCap {
		stats.Sessions = stats.Sessions[:recentSessionCap]
	}

	stats.Tools = []models.ToolStat{}
	for _, t := range aggregateTools(events) {
		t.CostUSD = common.Round(t.CostUSD, 4)
		stats.Tools = append(stats.Tools, *t)
	}
	sort.Slice(stats.Tools, func(i, j int) bool {
		if stats.Tools[i].CostUSD != stats.Tools[j].CostUSD {
			return stats.Tools[i].CostUSD > stats.Tools[j].CostUSD
		}
		return stats.Tools[i].Tool < stats.Tools[j].Tool
	})

	logger.Debug("Computed device stats", zap.String("device_id", deviceID), zap.Int("days", days), zap.Int64("requests", stats.TotalRequests))
	return stats, nil
}

type projectModelCost struct {
	Project string
	Model   string
	Count   int64
	Cost    float64
}

func (m *Meter) optimizationSuggestions(deviceID string, days int) ([]models.Suggestion, error) {
	days = ClampDays(days)
	since := m.now().AddDate(0, 0, -days)
	suggestions := []models.Suggestion{}

	var rows []projectModelCost
	err := m.windowQuery(deviceID, since).
		Select("project, model, COUNT(*) AS count, SUM(cost_usd) AS cost").
		Where("model <> '' AND project <> ''").
		Group("project, model").
		Order("project, model").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	type opusUsage struct {
		cost  float64
		count int64
	}
	opusByProject := map[string]*opusUsage{}
	var projects []string
	for _, r := range rows {
		if !strings.Contains(r.Model, "opus") {
			continue
		}
		u, ok := opusByProject[r.Project]
		if !ok {
			u = &opusUsage{}
			opusByProject[r.Project] = u
			projects = append(projects, r.Project)
		}
		u.cost += r.Cost
		u.count += r.Count
	}
	for _, project := range projects {
		u := opusByProject[project]
		if u.cost <= 1.0 {
			continue
		}
		savings := u.cost * 0.8
		severity := "medium"
		if savings > 10 {
			severity = "high"
		}
		suggestions = append(suggestions, models.Suggestion{
			Type:             models.SuggestionModelDowngrade,
			Severity:         severity,
			Project:          project,
			CurrentModel:     "opus",
			SuggestedModel:   "sonnet",
			CurrentCost:      common.Round(u.cost, 2),
			EstimatedSavings: common.Round(savings, 2),
			AffectedRequests: u.count,
			Message: fmt.Sprintf("Project '%s' spent $%.2f on Opus (%d requests). Switching to Sonnet could save ~$%.2f/week.",
				project, u.cost, u.count, savings),
		})
	}

	events, err := m.windowEvents(deviceID, since)
	if err != nil {
		return nil, err
	}

	tools := aggregateTools(events)
	toolNames := make([]string, 0, len(tools))
	for name := range tools {
		toolNames = append(toolNames, name)
	}
	sort.Strings(toolNames)
	for _, name := range toolNames {
		t := tools[name]
		avg := t.CostUSD / float64(t.Count)
		if avg <= 0.10 || t.CostUSD <= 5.0 {
			continue
		}
		suggestions = append(suggestions, models.Suggestion{
			Type:          models.SuggestionExpensiveTool,
			Severity:      "medium",
			Tool:          name,
			TotalCost:     common.Round(t.CostUSD, 2),
			AvgCostPerUse: common.Round(avg, 4),
			Count:         t.Count,
			Message: fmt.Sprintf("Tool '%s' costs $%.4f/use avg ($%.2f total, %d uses). Consider if all uses need the current model tier.",
				name, avg, t.CostUSD, t.Count),
		})
	}

	sessions := aggregateSessions(events)
	if len(sessions) > 0 {
		total := 0.0
		ids := make([]string, 0, len(sessions))
		for id, s := range sessions {
			total += s.cost
			ids = append(ids, id)
		}
		avg := total / float64(len(sessions))
		sort.Slice(ids, func(i, j int) bool {
			if sessions[ids[i]].cost != sessions[ids[j]].cost {
				return sessions[ids[i]].cost > sessions[ids[j]].cost
			}
			return ids[i] < ids[j]
		})

		flagged := 0
		for _, id := range ids {
			s := sessions[id]
			if avg <= 0 || s.cost <= avg*5 || flagged == outlierCap {
				break
			}
			flagged++
			if s.cost <= 2.0 {
				continue
			}
			suggestions = append(suggestions, models.Suggestion{
				Type:           models.SuggestionSessionOutlier,
				Severity:       "low",
				SessionID:      id,
				Project:        s.project,
				Cost:           common.Round(s.cost, 2),
				Requests:       s.requests,
				AvgSessionCost: common.Round(avg, 2),
				Message: fmt.Sprintf("Session %s... cost $%.2f (%d requests), %.1fx the average session cost.",
					common.Truncate(id, sessionIDPrefixLen), s.cost, s.requests, s.cost/avg),
			})
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Impact() > suggestions[j].Impact()
	})
	return suggestions, nil
}

func (m *Meter) communityStats() (*models.CommunityStats, error) {
	var row struct {
		Devices int64
		Events  int64
		AvgCost float64
	}
	err := m.Db.Conn.Model(&models.Event{}).
		Select("COUNT(DISTINCT device_id) AS devices, COUNT(*) AS events, COALESCE(AVG(cost_usd), 0) AS avg_cost").
		Where("timestamp >= ?", m.now().AddDate(0, 0, -communityDays)).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &models.CommunityStats{
		ActiveDevices:     row.Devices,
		TotalEvents7d:     row.Events,
		AvgCostPerRequest: common.Round(row.AvgCost, 6),
	}, nil
}

type IStatsImpl struct {
	meter *Meter
}

func (is *IStatsImpl) DeviceStats(deviceID string, days int) (*models.DeviceStats, error) {
	return is.meter.deviceStats(deviceID, days)
}

func (is *IStatsImpl) OptimizationSuggestions(deviceID string, days int) ([]models.Suggestion, error) {
	return is.meter.optimizationSuggestions(deviceID, days)
}

func (is *IStatsImpl) CommunityStats() (*models.CommunityStats, error) {
	return is.meter.communityStats()
}

func (m *Meter) GetIStats() IStats {
	return &IStatsImpl{meter: m}
}
