package meter

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liyu1981.xyz/llm-cost-service/pkg/common"
	"liyu1981.xyz/llm-cost-service/pkg/models"
	_ "liyu1981.xyz/llm-cost-service/pkg/testing"
)

func TestDeviceStats(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, meterObj, _, _, _ := GetMockMeterWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	deviceID := newDeviceID()
	withUnitPrice(t, meterObj, deviceID)

	e1 := dollars("a", 2, testNow.Add(-time.Hour))
	e1.Tools = "Read,Bash"
	e2 := dollars("a", 1, testNow.Add(-30*time.Minute))
	e2.Tools = "Read"
	e3 := models.IngestEvent{SessionID: "b", Model: "other-model", InputTokens: 1_000_000, Timestamp: "2026-03-09T10:00:00Z"}
	old := dollars("c", 5, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	for _, e := range []*models.IngestEvent{&e1, &e2, &e3, &old} {
		e.Project = "p"
	}

	_, err := meterObj.Event.Ingest(deviceID, []models.IngestEvent{e1, e2, e3, old})
	require.NoError(t, err)

	stats, err := meterObj.Stats.DeviceStats(deviceID, 7)
	require.NoError(t, err)

	assert.Equal(t, 7, stats.Days)
	assert.Equal(t, int64(3), stats.TotalRequests)
	assert.Equal(t, 6.0, stats.TotalCostUSD)
	assert.Equal(t, 2.0, stats.AvgCostPerRequest)
	assert.Equal(t, int64(4_000_000), stats.TotalTokens)
	require.NotNil(t, stats.TopModel)
	assert.Equal(t, unitModel, *stats.TopModel)

	assert.Equal(t, []models.ModelStat{
		{Model: "other-model", Count: 1, CostUSD: 3, Tokens: 1_000_000},
		{Model: unitModel, Count: 2, CostUSD: 3, Tokens: 3_000_000},
	}, stats.Models)

	assert.Equal(t, []models.ProjectStat{{Project: "p", Count: 3, CostUSD: 6, Sessions: 2}}, stats.Projects)

	assert.Equal(t, []models.DailyCost{
		{Date: "2026-03-09", CostUSD: 3},
		{Date: "2026-03-10", CostUSD: 3},
	}, stats.Timeseries)

	require.Len(t, stats.Sessions, 2)
	assert.Equal(t, "a", stats.Sessions[0].SessionID)
	assert.Equal(t, int64(2), stats.Sessions[0].Requests)
	assert.Equal(t, 3.0, stats.Sessions[0].CostUSD)
	assert.True(t, stats.Sessions[0].LastActive.Equal(testNow.Add(-30*time.Minute)))
	assert.Equal(t, "b", stats.Sessions[1].SessionID)

	assert.Equal(t, []models.ToolStat{
		{Tool: "Read", Count: 2, CostUSD: 3},
		{Tool: "Bash", Count: 1, CostUSD: 2},
	}, stats.Tools)

	// days are clamped to at least one
	stats, err = meterObj.Stats.DeviceStats(deviceID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Days)
	assert.Equal(t, int64(2), stats.TotalRequests)
}

func TestDeviceStatsEmpty(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, meterObj, _, _, _ := GetMockMeterWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	stats, err := meterObj.Stats.DeviceStats(newDeviceID(), 30)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalRequests)
	assert.Zero(t, stats.AvgCostPerRequest)
	assert.Nil(t, stats.TopModel)
	assert.Empty(t, stats.Models)
	assert.NotNil(t, stats.Timeseries)
	assert.NotNil(t, stats.Sessions)
}

func TestClampDays(t *testing.T) {
	assert.Equal(t, 1, ClampDays(-5))
	assert.Equal(t, 1, ClampDays(0))
	assert.Equal(t, 30, ClampDays(30))
	assert.Equal(t, 365, ClampDays(1000))
}

func TestOptimizationSuggestions(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, meterObj, _, _, _ := GetMockMeterWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	deviceID := newDeviceID()

	events := []models.IngestEvent{{
		SessionID:   "s-big",
		Model:       "claude-opus-4-6",
		Project:     "p1",
		InputTokens: 1_000_000,
		Tools:       "Bash",
		Timestamp:   testNow.Add(-time.Hour).Format(time.RFC3339),
	}}
	for i := range 9 {
		events = append(events, models.IngestEvent{
			SessionID: fmt.Sprintf("s-small-%d", i),
			Model:     "claude-haiku-4-5-20251001",
			Project:   "p1",
			Timestamp: testNow.Add(-time.Hour).Format(time.RFC3339),
		})
	}
	_, err := meterObj.Event.Ingest(deviceID, events)
	require.NoError(t, err)

	suggestions, err := meterObj.Stats.OptimizationSuggestions(deviceID, 7)
	require.NoError(t, err)
	require.Len(t, suggestions, 3)

	// ties keep generation order
	assert.Equal(t, models.SuggestionExpensiveTool, suggestions[0].Type)
	assert.Equal(t, "Bash", suggestions[0].Tool)
	assert.Equal(t, 15.0, suggestions[0].TotalCost)
	assert.Equal(t, "Tool 'Bash' costs $15.0000/use avg ($15.00 total, 1 uses). Consider if all uses need the current model tier.",
		suggestions[0].Message)

	assert.Equal(t, models.SuggestionSessionOutlier, suggestions[1].Type)
	assert.Equal(t, "s-big", suggestions[1].SessionID)
	assert.Equal(t, 1.5, suggestions[1].AvgSessionCost)
	assert.Equal(t, "Session s-big... cost $15.00 (1 requests), 10.0x the average session cost.", suggestions[1].Message)

	assert.Equal(t, models.SuggestionModelDowngrade, suggestions[2].Type)
	assert.Equal(t, "high", suggestions[2].Severity)
	assert.Equal(t, "p1", suggestions[2].Project)
	assert.Equal(t, 12.0, suggestions[2].EstimatedSavings)
	assert.Equal(t, "Project 'p1' spent $15.00 on Opus (1 requests). Switching to Sonnet could save ~$12.00/week.",
		suggestions[2].Message)
}

func TestOptimizationSuggestionsNone(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, meterObj, _, _, _ := GetMockMeterWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	deviceID := newDeviceID()
	_, err := meterObj.Event.Ingest(deviceID, []models.IngestEvent{
		{SessionID: "s", Model: "claude-haiku-4-5-20251001", Project: "p", InputTokens: 1000},
	})
	require.NoError(t, err)

	suggestions, err := meterObj.Stats.OptimizationSuggestions(deviceID, 7)
	require.NoError(t, err)
	assert.NotNil(t, suggestions)
	assert.Empty(t, suggestions)
}

func TestCommunityStats(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, meterObj, _, _, _ := GetMockMeterWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	before, err := meterObj.Stats.CommunityStats()
	require.NoError(t, err)

	for range 2 {
		_, err := meterObj.Event.Ingest(newDeviceID(), []models.IngestEvent{{Model: "m"}})
		require.NoError(t, err)
	}

	after, err := meterObj.Stats.CommunityStats()
	require.NoError(t, err)
	assert.Equal(t, before.ActiveDevices+2, after.ActiveDevices)
	assert.Equal(t, before.TotalEvents7d+2, after.TotalEvents7d)
}
