package models

import (
	"time"

	"liyu1981.xyz/llm-cost-service/pkg/pricing"
)

type IngestResult struct {
	Ingested  int     `json:"ingested"`
	NewAlerts []Alert `json:"-"`
}

// AlertSetting is the effective threshold and switch of one alert type.
type AlertSetting struct {
	Threshold float64 `json:"threshold"`
	Enabled   bool    `json:"enabled"`
}

type ModelUsage struct {
	Model            string         `json:"model"`
	Provider         string         `json:"provider"`
	Count            int64          `json:"count"`
	EffectivePricing pricing.Prices `gorm:"-" json:"effective_pricing"`
	Source           pricing.Source `gorm:"-" json:"source"`
}

type DailyCost struct {
	Date    string  `json:"date"`
	CostUSD float64 `json:"cost_usd"`
}

type ModelStat struct {
	Model   string  `json:"model"`
	Count   int64   `json:"count"`
	CostUSD float64 `json:"cost_usd"`
	Tokens  int64   `json:"tokens"`
}

type ProjectStat struct {
	Project  string  `json:"project"`
	Count    int64   `json:"count"`
	CostUSD  float64 `json:"cost_usd"`
	Sessions int64   `json:"sessions"`
}

type SessionStat struct {
	SessionID  string    `json:"session_id"`
	Project    string    `json:"project"`
	Requests   int64     `json:"requests"`
	CostUSD    float64   `json:"cost_usd"`
	LastActive time.Time `json:"last_active"`
}

type ToolStat struct {
	Tool    string  `json:"tool"`
	Count   int64   `json:"count"`
	CostUSD float64 `json:"cost_usd"`
}

type DeviceStats struct {
	DeviceID          string        `json:"device_id"`
	Days              int           `json:"days"`
	TotalRequests     int64         `json:"total_requests"`
	TotalCostUSD      float64       `json:"total_cost_usd"`
	AvgCostPerRequest float64       `json:"avg_cost_per_request"`
	TotalTokens       int64         `json:"total_tokens"`
	TopModel          *string       `json:"top_model"`
	Timeseries        []DailyCost   `json:"timeseries"`
	Models            []ModelStat   `json:"models"`
	Projects          []ProjectStat `json:"projects"`
	Sessions          []SessionStat `json:"sessions"`
	Tools             []ToolStat    `json:"tools"`
}

const (
	SuggestionModelDowngrade = "model_downgrade"
	SuggestionExpensiveTool  = "expensive_tool"
	SuggestionSessionOutlier = "session_outlier"
)

type Suggestion struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`

	Project          string  `json:"project,omitempty"`
	CurrentModel     string  `json:"current_model,omitempty"`
	SuggestedModel   string  `json:"suggested_model,omitempty"`
	CurrentCost      float64 `json:"current_cost,omitempty"`
	EstimatedSavings float64 `json:"estimated_savings,omitempty"`
	AffectedRequests int64   `json:"affected_requests,omitempty"`

	Tool          string  `json:"tool,omitempty"`
	TotalCost     float64 `json:"total_cost,omitempty"`
	AvgCostPerUse float64 `json:"avg_cost_per_use,omitempty"`
	Count         int64   `json:"count,omitempty"`

	SessionID      string  `json:"session_id,omitempty"`
	Cost           float64 `json:"cost,omitempty"`
	Requests       int64   `json:"requests,omitempty"`
	AvgSessionCost float64 `json:"avg_session_cost,omitempty"`
}

func (s *Suggestion) Impact() float64 {
	switch s.Type {
	case SuggestionModelDowngrade:
		return s.EstimatedSavings
	case SuggestionExpensiveTool:
		return s.TotalCost
	default:
		return s.Cost
	}
}

type CommunityStats struct {
	ActiveDevices     int64   `json:"active_devices"`
	TotalEvents7d     int64   `json:"total_events_7d"`
	AvgCostPerRequest float64 `json:"community_avg_cost_per_request"`
}
