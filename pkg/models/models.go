package models

import "time"

type AlertType string

const (
	AlertTypeDailyBudget         AlertType = "daily_budget"
	AlertTypeSessionSpike        AlertType = "session_spike"
	AlertTypeHourlyBurnRate      AlertType = "hourly_burn_rate"
	AlertTypeHourlyRequestVolume AlertType = "hourly_request_volume"
	AlertTypeHourlyTokenVolume   AlertType = "hourly_token_volume"
	AlertTypeSessionDuration     AlertType = "session_duration"
)

// AlertTypes is the evaluation order of the alert checks.
var AlertTypes = []AlertType{
	AlertTypeDailyBudget,
	AlertTypeSessionSpike,
	AlertTypeHourlyBurnRate,
	AlertTypeHourlyRequestVolume,
	AlertTypeHourlyTokenVolume,
	AlertTypeSessionDuration,
}

func (t AlertType) Valid() bool {
	for _, at := range AlertTypes {
		if at == t {
			return true
		}
	}
	return false
}

// SessionScoped alert types dedup per session id instead of per device.
func (t AlertType) SessionScoped() bool {
	return t == AlertTypeSessionSpike || t == AlertTypeSessionDuration
}

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
)

const WildcardModel = "*"

type Device struct {
	DeviceID   string    `gorm:"primaryKey;type:varchar(64)" json:"device_id"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeen   time.Time `json:"last_seen"`
	Tier       Tier      `gorm:"type:varchar(8);not null;default:free;check:tier IN ('free','pro')" json:"tier"`
	Nickname   string    `json:"nickname,omitempty"`
	SecretHash string    `json:"-"`

	Events           []Event           `gorm:"foreignKey:DeviceID;references:DeviceID" json:"-"`
	PricingOverrides []PricingOverride `gorm:"foreignKey:DeviceID;references:DeviceID" json:"-"`
	AlertConfigs     []AlertConfig     `gorm:"foreignKey:DeviceID;references:DeviceID" json:"-"`
	Alerts           []Alert           `gorm:"foreignKey:DeviceID;references:DeviceID" json:"-"`
}

type Event struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	DeviceID         string    `gorm:"index;index:idx_events_device_ts,priority:1;type:varchar(64);not null" json:"device_id"`
	SessionID        string    `gorm:"index" json:"session_id,omitempty"`
	EventType        string    `gorm:"not null;default:llm.usage" json:"event_type"`
	ToolName         string    `json:"tool_name,omitempty"`
	Model            string    `gorm:"index" json:"model"`
	Project          string    `json:"project,omitempty"`
	Provider         string    `json:"provider"`
	InputTokens      int64     `json:"input_tokens"`
	OutputTokens     int64     `json:"output_tokens"`
	CacheReadTokens  int64     `json:"cache_read_tokens"`
	CacheWriteTokens int64     `json:"cache_write_tokens"`
	LatencyMs        *int64    `json:"latency_ms,omitempty"`
	CostUSD          float64   `json:"cost_usd"`
	Success          bool      `gorm:"not null" json:"success"`
	Timestamp        time.Time `gorm:"index;index:idx_events_device_ts,priority:2;not null" json:"timestamp"`
	Tools            string    `json:"tools,omitempty"`
}

func (e *Event) TotalTokens() int64 {
	return e.InputTokens + e.OutputTokens + e.CacheReadTokens + e.CacheWriteTokens
}

// PricingOverride prices are USD per million tokens. Model "*" with a provider
// is a wildcard for every model of that provider.
type PricingOverride struct {
	DeviceID        string  `gorm:"primaryKey;type:varchar(64)" json:"-"`
	Model           string  `gorm:"primaryKey" json:"model"`
	Provider        string  `gorm:"primaryKey;not null" json:"provider"`
	InputPrice      float64 `gorm:"not null" json:"input_price"`
	OutputPrice     float64 `gorm:"not null" json:"output_price"`
	CacheReadPrice  float64 `gorm:"not null" json:"cache_read_price"`
	CacheWritePrice float64 `gorm:"not null" json:"cache_write_price"`
}

func (p *PricingOverride) IsProviderWildcard() bool {
	return p.Model == WildcardModel && p.Provider != ""
}

type AlertConfig struct {
	DeviceID  string    `gorm:"primaryKey;type:varchar(64)" json:"-"`
	AlertType AlertType `gorm:"primaryKey;type:varchar(32)" json:"alert_type"`
	Threshold float64   `gorm:"not null" json:"threshold"`
	Enabled   bool      `gorm:"not null" json:"enabled"`
}

type Alert struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	DeviceID     string         `gorm:"index;index:idx_alerts_device_type,priority:1;type:varchar(64);not null" json:"device_id"`
	AlertType    AlertType      `gorm:"index:idx_alerts_device_type,priority:2;type:varchar(32);not null;check:alert_type IN ('daily_budget','session_spike','hourly_burn_rate','hourly_request_volume','hourly_token_volume','session_duration')" json:"alert_type"`
	Severity     Severity       `gorm:"type:varchar(8);not null;check:severity IN ('warning','critical')" json:"severity"`
	Message      string         `gorm:"not null" json:"message"`
	Details      map[string]any `gorm:"serializer:json" json:"details,omitempty"`
	SessionID    string         `gorm:"index" json:"-"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
	Acknowledged bool           `gorm:"not null" json:"acknowledged"`
}

// IngestEvent is one usage record as pushed by a device. CostUSD is accepted
// for compatibility and always replaced by the server-side computation.
type IngestEvent struct {
	SessionID        string  `json:"session_id"`
	EventType        string  `json:"event_type"`
	ToolName         string  `json:"tool_name"`
	Model            string  `json:"model"`
	Project          string  `json:"project"`
	Provider         string  `json:"provider"`
	InputTokens      int64   `json:"input_tokens"`
	OutputTokens     int64   `json:"output_tokens"`
	CacheReadTokens  int64   `json:"cache_read_tokens"`
	CacheWriteTokens int64   `json:"cache_write_tokens"`
	LatencyMs        *int64  `json:"latency_ms"`
	CostUSD          float64 `json:"cost_usd"`
	Success          *bool   `json:"success"`
	Timestamp        string  `json:"timestamp"`
	Tools            string  `json:"tools"`
}
