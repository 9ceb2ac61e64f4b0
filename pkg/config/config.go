// Package config loads the deployment configuration file.
//
// The file is YAML and every key is optional:
//
//	data_paths: ["~/.openclaw/agents", "~/.claude/projects"]
//	cache_ttl_seconds: 60
//	watch_data_paths: true
//	anomaly_threshold: 0.25
//	server_host: 0.0.0.0
//	server_port: 19898
//	pricing:
//	  provider_defaults:
//	    nvidia: {input: 0, output: 0, cache_read: 0, cache_write: 0}
//	alerts:
//	  daily_budget_usd: 10
//	  dedup_window_minutes: 60
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"liyu1981.xyz/llm-cost-service/pkg/common"
	"liyu1981.xyz/llm-cost-service/pkg/models"
	"liyu1981.xyz/llm-cost-service/pkg/pricing"
)

const DefaultPath = "~/.costmeter/config.yaml"

type Config struct {
	DataPaths        []string      `yaml:"data_paths"`
	CacheTTLSeconds  int           `yaml:"cache_ttl_seconds"`
	WatchDataPaths   bool          `yaml:"watch_data_paths"`
	AnomalyThreshold float64       `yaml:"anomaly_threshold"`
	ServerHost       string        `yaml:"server_host"`
	ServerPort       int           `yaml:"server_port"`
	Pricing          PricingConfig `yaml:"pricing"`
	Alerts           AlertDefaults `yaml:"alerts"`
}

type PricingConfig struct {
	ProviderDefaults map[string]pricing.Prices `yaml:"provider_defaults"`
}

// AlertDefaults are the deployment-level thresholds, applied before any
// per-device alert config row.
type AlertDefaults struct {
	DailyBudgetUSD         float64 `yaml:"daily_budget_usd" json:"daily_budget_usd"`
	SessionSpikeUSD        float64 `yaml:"session_spike_usd" json:"session_spike_usd"`
	HourlyBurnRateUSD      float64 `yaml:"hourly_burn_rate_usd" json:"hourly_burn_rate_usd"`
	HourlyRequestVolume    float64 `yaml:"hourly_request_volume" json:"hourly_request_volume"`
	HourlyTokenVolume      float64 `yaml:"hourly_token_volume" json:"hourly_token_volume"`
	SessionDurationMinutes float64 `yaml:"session_duration_minutes" json:"session_duration_minutes"`
	DedupWindowMinutes     int     `yaml:"dedup_window_minutes" json:"dedup_window_minutes"`
}

func DefaultAlertDefaults() AlertDefaults {
	return AlertDefaults{
		DailyBudgetUSD:         10.0,
		SessionSpikeUSD:        5.0,
		HourlyBurnRateUSD:      3.0,
		HourlyRequestVolume:    200,
		HourlyTokenVolume:      2_000_000,
		SessionDurationMinutes: 180,
		DedupWindowMinutes:     60,
	}
}

func (a AlertDefaults) Threshold(t models.AlertType) float64 {
	switch t {
	case models.AlertTypeDailyBudget:
		return a.DailyBudgetUSD
	case models.AlertTypeSessionSpike:
		return a.SessionSpikeUSD
	case models.AlertTypeHourlyBurnRate:
		return a.HourlyBurnRateUSD
	case models.AlertTypeHourlyRequestVolume:
		return a.HourlyRequestVolume
	case models.AlertTypeHourlyTokenVolume:
		return a.HourlyTokenVolume
	case models.AlertTypeSessionDuration:
		return a.SessionDurationMinutes
	}
	return 0
}

func (a AlertDefaults) DedupWindow() time.Duration {
	return time.Duration(a.DedupWindowMinutes) * time.Minute
}

func Default() *Config {
	return &Config{
		DataPaths:        []string{"~/.openclaw/agents", "~/.claude/projects"},
		CacheTTLSeconds:  60,
		WatchDataPaths:   false,
		AnomalyThreshold: 0.25,
		ServerHost:       "0.0.0.0",
		ServerPort:       19898,
		Pricing:          PricingConfig{ProviderDefaults: map[string]pricing.Prices{}},
		Alerts:           DefaultAlertDefaults(),
	}
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(common.ExpandHome(path))
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.CacheTTLSeconds < 0 {
		return fmt.Errorf("config: cache_ttl_seconds must not be negative")
	}
	if c.AnomalyThreshold < 0 {
		return fmt.Errorf("config: anomaly_threshold must not be negative")
	}
	if c.Alerts.DedupWindowMinutes < 0 {
		return fmt.Errorf("config: alerts.dedup_window_minutes must not be negative")
	}
	for _, t := range models.AlertTypes {
		if c.Alerts.Threshold(t) < 0 {
			return fmt.Errorf("config: alert threshold for %s must not be negative", t)
		}
	}
	for provider, p := range c.Pricing.ProviderDefaults {
		if p.Input < 0 || p.Output < 0 || p.CacheRead < 0 || p.CacheWrite < 0 {
			return fmt.Errorf("config: provider_defaults.%s prices must not be negative", provider)
		}
	}
	if c.Pricing.ProviderDefaults == nil {
		c.Pricing.ProviderDefaults = map[string]pricing.Prices{}
	}
	return nil
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c *Config) HostPort() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}
