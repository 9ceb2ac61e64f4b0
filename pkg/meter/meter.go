package meter

//go:generate mockgen -destination=mocks/mocks.go -package=mocks liyu1981.xyz/llm-cost-service/pkg/meter IDevice,IEvent,IAlert,IPricing,IStats

import (
	"time"

	"liyu1981.xyz/llm-cost-service/pkg/config"
	"liyu1981.xyz/llm-cost-service/pkg/db"
	"liyu1981.xyz/llm-cost-service/pkg/models"
	"liyu1981.xyz/llm-cost-service/pkg/pricing"
)

type IDevice interface {
	RegisterDevice() (string, string, error)
	ClaimDevice(deviceID string) (string, bool, error)
	VerifyDeviceSecret(deviceID string, secret string) (bool, error)
	EnsureDevice(deviceID string) error
	GetDevice(deviceID string) (*models.Device, error)
	GetTier(deviceID string) (models.Tier, error)
	SetTier(deviceID string, tier models.Tier) error
	FirstProject(deviceID string) (string, error)
}

type IEvent interface {
	Ingest(deviceID string, events []models.IngestEvent) (*models.IngestResult, error)
	RecalculateDeviceCosts(deviceID string) (int, error)
	ClearDeviceEvents(deviceID string) (int64, error)
}

type IAlert interface {
	CheckAlerts(deviceID string) ([]models.Alert, error)
	CreateAlert(alert *models.Alert) (uint, bool, error)
	GetDeviceAlerts(deviceID string, acknowledged *bool) ([]models.Alert, error)
	AcknowledgeAlert(deviceID string, alertID uint) (bool, error)
	ActiveAlertCount(deviceID string) (int64, error)
	GetAlertConfig(deviceID string) (map[models.AlertType]models.AlertSetting, error)
	SetAlertConfig(deviceID string, alertType models.AlertType, threshold float64, enabled bool) error
}

type IPricing interface {
	GetPricingConfig(deviceID string) ([]models.PricingOverride, error)
	SetPricingConfig(deviceID string, input *models.PricingOverride) error
	DeletePricingConfig(deviceID string, model string, provider string) (bool, error)
	LoadOverrides(deviceID string) (pricing.DeviceOverrides, error)
	ResolvePricing(deviceID string, model string, provider string) (pricing.Prices, pricing.Source, error)
	DeviceModels(deviceID string) ([]models.ModelUsage, error)
}

type IStats interface {
	DeviceStats(deviceID string, days int) (*models.DeviceStats, error)
	OptimizationSuggestions(deviceID string, days int) ([]models.Suggestion, error)
	CommunityStats() (*models.CommunityStats, error)
}

// Meter is the usage metering engine: event store, alert rules, pricing
// overrides and device identity over one database.
type Meter struct {
	Db            db.DB
	Resolver      *pricing.Resolver
	AlertDefaults config.AlertDefaults
	Now           func() time.Time

	Device  IDevice
	Event   IEvent
	Alert   IAlert
	Pricing IPricing
	Stats   IStats
}

type ServiceOpts struct {
	Device  IDevice
	Event   IEvent
	Alert   IAlert
	Pricing IPricing
	Stats   IStats
}

// New wires a Meter with its own service implementations.
func New(database db.DB, resolver *pricing.Resolver, alertDefaults config.AlertDefaults) *Meter {
	if resolver == nil {
		resolver = pricing.NewResolver(pricing.DefaultCatalog(), nil)
	}
	if alertDefaults == (config.AlertDefaults{}) {
		alertDefaults = config.DefaultAlertDefaults()
	}
	m := &Meter{
		Db:            database,
		Resolver:      resolver,
		AlertDefaults: alertDefaults,
	}
	return m.WithServices(ServiceOpts{
		Device:  m.GetIDevice(),
		Event:   m.GetIEvent(),
		Alert:   m.GetIAlert(),
		Pricing: m.GetIPricing(),
		Stats:   m.GetIStats(),
	})
}

func (m *Meter) WithServices(opts ServiceOpts) *Meter {
	if opts.Device != nil {
		m.Device = opts.Device
	}
	if opts.Event != nil {
		m.Event = opts.Event
	}
	if opts.Alert != nil {
		m.Alert = opts.Alert
	}
	if opts.Pricing != nil {
		m.Pricing = opts.Pricing
	}
	if opts.Stats != nil {
		m.Stats = opts.Stats
	}
	return m
}

// now is always UTC; stored timestamps compare as UTC strings in sqlite.
func (m *Meter) now() time.Time {
	if m.Now != nil {
		return m.Now().UTC()
	}
	return time.Now().UTC()
}
