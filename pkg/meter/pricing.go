package meter

import (
	"math"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"
	"liyu1981.xyz/llm-cost-service/pkg/common"
	"liyu1981.xyz/llm-cost-service/pkg/models"
	"liyu1981.xyz/llm-cost-service/pkg/pricing"
)

func pricingLogger() *zap.Logger {
	return common.GetLoggerWith(
		common.LoggerNameMeterCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryPricing),
	)
}

func overridePrices(o *models.PricingOverride) pricing.Prices {
	return pricing.Prices{
		Input:      o.InputPrice,
		Output:     o.OutputPrice,
		CacheRead:  o.CacheReadPrice,
		CacheWrite: o.CacheWritePrice,
	}
}

func validPrice(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func (m *Meter) getPricingConfig(deviceID string) ([]models.PricingOverride, error) {
	overrides := []models.PricingOverride{}
	err := m.Db.Conn.Where("device_id = ?", deviceID).Order("model, provider").Find(&overrides).Error
	return overrides, err
}

func (m *Meter) setPricingConfig(deviceID string, input *models.PricingOverride) error {
	if input == nil || input.Model == "" {
		return invalidf("model is required")
	}
	for name, v := range map[string]float64{
		"input_price":       input.InputPrice,
		"output_price":      input.OutputPrice,
		"cache_read_price":  input.CacheReadPrice,
		"cache_write_price": input.CacheWritePrice,
	} {
		if !validPrice(v) {
			return invalidf("%s must be a non-negative number", name)
		}
	}

	override := models.PricingOverride{
		DeviceID:        deviceID,
		Model:           input.Model,
		Provider:        input.Provider,
		InputPrice:      input.InputPrice,
		OutputPrice:     input.OutputPrice,
		CacheReadPrice:  input.CacheReadPrice,
		CacheWritePrice: input.CacheWritePrice,
	}

	pricingLogger().Info("Received pricing override for device", zap.String("device_id", deviceID), zap.Reflect("override", override))

	err := m.Db.Conn.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "device_id"}, {Name: "model"}, {Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"input_price", "output_price", "cache_read_price", "cache_write_price",
		}),
	}).Create(&override).Error

	if err == nil {
		pricingLogger().Info("Upserted pricing override for device", zap.String("device_id", deviceID))
	}
	return err
}

func (m *Meter) deletePricingConfig(deviceID string, model string, provider string) (bool, error) {
	res := m.Db.Conn.
		Where("device_id = ? AND model = ? AND provider = ?", deviceID, model, provider).
		Delete(&models.PricingOverride{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// loadOverrides turns the device's override rows into resolver state. A "*"
// row is a provider wildcard; with an empty provider it matches events that
// carry no provider.
func (m *Meter) loadOverrides(deviceID string) (pricing.DeviceOverrides, error) {
	dev := pricing.NewDeviceOverrides()

	var rows []models.PricingOverride
	if err := m.Db.Conn.Where("device_id = ?", deviceID).Find(&rows).Error; err != nil {
		return dev, err
	}
	for i := range rows {
		if rows[i].Model == models.WildcardModel {
			dev.AddProvider(rows[i].Provider, overridePrices(&rows[i]))
			continue
		}
		dev.AddModel(rows[i].Model, rows[i].Provider, overridePrices(&rows[i]))
	}
	return dev, nil
}

func (m *Meter) resolvePricing(deviceID string, model string, provider string) (pricing.Prices, pricing.Source, error) {
	dev, err := m.loadOverrides(deviceID)
	if err != nil {
		return pricing.Prices{}, "", err
	}
	p, source := m.Resolver.Resolve(model, provider, dev)
	return p, source, nil
}

func (m *Meter) deviceModels(deviceID string) ([]models.ModelUsage, error) {
	usage := []models.ModelUsage{}
	err := m.Db.Conn.Model(&models.Event{}).
		Select("model, provider, COUNT(*) AS count").
		Where("device_id = ? AND model <> ''", deviceID).
		Group("model, provider").
		Order("count DESC, model, provider").
		Scan(&usage).Error
	if err != nil {
		return nil, err
	}

	dev, err := m.loadOverrides(deviceID)
	if err != nil {
		return nil, err
	}
	for i := range usage {
		usage[i].EffectivePricing, usage[i].Source = m.Resolver.Resolve(usage[i].Model, usage[i].Provider, dev)
	}
	return usage, nil
}

type IPricingImpl struct {
	meter *Meter
}

func (ip *IPricingImpl) GetPricingConfig(deviceID string) ([]models.PricingOverride, error) {
	return ip.meter.getPricingConfig(deviceID)
}

func (ip *IPricingImpl) SetPricingConfig(deviceID string, input *models.PricingOverride) error {
	return ip.meter.setPricingConfig(deviceID, input)
}

func (ip *IPricingImpl) DeletePricingConfig(deviceID string, model string, provider string) (bool, error) {
	return ip.meter.deletePricingConfig(deviceID, model, provider)
}

func (ip *IPricingImpl) LoadOverrides(deviceID string) (pricing.DeviceOverrides, error) {
	return ip.meter.loadOverrides(deviceID)
}

func (ip *IPricingImpl) ResolvePricing(deviceID string, model string, provider string) (pricing.Prices, pricing.Source, error) {
	return ip.meter.resolvePricing(deviceID, model, provider)
}

func (ip *IPricingImpl) DeviceModels(deviceID string) ([]models.ModelUsage, error) {
	return ip.meter.deviceModels(deviceID)
}

func (m *Meter) GetIPricing() IPricing {
	return &IPricingImpl{meter: m}
}
