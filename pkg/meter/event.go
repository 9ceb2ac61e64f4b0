package meter

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"liyu1981.xyz/llm-cost-service/pkg/common"
	"liyu1981.xyz/llm-cost-service/pkg/metrics"
	"liyu1981.xyz/llm-cost-service/pkg/models"
	"liyu1981.xyz/llm-cost-service/pkg/pricing"
)

const (
	MaxIngestBatch    = 500
	recalculateBatch  = 1000
	defaultEventType  = "llm.usage"
	insertBatchSize   = 100
	defaultEventModel = "unknown"
)

func (m *Meter) toEvent(deviceID string, in models.IngestEvent, now time.Time) (models.Event, error) {
	for name, v := range map[string]int64{
		"input_tokens":       in.InputTokens,
		"output_tokens":      in.OutputTokens,
		"cache_read_tokens":  in.CacheReadTokens,
		"cache_write_tokens": in.CacheWriteTokens,
	} {
		if v < 0 {
			return models.Event{}, invalidf("%s must not be negative", name)
		}
	}

	ts := now
	if in.Timestamp != "" {
		parsed, err := common.ParseTimestamp(in.Timestamp)
		if err != nil {
			return models.Event{}, invalidf("%v", err)
		}
		ts = parsed
	}

	event := models.Event{
		DeviceID:         deviceID,
		SessionID:        in.SessionID,
		EventType:        in.EventType,
		ToolName:         in.ToolName,
		Model:            in.Model,
		Project:          in.Project,
		Provider:         in.Provider,
		InputTokens:      in.InputTokens,
		OutputTokens:     in.OutputTokens,
		CacheReadTokens:  in.CacheReadTokens,
		CacheWriteTokens: in.CacheWriteTokens,
		LatencyMs:        in.LatencyMs,
		Success:          in.Success == nil || *in.Success,
		Timestamp:        ts,
		Tools:            in.Tools,
	}
	if event.EventType == "" {
		event.EventType = defaultEventType
	}
	return event, nil
}

func eventTokens(e *models.Event) pricing.Tokens {
	return pricing.Tokens{
		Input:      e.InputTokens,
		Output:     e.OutputTokens,
		CacheRead:  e.CacheReadTokens,
		CacheWrite: e.CacheWriteTokens,
	}
}

func (m *Meter) eventCost(e *models.Event, dev pricing.DeviceOverrides) float64 {
	model := e.Model
	if model == "" {
		model = defaultEventModel
	}
	total, _ := m.Resolver.Cost(model, e.Provider, eventTokens(e), dev)
	return total
}

func (m *Meter) ingest(deviceID string, input []models.IngestEvent) (*models.IngestResult, error) {
	logger := common.GetLoggerWith(
		common.LoggerNameMeterCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryEvent),
	)

	if len(input) == 0 {
		return nil, invalidf("non-empty events array required")
	}
	if len(input) > MaxIngestBatch {
		return nil, invalidf("max %d events per batch", MaxIngestBatch)
	}

	if m.Device == nil || m.Pricing == nil {
		return nil, fmt.Errorf("device or pricing service not available")
	}

	now := m.now()
	events := make([]models.Event, 0, len(input))
	for i, in := range input {
		event, err := m.toEvent(deviceID, in, now)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		events = append(events, event)
	}

	tier, err := m.Device.GetTier(deviceID)
	if err != nil {
		return nil, err
	}
	if tier == models.TierFree {
		allowed, err := m.Device.FirstProject(deviceID)
		if err != nil {
			return nil, err
		}
		if allowed != "" {
			events = common.Filter(events, func(e models.Event) bool { return e.Project == allowed })
			if len(events) == 0 {
				metrics.Get().IngestBatches.WithLabelValues("tier_limited").Inc()
				return nil, &TierLimitError{AllowedProject: allowed}
			}
		}
	}

	if err := m.Device.EnsureDevice(deviceID); err != nil {
		return nil, err
	}

	dev, err := m.Pricing.LoadOverrides(deviceID)
	if err != nil {
		return nil, err
	}
	for i := range events {
		events[i].CostUSD = m.eventCost(&events[i], dev)
	}

	logger.Info("Received events for device", zap.String("device_id", deviceID), zap.Int("count", len(events)))

	err = m.Db.Conn.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&events, insertBatchSize).Error
	})
	if err != nil {
		metrics.Get().IngestBatches.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.Get().EventsIngested.Add(float64(len(events)))
	metrics.Get().IngestBatches.WithLabelValues("ok").Inc()
	logger.Info("Stored events for device", zap.String("device_id", deviceID), zap.Int("count", len(events)))

	if m.Alert == nil {
		return nil, fmt.Errorf("alert service not available")
	}

	created, err := m.Alert.CheckAlerts(deviceID)
	if err != nil {
		return nil, err
	}

	return &models.IngestResult{Ingested: len(events), NewAlerts: created}, nil
}

// recalculateDeviceCosts reprices every stored event of the device with the
// current overrides, in id order and chunked transactions.
func (m *Meter) recalculateDeviceCosts(deviceID string) (int, error) {
	logger := common.GetLoggerWith(
		common.LoggerNameMeterCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryPricing),
	)

	if m.Pricing == nil {
		return 0, fmt.Errorf("pricing service not available")
	}

	dev, err := m.Pricing.LoadOverrides(deviceID)
	if err != nil {
		return 0, err
	}

	updated := 0
	var batch []models.Event
	err = m.Db.Conn.
		Select("id", "model", "provider", "input_tokens", "output_tokens", "cache_read_tokens", "cache_write_tokens").
		Where("device_id = ?", deviceID).
		FindInBatches(&batch, recalculateBatch, func(tx *gorm.DB, _ int) error {
			return m.Db.Conn.Transaction(func(wtx *gorm.DB) error {
				for i := range batch {
					cost := m.eventCost(&batch[i], dev)
					if err := wtx.Model(&models.Event{}).Where("id = ?", batch[i].ID).Update("cost_usd", cost).Error; err != nil {
						return err
					}
				}
				updated += len(batch)
				return nil
			})
		}).Error
	if err != nil {
		return updated, err
	}

	metrics.Get().EventsRecalculated.Add(float64(updated))
	logger.Info("Recalculated event costs", zap.String("device_id", deviceID), zap.Int("events_updated", updated))
	return updated, nil
}

func (m *Meter) clearDeviceEvents(deviceID string) (int64, error) {
	res := m.Db.Conn.Where("device_id = ?", deviceID).Delete(&models.Event{})
	if res.Error != nil {
		return 0, res.Error
	}
	common.GetLoggerWith(
		common.LoggerNameMeterCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryEvent),
	).Info("Cleared device events", zap.String("device_id", deviceID), zap.Int64("deleted", res.RowsAffected))
	return res.RowsAffected, nil
}

func splitTools(tools string) []string {
	var out []string
	for _, t := range strings.Split(tools, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

type IEventImpl struct {
	meter *Meter
}

func (ie *IEventImpl) Ingest(deviceID string, events []models.IngestEvent) (*models.IngestResult, error) {
	return ie.meter.ingest(deviceID, events)
}

func (ie *IEventImpl) RecalculateDeviceCosts(deviceID string) (int, error) {
	return ie.meter.recalculateDeviceCosts(deviceID)
}

func (ie *IEventImpl) ClearDeviceEvents(deviceID string) (int64, error) {
	return ie.meter.clearDeviceEvents(deviceID)
}

func (m *Meter) GetIEvent() IEvent {
	return &IEventImpl{meter: m}
}
