package meter

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"gorm.io/gorm/clause"
	"liyu1981.xyz/llm-cost-service/pkg/common"
	"liyu1981.xyz/llm-cost-service/pkg/metrics"
	"liyu1981.xyz/llm-cost-service/pkg/models"
)

const (
	criticalRatioDaily = 1.5
	criticalRatio      = 2.0
	sessionIDPrefixLen = 12
)

func alertLogger() *zap.Logger {
	return common.GetLoggerWith(
		common.LoggerNameMeterCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryAlert),
	)
}

// classify returns the ratio and severity of a triggered metric. A zero
// threshold reports the metric itself as the ratio.
func classify(alertType models.AlertType, metric, threshold float64) (float64, models.Severity) {
	ratio := metric
	if threshold > 0 {
		ratio = metric / threshold
	}
	cutoff := criticalRatio
	if alertType == models.AlertTypeDailyBudget {
		cutoff = criticalRatioDaily
	}
	if ratio >= cutoff {
		return ratio, models.SeverityCritical
	}
	return ratio, models.SeverityWarning
}

func dayStart(t time.Time) time.Time {
	y, mo, d := t.UTC().Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

func (m *Meter) getAlertConfig(deviceID string) (map[models.AlertType]models.AlertSetting, error) {
	settings := make(map[models.AlertType]models.AlertSetting, len(models.AlertTypes))
	for _, t := range models.AlertTypes {
		settings[t] = models.AlertSetting{Threshold: m.AlertDefaults.Threshold(t), Enabled: true}
	}

	var rows []models.AlertConfig
	if err := m.Db.Conn.Where("device_id = ?", deviceID).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		if !r.AlertType.Valid() {
			continue
		}
		settings[r.AlertType] = models.AlertSetting{Threshold: r.Threshold, Enabled: r.Enabled}
	}
	return settings, nil
}

func (m *Meter) setAlertConfig(deviceID string, alertType models.AlertType, threshold float64, enabled bool) error {
	if !alertType.Valid() {
		return invalidf("unknown alert_type %q", alertType)
	}
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) || threshold < 0 {
		return invalidf("threshold must be a non-negative number")
	}

	cfg := models.AlertConfig{
		DeviceID:  deviceID,
		AlertType: alertType,
		Threshold: threshold,
		Enabled:   enabled,
	}

	alertLogger().Info("Received alert config for device", zap.Reflect("config", cfg))

	err := m.Db.Conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}, {Name: "alert_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"threshold", "enabled"}),
	}).Create(&cfg).Error

	if err == nil {
		alertLogger().Info("Upserted alert config for device", zap.String("device_id", deviceID))
	}
	return err
}

type sessionCost struct {
	SessionID string
	Cost      float64
}

func (m *Meter) checkDailyBudget(deviceID string, threshold float64, now time.Time) ([]models.Alert, error) {
	start := dayStart(now)
	var cost float64
	err := m.Db.Conn.Model(&models.Event{}).
		Select("COALESCE(SUM(cost_usd), 0)").
		Where("device_id = ? AND timestamp >= ? AND timestamp < ?", deviceID, start, start.Add(24*time.Hour)).
		Scan(&cost).Error
	if err != nil || cost <= threshold {
		return nil, err
	}

	ratio, severity := classify(models.AlertTypeDailyBudget, cost, threshold)
	return []models.Alert{{
		DeviceID:  deviceID,
		AlertType: models.AlertTypeDailyBudget,
		Severity:  severity,
		Message:   fmt.Sprintf("Daily spend $%.2f exceeds $%.2f budget (%.1fx)", cost, threshold, ratio),
		Details: map[string]any{
			"today_cost": common.Round(cost, 4),
			"threshold":  threshold,
			"ratio":      common.Round(ratio, 2),
		},
	}}, nil
}

func (m *Meter) checkSessionSpike(deviceID string, threshold float64, now time.Time) ([]models.Alert, error) {
	var rows []sessionCost
	err := m.Db.Conn.Model(&models.Event{}).
		Select("session_id, SUM(cost_usd) AS cost").
		Where("device_id = ? AND session_id <> '' AND timestamp >= ?", deviceID, now.Add(-time.Hour)).
		Group("session_id").
		Having("SUM(cost_usd) > ?", threshold).
		Order("session_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	alerts := make([]models.Alert, 0, len(rows))
	for _, r := range rows {
		ratio, severity := classify(models.AlertTypeSessionSpike, r.Cost, threshold)
		alerts = append(alerts, models.Alert{
			DeviceID:  deviceID,
			AlertType: models.AlertTypeSessionSpike,
			Severity:  severity,
			SessionID: r.SessionID,
			Message: fmt.Sprintf("Session %s... cost $%.2f in last hour (threshold $%.2f)",
				common.Truncate(r.SessionID, sessionIDPrefixLen), r.Cost, threshold),
			Details: map[string]any{
				"session_id":   r.SessionID,
				"session_cost": common.Round(r.Cost, 4),
				"threshold":    threshold,
				"ratio":        common.Round(ratio, 2),
			},
		})
	}
	return alerts, nil
}

func (m *Meter) checkHourlyBurnRate(deviceID string, threshold float64, now time.Time) ([]models.Alert, error) {
	var cost float64
	err := m.Db.Conn.Model(&models.Event{}).
		Select("COALESCE(SUM(cost_usd), 0)").
		Where("device_id = ? AND timestamp >= ?", deviceID, now.Add(-time.Hour)).
		Scan(&cost).Error
	if err != nil || cost <= threshold {
		return nil, err
	}

	ratio, severity := classify(models.AlertTypeHourlyBurnRate, cost, threshold)
	return []models.Alert{{
		DeviceID:  deviceID,
		AlertType: models.AlertTypeHourlyBurnRate,
		Severity:  severity,
		Message:   fmt.Sprintf("Last hour spend $%.2f exceeds $%.2f/hr limit (%.1fx)", cost, threshold, ratio),
		Details: map[string]any{
			"hourly_cost": common.Round(cost, 4),
			"threshold":   threshold,
			"ratio":       common.Round(ratio, 2),
		},
	}}, nil
}

func (m *Meter) checkHourlyRequestVolume(deviceID string, threshold float64, now time.Time) ([]models.Alert, error) {
	var count int64
	err := m.Db.Conn.Model(&models.Event{}).
		Where("device_id = ? AND timestamp >= ?", deviceID, now.Add(-time.Hour)).
		Count(&count).Error
	if err != nil || float64(count) <= threshold {
		return nil, err
	}

	ratio, severity := classify(models.AlertTypeHourlyRequestVolume, float64(count), threshold)
	return []models.Alert{{
		DeviceID:  deviceID,
		AlertType: models.AlertTypeHourlyRequestVolume,
		Severity:  severity,
		Message:   fmt.Sprintf("Last hour: %d requests exceeds %d limit (%.1fx)", count, int64(threshold), ratio),
		Details: map[string]any{
			"request_count": count,
			"threshold":     threshold,
			"ratio":         common.Round(ratio, 2),
		},
	}}, nil
}

func (m *Meter) checkHourlyTokenVolume(deviceID string, threshold float64, now time.Time) ([]models.Alert, error) {
	var tokens int64
	err := m.Db.Conn.Model(&models.Event{}).
		Select("COALESCE(SUM(input_tokens + output_tokens + cache_read_tokens + cache_write_tokens), 0)").
		Where("device_id = ? AND timestamp >= ?", deviceID, now.Add(-time.Hour)).
		Scan(&tokens).Error
	if err != nil || float64(tokens) <= threshold {
		return nil, err
	}

	ratio, severity := classify(models.AlertTypeHourlyTokenVolume, float64(tokens), threshold)
	return []models.Alert{{
		DeviceID:  deviceID,
		AlertType: models.AlertTypeHourlyTokenVolume,
		Severity:  severity,
		Message: fmt.Sprintf("Last hour: %s tokens exceeds %s limit (%.1fx)",
			humanize.Comma(tokens), humanize.Comma(int64(threshold)), ratio),
		Details: map[string]any{
			"total_tokens": tokens,
			"threshold":    threshold,
			"ratio":        common.Round(ratio, 2),
		},
	}}, nil
}

// checkSessionDuration measures first-to-last event span per session within
// the trailing hour. The span is computed here rather than in SQL so every
// dialector agrees on it.
func (m *Meter) checkSessionDuration(deviceID string, threshold float64, now time.Time) ([]models.Alert, error) {
	var events []models.Event
	err := m.Db.Conn.
		Select("session_id", "timestamp").
		Where("device_id = ? AND session_id <> '' AND timestamp >= ?", deviceID, now.Add(-time.Hour)).
		Find(&events).Error
	if err != nil {
		return nil, err
	}

	type span struct{ first, last time.Time }
	spans := map[string]*span{}
	for _, e := range events {
		s, ok := spans[e.SessionID]
		if !ok {
			spans[e.SessionID] = &span{first: e.Timestamp, last: e.Timestamp}
			continue
		}
		if e.Timestamp.Before(s.first) {
			s.first = e.Timestamp
		}
		if e.Timestamp.After(s.last) {
			s.last = e.Timestamp
		}
	}

	sessions := make([]string, 0, len(spans))
	for id := range spans {
		sessions = append(sessions, id)
	}
	sort.Strings(sessions)

	var alerts []models.Alert
	for _, id := range sessions {
		minutes := spans[id].last.Sub(spans[id].first).Minutes()
		if minutes <= threshold {
			continue
		}
		ratio, severity := classify(models.AlertTypeSessionDuration, minutes, threshold)
		alerts = append(alerts, models.Alert{
			DeviceID:  deviceID,
			AlertType: models.AlertTypeSessionDuration,
			Severity:  severity,
			SessionID: id,
			Message: fmt.Sprintf("Session %s... running %.0fmin exceeds %dmin limit (%.1fx)",
				common.Truncate(id, sessionIDPrefixLen), minutes, int64(threshold), ratio),
			Details: map[string]any{
				"session_id":       id,
				"duration_minutes": common.Round(minutes, 1),
				"threshold":        threshold,
				"ratio":            common.Round(ratio, 2),
			},
		})
	}
	return alerts, nil
}

type alertCheck func(m *Meter, deviceID string, threshold float64, now time.Time) ([]models.Alert, error)

var alertChecks = map[models.AlertType]alertCheck{
	models.AlertTypeDailyBudget:         (*Meter).checkDailyBudget,
	models.AlertTypeSessionSpike:        (*Meter).checkSessionSpike,
	models.AlertTypeHourlyBurnRate:      (*Meter).checkHourlyBurnRate,
	models.AlertTypeHourlyRequestVolume: (*Meter).checkHourlyRequestVolume,
	models.AlertTypeHourlyTokenVolume:   (*Meter).checkHourlyTokenVolume,
	models.AlertTypeSessionDuration:     (*Meter).checkSessionDuration,
}

// checkAlerts evaluates every enabled rule in models.AlertTypes order and
// returns only the alerts that passed the dedup gate.
func (m *Meter) checkAlerts(deviceID string) ([]models.Alert, error) {
	logger := alertLogger()

	settings, err := m.getAlertConfig(deviceID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	var pending []models.Alert
	for _, t := range models.AlertTypes {
		setting := settings[t]
		if !setting.Enabled {
			continue
		}
		found, err := alertChecks[t](m, deviceID, setting.Threshold, now)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", t, err)
		}
		pending = append(pending, found...)
	}

	created := []models.Alert{}
	for i := range pending {
		alert := pending[i]
		alert.CreatedAt = now

		logger.Info("Alert found", zap.Reflect("alert", alert))

		_, ok, err := m.createAlert(&alert)
		if err != nil {
			return created, err
		}
		if ok {
			created = append(created, alert)
		}
	}
	return created, nil
}

func (m *Meter) dedupWindow() time.Duration {
	return m.AlertDefaults.DedupWindow()
}

// createAlert is the dedup gate: an unacknowledged alert of the same device
// and type, and session for session scoped types, inside the dedup window
// turns the insert into a no-op. The check and the insert are not atomic.
func (m *Meter) createAlert(alert *models.Alert) (uint, bool, error) {
	logger := alertLogger()

	if alert.DeviceID == "" || !alert.AlertType.Valid() {
		return 0, false, invalidf("alert needs a device and a known alert type")
	}
	if alert.Severity != models.SeverityWarning && alert.Severity != models.SeverityCritical {
		return 0, false, invalidf("unknown severity %q", alert.Severity)
	}
	if alert.AlertType.SessionScoped() && alert.SessionID == "" {
		if sid, ok := alert.Details["session_id"].(string); ok {
			alert.SessionID = sid
		}
	}

	now := m.now()
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = now
	}
	alert.CreatedAt = alert.CreatedAt.UTC()

	query := m.Db.Conn.Model(&models.Alert{}).
		Where("device_id = ? AND alert_type = ? AND acknowledged = ? AND created_at >= ?",
			alert.DeviceID, alert.AlertType, false, now.Add(-m.dedupWindow()))
	if alert.AlertType.SessionScoped() {
		query = query.Where("session_id = ?", alert.SessionID)
	}

	var recent int64
	if err := query.Count(&recent).Error; err != nil {
		return 0, false, err
	}
	if recent > 0 {
		logger.Info("Alert deduplicated", zap.String("device_id", alert.DeviceID), zap.String("alert_type", string(alert.AlertType)))
		metrics.Get().RecordAlert(string(alert.AlertType), string(alert.Severity), false)
		return 0, false, nil
	}

	alert.ID = 0
	alert.Acknowledged = false
	if err := m.Db.Conn.Create(alert).Error; err != nil {
		return 0, false, err
	}

	logger.Info("Alert saved", zap.Reflect("alert", alert))
	metrics.Get().RecordAlert(string(alert.AlertType), string(alert.Severity), true)
	return alert.ID, true, nil
}

func (m *Meter) getDeviceAlerts(deviceID string, acknowledged *bool) ([]models.Alert, error) {
	query := m.Db.Conn.Where("device_id = ?", deviceID)
	if acknowledged != nil {
		query = query.Where("acknowledged = ?", *acknowledged)
	}

	alerts := []models.Alert{}
	err := query.Order("created_at desc, id desc").Find(&alerts).Error
	return alerts, err
}

func (m *Meter) acknowledgeAlert(deviceID string, alertID uint) (bool, error) {
	res := m.Db.Conn.Model(&models.Alert{}).
		Where("id = ? AND device_id = ?", alertID, deviceID).
		Update("acknowledged", true)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		alertLogger().Info("Alert acknowledged", zap.String("device_id", deviceID), zap.Uint("alert_id", alertID))
	}
	return res.RowsAffected > 0, nil
}

func (m *Meter) activeAlertCount(deviceID string) (int64, error) {
	var n int64
	err := m.Db.Conn.Model(&models.Alert{}).
		Where("device_id = ? AND acknowledged = ?", deviceID, false).
		Count(&n).Error
	return n, err
}

type IAlertImpl struct {
	meter *Meter
}

func (ia *IAlertImpl) CheckAlerts(deviceID string) ([]models.Alert, error) {
	return ia.meter.checkAlerts(deviceID)
}

func (ia *IAlertImpl) CreateAlert(alert *models.Alert) (uint, bool, error) {
	return ia.meter.createAlert(alert)
}

func (ia *IAlertImpl) GetDeviceAlerts(deviceID string, acknowledged *bool) ([]models.Alert, error) {
	return ia.meter.getDeviceAlerts(deviceID, acknowledged)
}

func (ia *IAlertImpl) AcknowledgeAlert(deviceID string, alertID uint) (bool, error) {
	return ia.meter.acknowledgeAlert(deviceID, alertID)
}

func (ia *IAlertImpl) ActiveAlertCount(deviceID string) (int64, error) {
	return ia.meter.activeAlertCount(deviceID)
}

func (ia *IAlertImpl) GetAlertConfig(deviceID string) (map[models.AlertType]models.AlertSetting, error) {
	return ia.meter.getAlertConfig(deviceID)
}

func (ia *IAlertImpl) SetAlertConfig(deviceID string, alertType models.AlertType, threshold float64, enabled bool) error {
	return ia.meter.setAlertConfig(deviceID, alertType, threshold, enabled)
}

func (m *Meter) GetIAlert() IAlert {
	return &IAlertImpl{meter: m}
}
