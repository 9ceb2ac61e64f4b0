package meter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"liyu1981.xyz/llm-cost-service/pkg/common"
	"liyu1981.xyz/llm-cost-service/pkg/models"
	"liyu1981.xyz/llm-cost-service/pkg/pricing"
	_ "liyu1981.xyz/llm-cost-service/pkg/testing"
)

func storedEvents(t *testing.T, m *Meter, deviceID string) []models.Event {
	t.Helper()
	var events []models.Event
	require.NoError(t, m.Db.Conn.Where("device_id = ?", deviceID).Order("id").Find(&events).Error)
	return events
}

func TestIngest(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, meterObj, _, _, mockIAlert := GetMockMeterWithMemorySqliteDialector(t, false, false, true)
	defer ctrl.Finish()

	deviceID := newDeviceID()

	mockIAlert.
		EXPECT().
		CheckAlerts(gomock.Eq(deviceID)).
		Return([]models.Alert{}, nil).
		Times(1)

	result, err := meterObj.Event.Ingest(deviceID, []models.IngestEvent{
		{
			SessionID:   "s1",
			Model:       "claude-opus-4-6",
			Project:     "demo",
			InputTokens: 1_000_000,
			CostUSD:     999, // client value is never trusted
			Timestamp:   "2026-03-10T11:30:00",
		},
		{
			SessionID:    "s1",
			Project:      "demo",
			OutputTokens: 1_000_000,
			Tools:        "Read, Bash",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Ingested)
	assert.Empty(t, result.NewAlerts)

	events := storedEvents(t, meterObj, deviceID)
	require.Len(t, events, 2)

	assert.Equal(t, 15.0, events[0].CostUSD)
	assert.Equal(t, "llm.usage", events[0].EventType)
	assert.True(t, events[0].Success)
	assert.True(t, events[0].Timestamp.Equal(time.Date(2026, 3, 10, 11, 30, 0, 0, time.UTC)))

	// no model is priced like the fallback, no timestamp is "now"
	assert.Equal(t, 15.0, events[1].CostUSD)
	assert.True(t, events[1].Timestamp.Equal(testNow))
	assert.Equal(t, "Read, Bash", events[1].Tools)

	device, err := meterObj.Device.GetDevice(deviceID)
	require.NoError(t, err)
	assert.Equal(t, models.TierFree, device.Tier)
}

func TestIngest_EdgeCases(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, meterObj, _, _, _ := GetMockMeterWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	deviceID := newDeviceID()

	_, err := meterObj.Event.Ingest(deviceID, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = meterObj.Event.Ingest(deviceID, make([]models.IngestEvent, MaxIngestBatch+1))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = meterObj.Event.Ingest(deviceID, []models.IngestEvent{{InputTokens: -1}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = meterObj.Event.Ingest(deviceID, []models.IngestEvent{{Timestamp: "yesterday"}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	// nothing above reached storage, not even the device row
	_, err = meterObj.Device.GetDevice(deviceID)
	assert.ErrorIs(t, err, ErrNotFound)

	// force the alert service to be nil to cause alert not available
	meterObj.Alert = nil
	_, err = meterObj.Event.Ingest(deviceID, []models.IngestEvent{{Model: "m"}})
	assert.EqualError(t, err, "alert service not available")
	assert.Len(t, storedEvents(t, meterObj, deviceID), 1)
}

func TestIngest_SuccessFlag(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, meterObj, _, _, mockIAlert := GetMockMeterWithMemorySqliteDialector(t, false, false, true)
	defer ctrl.Finish()

	deviceID := newDeviceID()
	mockIAlert.EXPECT().CheckAlerts(deviceID).Return(nil, nil)

	failed := false
	latency := int64(420)
	_, err := meterObj.Event.Ingest(deviceID, []models.IngestEvent{
		{Model: "m", Success: &failed, LatencyMs: &latency},
	})
	require.NoError(t, err)

	events := storedEvents(t, meterObj, deviceID)
	require.Len(t, events, 1)
	assert.False(t, events[0].Success)
	require.NotNil(t, events[0].LatencyMs)
	assert.Equal(t, int64(420), *events[0].LatencyMs)
}

func TestIngest_FreeTierProjectLimit(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, meterObj, _, _, _ := GetMockMeterWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	deviceID := newDeviceID()

	// first batch fixes the allowed project
	_, err := meterObj.Event.Ingest(deviceID, []models.IngestEvent{
		{Project: "alpha", Model: "m", Timestamp: "2026-03-10T10:00:00Z"},
		{Project: "beta", Model: "m", Timestamp: "2026-03-10T10:05:00Z"},
	})
	require.NoError(t, err)

	project, err := meterObj.Device.FirstProject(deviceID)
	require.NoError(t, err)
	assert.Equal(t, "alpha", project)

	result, err := meterObj.Event.Ingest(deviceID, []models.IngestEvent{
		{Project: "alpha", Model: "m"},
		{Project: "beta", Model: "m"},
		{Model: "m"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Ingested)

	_, err = meterObj.Event.Ingest(deviceID, []models.IngestEvent{{Project: "beta", Model: "m"}})
	require.ErrorIs(t, err, ErrTierLimited)
	var tierErr *TierLimitError
	require.True(t, errors.As(err, &tierErr))
	assert.Equal(t, "alpha", tierErr.AllowedProject)
	assert.Equal(t, "free tier limited to 1 project (allowed: alpha)", err.Error())

	// pro devices are never filtered
	require.NoError(t, meterObj.Device.SetTier(deviceID, models.TierPro))
	result, err = meterObj.Event.Ingest(deviceID, []models.IngestEvent{{Project: "beta", Model: "m"}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Ingested)
	assert.Len(t, storedEvents(t, meterObj, deviceID), 4)
}

func TestIngest_TierLookupWithMock(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, meterObj, mockIDevice, mockIPricing, _ := GetMockMeterWithMemorySqliteDialector(t, true, true, false)
	defer ctrl.Finish()

	deviceID := newDeviceID()

	mockIDevice.EXPECT().GetTier(deviceID).Return(models.TierFree, nil)
	mockIDevice.EXPECT().FirstProject(deviceID).Return("alpha", nil)
	mockIDevice.EXPECT().EnsureDevice(gomock.Any()).Times(0)
	mockIPricing.EXPECT().LoadOverrides(gomock.Any()).Times(0)

	_, err := meterObj.Event.Ingest(deviceID, []models.IngestEvent{{Project: "beta"}})
	assert.ErrorIs(t, err, ErrTierLimited)
}

func TestRecalculateDeviceCosts(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, meterObj, _, _, _ := GetMockMeterWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	deviceID := newDeviceID()

	_, err := meterObj.Event.Ingest(deviceID, []models.IngestEvent{
		{Model: "llama-3", Provider: "nvidia", InputTokens: 1_000_000, Timestamp: "2026-03-09T08:00:00Z"},
		{Model: "llama-3", Provider: "nvidia", OutputTokens: 1_000_000, Timestamp: "2026-03-09T08:01:00Z"},
		{Model: "claude-haiku-4-5-20251001", InputTokens: 1_000_000, Timestamp: "2026-03-09T08:02:00Z"},
	})
	require.NoError(t, err)

	events := storedEvents(t, meterObj, deviceID)
	assert.Equal(t, 3.0, events[0].CostUSD)
	assert.Equal(t, 15.0, events[1].CostUSD)
	assert.Equal(t, 0.8, events[2].CostUSD)

	// nvidia models are free on this device
	require.NoError(t, meterObj.Pricing.SetPricingConfig(deviceID, &models.PricingOverride{
		Model:    models.WildcardModel,
		Provider: "nvidia",
	}))

	updated, err := meterObj.Event.RecalculateDeviceCosts(deviceID)
	require.NoError(t, err)
	assert.Equal(t, 3, updated)

	events = storedEvents(t, meterObj, deviceID)
	assert.Equal(t, 0.0, events[0].CostUSD)
	assert.Equal(t, 0.0, events[1].CostUSD)
	assert.Equal(t, 0.8, events[2].CostUSD)

	// a second run converges to the same state
	updated, err = meterObj.Event.RecalculateDeviceCosts(deviceID)
	require.NoError(t, err)
	assert.Equal(t, 3, updated)
	assert.Equal(t, events, storedEvents(t, meterObj, deviceID))
}

func TestRecalculateDeviceCosts_WithMockPricing(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, meterObj, _, mockIPricing, _ := GetMockMeterWithMemorySqliteDialector(t, false, true, false)
	defer ctrl.Finish()

	deviceID := newDeviceID()

	dev := pricing.NewDeviceOverrides()
	dev.AddModel("m", "", pricing.Prices{Input: 2})
	mockIPricing.EXPECT().LoadOverrides(deviceID).Return(dev, nil).Times(2)

	_, err := meterObj.Event.Ingest(deviceID, []models.IngestEvent{{Model: "m", InputTokens: 500_000}})
	require.NoError(t, err)
	assert.Equal(t, 1.0, storedEvents(t, meterObj, deviceID)[0].CostUSD)

	updated, err := meterObj.Event.RecalculateDeviceCosts(deviceID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
}

func TestClearDeviceEvents(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, meterObj, _, _, _ := GetMockMeterWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	deviceID := newDeviceID()
	other := newDeviceID()

	for _, id := range []string{deviceID, other} {
		_, err := meterObj.Event.Ingest(id, []models.IngestEvent{{Model: "m"}, {Model: "m"}})
		require.NoError(t, err)
	}

	deleted, err := meterObj.Event.ClearDeviceEvents(deviceID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Empty(t, storedEvents(t, meterObj, deviceID))
	assert.Len(t, storedEvents(t, meterObj, other), 2)
}
