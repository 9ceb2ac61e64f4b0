package meter

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"liyu1981.xyz/llm-cost-service/pkg/config"
	"liyu1981.xyz/llm-cost-service/pkg/db"
	"liyu1981.xyz/llm-cost-service/pkg/meter/mocks"
	"liyu1981.xyz/llm-cost-service/pkg/models"
	"liyu1981.xyz/llm-cost-service/pkg/pricing"
)

// testNow is mid-day so the daily and hourly windows never straddle midnight.
var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func GetMockMeterWithMemorySqliteDialector(t *testing.T, useMockIDevice, useMockIPricing, useMockIAlert bool) (
	*gomock.Controller,
	*Meter,
	*mocks.MockIDevice,
	*mocks.MockIPricing,
	*mocks.MockIAlert,
) {
	ctrl := gomock.NewController(t)

	mockIDevice := mocks.NewMockIDevice(ctrl)
	mockIPricing := mocks.NewMockIPricing(ctrl)
	mockIAlert := mocks.NewMockIAlert(ctrl)
	dialector := db.UseMemorySqliteDialector()
	dbInstance := db.GetInstance(dialector) // ensure migrations

	meterInstance := New(*dbInstance, pricing.NewResolver(pricing.DefaultCatalog(), nil), config.DefaultAlertDefaults())
	meterInstance.Now = func() time.Time { return testNow }

	opts := ServiceOpts{}
	if useMockIDevice {
		opts.Device = mockIDevice
	}
	if useMockIPricing {
		opts.Pricing = mockIPricing
	}
	if useMockIAlert {
		opts.Alert = mockIAlert
	}
	meterInstance.WithServices(opts)

	return ctrl, meterInstance, mockIDevice, mockIPricing, mockIAlert
}

func ParseLogs(r io.Reader) []any {
	scanner := bufio.NewScanner(r)
	var logs []any

	for scanner.Scan() {
		line := scanner.Text()
		var j any
		if err := json.Unmarshal([]byte(line), &j); err == nil {
			logs = append(logs, j)
		}
	}
	return logs
}

func newDeviceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// onlyAlert leaves alertType as the single enabled rule of the device.
func onlyAlert(t *testing.T, m *Meter, deviceID string, alertType models.AlertType, threshold float64) {
	t.Helper()
	require.NoError(t, m.Device.EnsureDevice(deviceID))
	for _, at := range models.AlertTypes {
		if at == alertType {
			require.NoError(t, m.Alert.SetAlertConfig(deviceID, at, threshold, true))
			continue
		}
		require.NoError(t, m.Alert.SetAlertConfig(deviceID, at, m.AlertDefaults.Threshold(at), false))
	}
}

// sonnetEvent costs exactly $3 per million input tokens.
func sonnetEvent(sessionID string, inputTokens int64, ts time.Time) models.IngestEvent {
	return models.IngestEvent{
		SessionID:   sessionID,
		Model:       pricing.FallbackModel,
		Project:     "demo",
		InputTokens: inputTokens,
		Timestamp:   ts.Format(time.RFC3339Nano),
	}
}
