package meter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liyu1981.xyz/llm-cost-service/pkg/common"
	"liyu1981.xyz/llm-cost-service/pkg/models"
	_ "liyu1981.xyz/llm-cost-service/pkg/testing"
)

func TestRegisterAndVerifyDevice(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, meterObj, _, _, _ := GetMockMeterWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	deviceID, secret, err := meterObj.Device.RegisterDevice()
	require.NoError(t, err)
	assert.True(t, ValidDeviceID(deviceID))
	assert.Len(t, deviceID, 32)
	assert.Len(t, secret, 64)

	ok, err := meterObj.Device.VerifyDeviceSecret(deviceID, secret)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = meterObj.Device.VerifyDeviceSecret(deviceID, "not-the-secret")
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = meterObj.Device.VerifyDeviceSecret(newDeviceID(), secret)
	assert.NoError(t, err)
	assert.False(t, ok)

	device, err := meterObj.Device.GetDevice(deviceID)
	require.NoError(t, err)
	assert.Equal(t, models.TierFree, device.Tier)
	assert.NotEqual(t, secret, device.SecretHash)
}

func TestClaimDevice(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, meterObj, _, _, _ := GetMockMeterWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	// a device known only through ingest has no secret yet
	legacy := newDeviceID()
	require.NoError(t, meterObj.Device.EnsureDevice(legacy))

	secret, ok, err := meterObj.Device.ClaimDevice(legacy)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, secret)

	verified, err := meterObj.Device.VerifyDeviceSecret(legacy, secret)
	assert.NoError(t, err)
	assert.True(t, verified)

	// second claim must not rotate the secret
	_, ok, err = meterObj.Device.ClaimDevice(legacy)
	assert.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = meterObj.Device.ClaimDevice(newDeviceID())
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestTier(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, meterObj, _, _, _ := GetMockMeterWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	deviceID := newDeviceID()

	tier, err := meterObj.Device.GetTier(deviceID)
	assert.NoError(t, err)
	assert.Equal(t, models.TierFree, tier)

	err = meterObj.Device.SetTier(deviceID, models.TierPro)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, meterObj.Device.EnsureDevice(deviceID))
	require.NoError(t, meterObj.Device.SetTier(deviceID, models.TierPro))

	tier, err = meterObj.Device.GetTier(deviceID)
	assert.NoError(t, err)
	assert.Equal(t, models.TierPro, tier)

	err = meterObj.Device.SetTier(deviceID, models.Tier("enterprise"))
	assert.ErrorIs(t, err, ErrInvalidInput)

	// EnsureDevice on an existing device keeps its tier
	require.NoError(t, meterObj.Device.EnsureDevice(deviceID))
	tier, err = meterObj.Device.GetTier(deviceID)
	assert.NoError(t, err)
	assert.Equal(t, models.TierPro, tier)
}

func TestGetDeviceNotFound(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, meterObj, _, _, _ := GetMockMeterWithMemorySqliteDialector(t, false, false, false)
	defer ctrl.Finish()

	_, err := meterObj.Device.GetDevice(newDeviceID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestValidDeviceID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"deadbeef", true},
		{"0123456789abcdef0123456789abcdef", true},
		{"DEADBEEF", false},
		{"abc", false},
		{"not-hex-at-all", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidDeviceID(tt.id), tt.id)
	}
}
