package meter

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"liyu1981.xyz/llm-cost-service/pkg/common"
	"liyu1981.xyz/llm-cost-service/pkg/models"
)

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func deviceLogger() *zap.Logger {
	return common.GetLoggerWith(
		common.LoggerNameMeterCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryDevice),
	)
}

func (m *Meter) registerDevice() (string, string, error) {
	deviceID, err := randomHex(16)
	if err != nil {
		return "", "", err
	}
	secret, err := randomHex(32)
	if err != nil {
		return "", "", err
	}

	now := m.now()
	device := models.Device{
		DeviceID:   deviceID,
		CreatedAt:  now,
		LastSeen:   now,
		Tier:       models.TierFree,
		SecretHash: hashSecret(secret),
	}
	if err := m.Db.Conn.Create(&device).Error; err != nil {
		return "", "", err
	}

	deviceLogger().Info("Registered device", zap.String("device_id", deviceID))
	return deviceID, secret, nil
}

// claimDevice sets a secret on a device created before secrets existed.
// ok is false when the device is missing or already has a secret.
func (m *Meter) claimDevice(deviceID string) (string, bool, error) {
	var device models.Device
	err := m.Db.Conn.First(&device, "device_id = ?", deviceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if device.SecretHash != "" {
		return "", false, nil
	}

	secret, err := randomHex(32)
	if err != nil {
		return "", false, err
	}

	res := m.Db.Conn.Model(&models.Device{}).
		Where("device_id = ? AND (secret_hash = '' OR secret_hash IS NULL)", deviceID).
		Update("secret_hash", hashSecret(secret))
	if res.Error != nil {
		return "", false, res.Error
	}
	if res.RowsAffected == 0 {
		return "", false, nil
	}

	deviceLogger().Info("Claimed device", zap.String("device_id", deviceID))
	return secret, true, nil
}

func (m *Meter) verifyDeviceSecret(deviceID string, secret string) (bool, error) {
	var device models.Device
	err := m.Db.Conn.Select("device_id", "secret_hash").First(&device, "device_id = ?", deviceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if device.SecretHash == "" {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(hashSecret(secret)), []byte(device.SecretHash)) == 1, nil
}

func (m *Meter) ensureDevice(deviceID string) error {
	now := m.now()
	device := models.Device{
		DeviceID:  deviceID,
		CreatedAt: now,
		LastSeen:  now,
		Tier:      models.TierFree,
	}
	return m.Db.Conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_seen"}),
	}).Create(&device).Error
}

func (m *Meter) getDevice(deviceID string) (*models.Device, error) {
	var device models.Device
	err := m.Db.Conn.First(&device, "device_id = ?", deviceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// getTier falls back to free for unknown devices.
func (m *Meter) getTier(deviceID string) (models.Tier, error) {
	device, err := m.getDevice(deviceID)
	if errors.Is(err, ErrNotFound) {
		return models.TierFree, nil
	}
	if err != nil {
		return "", err
	}
	return device.Tier, nil
}

func (m *Meter) setTier(deviceID string, tier models.Tier) error {
	if tier != models.TierFree && tier != models.TierPro {
		return invalidf("tier must be free or pro, got %q", tier)
	}
	res := m.Db.Conn.Model(&models.Device{}).Where("device_id = ?", deviceID).Update("tier", tier)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("device %s: %w", deviceID, ErrNotFound)
	}
	deviceLogger().Info("Updated device tier", zap.String("device_id", deviceID), zap.String("tier", string(tier)))
	return nil
}

// firstProject is the project of the earliest stored event that has one.
func (m *Meter) firstProject(deviceID string) (string, error) {
	var projects []string
	err := m.Db.Conn.Model(&models.Event{}).
		Where("device_id = ? AND project <> ''", deviceID).
		Order("timestamp asc, id asc").
		Limit(1).
		Pluck("project", &projects).Error
	if err != nil || len(projects) == 0 {
		return "", err
	}
	return projects[0], nil
}

type IDeviceImpl struct {
	meter *Meter
}

func (id *IDeviceImpl) RegisterDevice() (string, string, error) {
	return id.meter.registerDevice()
}

func (id *IDeviceImpl) ClaimDevice(deviceID string) (string, bool, error) {
	return id.meter.claimDevice(deviceID)
}

func (id *IDeviceImpl) VerifyDeviceSecret(deviceID string, secret string) (bool, error) {
	return id.meter.verifyDeviceSecret(deviceID, secret)
}

func (id *IDeviceImpl) EnsureDevice(deviceID string) error {
	return id.meter.ensureDevice(deviceID)
}

func (id *IDeviceImpl) GetDevice(deviceID string) (*models.Device, error) {
	return id.meter.getDevice(deviceID)
}

func (id *IDeviceImpl) GetTier(deviceID string) (models.Tier, error) {
	return id.meter.getTier(deviceID)
}

func (id *IDeviceImpl) SetTier(deviceID string, tier models.Tier) error {
	return id.meter.setTier(deviceID, tier)
}

func (id *IDeviceImpl) FirstProject(deviceID string) (string, error) {
	return id.meter.firstProject(deviceID)
}

func (m *Meter) GetIDevice() IDevice {
	return &IDeviceImpl{meter: m}
}
