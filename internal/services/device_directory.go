package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"calshare-server/internal/models"
	"calshare-server/internal/repositories"
)

const (
	defaultDeviceName = "Unknown Device"
	defaultPlatform   = "Unknown Platform"
)

// DeviceDirectory maps client-generated device identifiers to durable device
// rows. Resolution always succeeds: an unknown id creates a row, a known id
// refreshes it.
type DeviceDirectory struct {
	devices repositories.DeviceRepository
	now     func() time.Time
}

func NewDeviceDirectory(devices repositories.DeviceRepository) *DeviceDirectory {
	return &DeviceDirectory{
		devices: devices,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Resolve upserts the device row for deviceID. Name and platform overwrite
// stored values only when non-empty; omitted fields are preserved, not
// cleared. LastActive is bumped on every call.
func (d *DeviceDirectory) Resolve(ctx context.Context, deviceID, deviceName, platform string) (*models.Device, error) {
	if deviceID == "" {
		return nil, ErrDeviceRequired
	}

	device, err := d.devices.GetByDeviceID(ctx, deviceID)
	if errors.Is(err, repositories.ErrNotFound) {
		device = &models.Device{
			DeviceID:   deviceID,
			DeviceName: valueOr(deviceName, defaultDeviceName),
			Platform:   valueOr(platform, defaultPlatform),
			LastActive: d.now(),
		}
		if err := d.devices.Create(ctx, device); err != nil {
			return nil, fmt.Errorf("failed to register device: %w", err)
		}
		return device, nil
	}
	if err != nil {
		return nil, err
	}

	device.LastActive = d.now()
	if deviceName != "" {
		device.DeviceName = deviceName
	}
	if platform != "" {
		device.Platform = platform
	}
	if err := d.devices.Update(ctx, device); err != nil {
		return nil, fmt.Errorf("failed to refresh device: %w", err)
	}
	return device, nil
}

func valueOr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
