package ports

import (
	"PushProbe/internal/core/domain"
	"context"
)

// DeviceRepository persists the single local device registration.
type DeviceRepository interface {
	// Save inserts or replaces the local device.
	Save(ctx context.Context, device *domain.Device) error

	// Get returns the local device, or nil if none is stored.
	Get(ctx context.Context) (*domain.Device, error)

	// Delete removes the local device.
	Delete(ctx context.Context) error
}
