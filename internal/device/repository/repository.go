package repository

import (
	"context"

	"hybrid-session-hub/internal/device/domain"
)

// Repository defines persistence for devices.
type Repository interface {
	// GetByID returns the device for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Device, error)
	// GetByFingerprint returns the device with the given hardware fingerprint, or nil.
	GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Device, error)
	// Create persists a new device. The device must have ID set.
	Create(ctx context.Context, d *domain.Device) error
	// UpdateOwner overwrites the owner pointer and metadata for the device.
	UpdateOwner(ctx context.Context, id string, ownerAccountID *string, metadata map[string]string) error
	// ListByOwner returns devices whose owner pointer is accountID.
	ListByOwner(ctx context.Context, accountID string) ([]*domain.Device, error)
}
