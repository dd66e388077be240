// Package device holds the device registry: device identity plus the
// non-authoritative "current owner" pointer mutated on login and switch.
package device

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"hybrid-session-hub/internal/device/domain"
	"hybrid-session-hub/internal/device/repository"
)

// ErrNotFound is returned when the device id is unknown.
var ErrNotFound = errors.New("device not found")

// Attributes are the descriptive fields captured when a device first registers.
type Attributes struct {
	Brand     string
	Model     string
	Platform  string
	OSVersion string
}

// OwnerChange is the result of SetOwner.
type OwnerChange struct {
	Device          *domain.Device
	PreviousOwnerID string // empty when the device had no owner
}

// Registry manages device records and the owner pointer. Only the ownership
// coordinator may call SetOwner.
type Registry struct {
	repo repository.Repository
	nowF func() time.Time
}

// NewRegistry returns a Registry backed by repo.
func NewRegistry(repo repository.Repository) *Registry {
	return &Registry{repo: repo, nowF: func() time.Time { return time.Now().UTC() }}
}

// Register creates a device record for the fingerprint, or returns the existing
// record unchanged if the fingerprint is already known. Attributes are never
// overwritten on re-registration.
func (r *Registry) Register(ctx context.Context, fingerprint string, attrs Attributes) (*domain.Device, error) {
	existing, err := r.repo.GetByFingerprint(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	now := r.nowF()
	d := &domain.Device{
		ID:          uuid.New().String(),
		Fingerprint: fingerprint,
		Brand:       attrs.Brand,
		Model:       attrs.Model,
		Platform:    attrs.Platform,
		OSVersion:   attrs.OSVersion,
		Metadata:    map[string]string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Get returns the device for id, or ErrNotFound.
func (r *Registry) Get(ctx context.Context, id string) (*domain.Device, error) {
	d, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrNotFound
	}
	return d, nil
}

// SetOwner unconditionally overwrites the device's owner pointer with
// accountID and records the previous owner in device metadata. Returns
// ErrNotFound if the device id is unknown. Any account may take ownership;
// the pointer is a hint, not a gate.
func (r *Registry) SetOwner(ctx context.Context, deviceID, accountID string) (*OwnerChange, error) {
	d, err := r.repo.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrNotFound
	}
	previous := ""
	if d.OwnerAccountID != nil {
		previous = *d.OwnerAccountID
	}
	meta := d.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	meta[domain.MetaPreviousOwner] = previous
	meta[domain.MetaLastOwnerChange] = r.nowF().Format(time.RFC3339)
	if err := r.repo.UpdateOwner(ctx, deviceID, &accountID, meta); err != nil {
		return nil, err
	}
	d.OwnerAccountID = &accountID
	d.Metadata = meta
	return &OwnerChange{Device: d, PreviousOwnerID: previous}, nil
}

// DevicesForAccount returns devices whose owner pointer is accountID.
// This lists "last active here" hints; it is not the set of devices the
// account may use.
func (r *Registry) DevicesForAccount(ctx context.Context, accountID string) ([]*domain.Device, error) {
	return r.repo.ListByOwner(ctx, accountID)
}
