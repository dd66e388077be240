package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"hybrid-session-hub/internal/device/domain"
)

// MemoryRepository is an in-memory Repository used by tests and the seed tool.
type MemoryRepository struct {
	mu sync.RWMutex
	m  map[string]*domain.Device
}

// NewMemoryRepository returns an empty in-memory device repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]*domain.Device)}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.m[id]; ok {
		return copyDevice(d), nil
	}
	return nil, nil
}

func (r *MemoryRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.m {
		if d.Fingerprint == fingerprint {
			return copyDevice(d), nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) Create(ctx context.Context, d *domain.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[d.ID] = copyDevice(d)
	return nil
}

func (r *MemoryRepository) UpdateOwner(ctx context.Context, id string, ownerAccountID *string, metadata map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.m[id]
	if !ok {
		return nil
	}
	if ownerAccountID != nil {
		v := *ownerAccountID
		d.OwnerAccountID = &v
	} else {
		d.OwnerAccountID = nil
	}
	d.Metadata = copyMetadata(metadata)
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryRepository) ListByOwner(ctx context.Context, accountID string) ([]*domain.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Device
	for _, d := range r.m {
		if d.OwnerAccountID != nil && *d.OwnerAccountID == accountID {
			out = append(out, copyDevice(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func copyDevice(d *domain.Device) *domain.Device {
	cp := *d
	if d.OwnerAccountID != nil {
		v := *d.OwnerAccountID
		cp.OwnerAccountID = &v
	}
	cp.Metadata = copyMetadata(d.Metadata)
	return &cp
}

func copyMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
