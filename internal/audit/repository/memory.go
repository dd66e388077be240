package repository

import (
	"context"
	"sync"

	"hybrid-session-hub/internal/audit/domain"
)

// MemoryRepository is an in-memory Repository used by tests.
type MemoryRepository struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

// NewMemoryRepository returns an empty in-memory audit repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *MemoryRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int32) ([]*domain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*domain.AuditLog
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].AccountID == accountID {
			cp := *r.entries[i]
			matched = append(matched, &cp)
		}
	}
	if int(offset) >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && int(limit) < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

// All returns every entry in insertion order. Test helper.
func (r *MemoryRepository) All() []*domain.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.AuditLog, len(r.entries))
	for i, e := range r.entries {
		cp := *e
		out[i] = &cp
	}
	return out
}
