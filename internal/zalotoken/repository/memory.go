package repository

import (
	"context"
	"sync"

	"hybrid-session-hub/internal/zalotoken/domain"
)

// MemoryRepository is an in-memory Repository used by tests.
type MemoryRepository struct {
	mu sync.RWMutex
	m  map[string]*domain.Token // keyed by account id
}

// NewMemoryRepository returns an empty in-memory token repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]*domain.Token)}
}

func (r *MemoryRepository) GetByAccount(ctx context.Context, accountID string) (*domain.Token, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.m[accountID]; ok {
		return copyToken(t), nil
	}
	return nil, nil
}

func (r *MemoryRepository) Create(ctx context.Context, t *domain.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[t.AccountID] = copyToken(t)
	return nil
}

func (r *MemoryRepository) Update(ctx context.Context, t *domain.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.m[t.AccountID]; ok {
		cp := copyToken(t)
		cp.ID = existing.ID
		cp.CreatedAt = existing.CreatedAt
		r.m[t.AccountID] = cp
	}
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, accountID)
	return nil
}

func copyToken(t *domain.Token) *domain.Token {
	cp := *t
	if t.Profile != nil {
		p := *t.Profile
		cp.Profile = &p
	}
	return &cp
}
