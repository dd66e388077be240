package repository

import (
	"context"
	"sync"

	"hybrid-session-hub/internal/account/domain"
)

// MemoryRepository is an in-memory Repository used by tests and the seed tool.
type MemoryRepository struct {
	mu sync.RWMutex
	m  map[string]*domain.Account
}

// NewMemoryRepository returns an empty in-memory account repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]*domain.Account)}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.m[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (r *MemoryRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.m {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) Create(ctx context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.m[a.ID] = &cp
	return nil
}
