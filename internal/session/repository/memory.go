package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"hybrid-session-hub/internal/session/domain"
)

// MemoryRepository is an in-memory Repository used by tests.
type MemoryRepository struct {
	mu sync.RWMutex
	m  map[string]*domain.Session
}

// NewMemoryRepository returns an empty in-memory session repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]*domain.Session)}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.m[id]; ok {
		return copySession(s), nil
	}
	return nil, nil
}

func (r *MemoryRepository) Create(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[s.ID] = copySession(s)
	return nil
}

func (r *MemoryRepository) ListByAccount(ctx context.Context, accountID string) ([]*domain.Session, error) {
	return r.filter(func(s *domain.Session) bool { return s.AccountID == accountID }), nil
}

func (r *MemoryRepository) ListByDevice(ctx context.Context, deviceID string) ([]*domain.Session, error) {
	return r.filter(func(s *domain.Session) bool { return s.DeviceID == deviceID }), nil
}

func (r *MemoryRepository) CloseAllForPair(ctx context.Context, accountID, deviceID string, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.m {
		if s.AccountID == accountID && s.DeviceID == deviceID && s.Active {
			s.Active = false
			t := at
			s.EndedAt = &t
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) Close(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[id]; ok {
		s.Active = false
		t := at
		s.EndedAt = &t
	}
	return nil
}

func (r *MemoryRepository) GetActiveByAccount(ctx context.Context, accountID string) (*domain.Session, error) {
	active := r.filter(func(s *domain.Session) bool { return s.AccountID == accountID && s.Active })
	if len(active) == 0 {
		return nil, nil
	}
	return active[0], nil
}

func (r *MemoryRepository) UpdateCredentials(ctx context.Context, id, accessToken, refreshToken string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.m[id]; ok {
		s.AccessToken = accessToken
		s.RefreshToken = refreshToken
		t := expiresAt
		s.ExpiresAt = &t
	}
	return nil
}

func (r *MemoryRepository) filter(keep func(*domain.Session) bool) []*domain.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Session
	for _, s := range r.m {
		if keep(s) {
			out = append(out, copySession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

func copySession(s *domain.Session) *domain.Session {
	cp := *s
	if s.ExpiresAt != nil {
		t := *s.ExpiresAt
		cp.ExpiresAt = &t
	}
	if s.EndedAt != nil {
		t := *s.EndedAt
		cp.EndedAt = &t
	}
	return &cp
}
