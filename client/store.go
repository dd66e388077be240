// Package client is the device-local account cache and switch orchestrator.
// It holds credentials for every account ever used on the device, tracks
// which one is active, and drives the switch protocol against the server.
package client

import (
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	// ErrAccountNotFound is returned when the account has no local record.
	ErrAccountNotFound = errors.New("account not in local cache")
	// ErrSwitchInProgress is returned when another switch is already in
	// flight. Safe to retry after backoff.
	ErrSwitchInProgress = errors.New("a switch is already in progress")
)

// LocalAccountRecord is one cached account on this device. Exactly one record
// may have Active=true; the orchestrator enforces that, not the store.
type LocalAccountRecord struct {
	AccountID    string    `json:"account_id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	LastUsedAt   time.Time `json:"last_used_at"`
	Active       bool      `json:"active"`
}

// Store persists LocalAccountRecords on the device.
type Store interface {
	// Get returns the record for accountID, or nil if absent.
	Get(accountID string) (*LocalAccountRecord, error)
	// List returns all records in unspecified order.
	List() ([]*LocalAccountRecord, error)
	// Put inserts or replaces the record.
	Put(rec *LocalAccountRecord) error
	// Delete removes the record. No-op if absent.
	Delete(accountID string) error
}

// MemoryStore is an in-memory Store used by tests.
type MemoryStore struct {
	mu sync.RWMutex
	m  map[string]*LocalAccountRecord
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]*LocalAccountRecord)}
}

func (s *MemoryStore) Get(accountID string) (*LocalAccountRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.m[accountID]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryStore) List() ([]*LocalAccountRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*LocalAccountRecord, 0, len(s.m))
	for _, r := range s.m {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) Put(rec *LocalAccountRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.m[rec.AccountID] = &cp
	return nil
}

func (s *MemoryStore) Delete(accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, accountID)
	return nil
}

// sortByLastUsed orders records most recently used first, with account id as
// a stable tie break.
func sortByLastUsed(recs []*LocalAccountRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].LastUsedAt.Equal(recs[j].LastUsedAt) {
			return recs[i].AccountID < recs[j].AccountID
		}
		return recs[i].LastUsedAt.After(recs[j].LastUsedAt)
	})
}
