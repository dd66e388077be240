package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists LocalAccountRecords as a single JSON file on disk. The
// whole file is rewritten on every mutation; record sets are small (one entry
// per account on one device).
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a FileStore writing to path. The parent directory is
// created if missing.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) load() (map[string]*LocalAccountRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]*LocalAccountRecord{}, nil
		}
		return nil, err
	}
	var m map[string]*LocalAccountRecord
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("corrupt account store %s: %w", s.path, err)
	}
	if m == nil {
		m = map[string]*LocalAccountRecord{}
	}
	return m, nil
}

func (s *FileStore) save(m map[string]*LocalAccountRecord) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) Get(accountID string) (*LocalAccountRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return nil, err
	}
	return m[accountID], nil
}

func (s *FileStore) List() ([]*LocalAccountRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]*LocalAccountRecord, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	return out, nil
}

func (s *FileStore) Put(rec *LocalAccountRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return err
	}
	cp := *rec
	m[rec.AccountID] = &cp
	return s.save(m)
}

func (s *FileStore) Delete(accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := m[accountID]; !ok {
		return nil
	}
	delete(m, accountID)
	return s.save(m)
}
