package client

import (
	"path/filepath"
	"testing"
	"time"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts", "store.json")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if rec, err := s.Get("acct-1"); err != nil || rec != nil {
		t.Fatalf("Get on empty store = %+v, %v", rec, err)
	}

	rec := &LocalAccountRecord{
		AccountID:   "acct-1",
		Username:    "alice",
		AccessToken: "at-1",
		LastUsedAt:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Active:      true,
	}
	if err := s.Put(rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get("acct-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Username != "alice" || !got.Active || !got.LastUsedAt.Equal(rec.LastUsedAt) {
		t.Errorf("got = %+v", got)
	}

	// Records survive a new store instance over the same file.
	s2, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	again, err := s2.Get("acct-1")
	if err != nil || again == nil {
		t.Fatalf("reload Get = %+v, %v", again, err)
	}

	if err := s2.Delete("acct-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if rec, _ := s2.Get("acct-1"); rec != nil {
		t.Error("record survived delete")
	}
	if err := s2.Delete("acct-1"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestFileStore_List(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"a", "b", "c"} {
		if err := s.Put(&LocalAccountRecord{AccountID: id}); err != nil {
			t.Fatal(err)
		}
	}
	recs, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 3 {
		t.Errorf("records = %d, want 3", len(recs))
	}
}
