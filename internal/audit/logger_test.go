package audit

import (
	"context"
	"testing"
	"time"

	auditrepo "hybrid-session-hub/internal/audit/repository"
)

func TestLogEvent_PersistsEntry(t *testing.T) {
	repo := auditrepo.NewMemoryRepository()
	l := NewLogger(repo)

	l.LogEvent(context.Background(), "acct-1", "dev-1", "login", "previous_owner=")

	entries := repo.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.ID == "" {
		t.Error("entry ID not set")
	}
	if e.AccountID != "acct-1" || e.DeviceID != "dev-1" || e.Action != "login" {
		t.Errorf("entry = %+v", e)
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestLogEvent_NilRepoIsNoop(t *testing.T) {
	l := NewLogger(nil)
	l.LogEvent(context.Background(), "acct-1", "dev-1", "login", "")
}

func TestListByAccount_NewestFirst(t *testing.T) {
	repo := auditrepo.NewMemoryRepository()
	l := NewLogger(repo)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	step := 0
	l.nowF = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}

	ctx := context.Background()
	l.LogEvent(ctx, "acct-1", "dev-1", "login", "")
	l.LogEvent(ctx, "acct-2", "dev-1", "login", "")
	l.LogEvent(ctx, "acct-1", "dev-1", "logout", "")

	entries, err := l.ListByAccount(ctx, "acct-1", 10, 0)
	if err != nil {
		t.Fatalf("ListByAccount: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Action != "logout" || entries[1].Action != "login" {
		t.Errorf("order = %s, %s; want logout, login", entries[0].Action, entries[1].Action)
	}
}
