package zalotoken

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hybrid-session-hub/internal/zalotoken/domain"
	"hybrid-session-hub/internal/zalotoken/repository"
)

type fakeRefresher struct {
	calls int32
	err   error
	delay time.Duration
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (string, string, int, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return "", "", 0, f.err
	}
	n := atomic.LoadInt32(&f.calls)
	return fmt.Sprintf("refreshed-access-%d", n), fmt.Sprintf("refreshed-refresh-%d", n), 3600, nil
}

func newTestVault(t *testing.T, r Refresher) (*Vault, *repository.MemoryRepository) {
	t.Helper()
	repo := repository.NewMemoryRepository()
	return NewVault(repo, r), repo
}

func TestSave_CreateThenUpsert(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVault(t, nil)

	first, err := v.Save(ctx, "acct-1", "a1", "r1", 3600, &domain.Profile{ID: "z-1", Name: "Alice"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if first.ID == "" || !first.Active {
		t.Fatalf("first save = %+v, want id set and active", first)
	}

	// Upsert with nil profile keeps the stored snapshot.
	second, err := v.Save(ctx, "acct-1", "a2", "r2", 3600, nil)
	if err != nil {
		t.Fatalf("Save upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("upsert id = %q, want %q", second.ID, first.ID)
	}
	if second.AccessToken != "a2" || second.RefreshToken != "r2" {
		t.Errorf("upsert tokens = %q/%q", second.AccessToken, second.RefreshToken)
	}
	if second.Profile == nil || second.Profile.Name != "Alice" {
		t.Errorf("upsert profile = %+v, want kept", second.Profile)
	}
}

func TestSave_ReactivatesRevoked(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVault(t, nil)

	if _, err := v.Save(ctx, "acct-1", "a1", "r1", 3600, nil); err != nil {
		t.Fatal(err)
	}
	if err := v.Revoke(ctx, "acct-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := v.GetValid(ctx, "acct-1"); !errors.Is(err, ErrRevoked) {
		t.Fatalf("GetValid after revoke: %v, want ErrRevoked", err)
	}

	if _, err := v.Save(ctx, "acct-1", "a2", "r2", 3600, nil); err != nil {
		t.Fatal(err)
	}
	access, err := v.GetValid(ctx, "acct-1")
	if err != nil {
		t.Fatalf("GetValid after re-save: %v", err)
	}
	if access != "a2" {
		t.Errorf("access = %q, want a2", access)
	}
}

func TestGetValid_NoRefreshBeforeExpiry(t *testing.T) {
	ctx := context.Background()
	ref := &fakeRefresher{}
	v, _ := newTestVault(t, ref)

	if _, err := v.Save(ctx, "acct-1", "a1", "r1", 3600, nil); err != nil {
		t.Fatal(err)
	}
	access, err := v.GetValid(ctx, "acct-1")
	if err != nil {
		t.Fatalf("GetValid: %v", err)
	}
	if access != "a1" {
		t.Errorf("access = %q, want a1", access)
	}
	if n := atomic.LoadInt32(&ref.calls); n != 0 {
		t.Errorf("refresher called %d times, want 0", n)
	}
}

func TestGetValid_RefreshesExpired(t *testing.T) {
	ctx := context.Background()
	ref := &fakeRefresher{}
	v, repo := newTestVault(t, ref)

	if _, err := v.Save(ctx, "acct-1", "old-access", "old-refresh", 3600, nil); err != nil {
		t.Fatal(err)
	}
	// Jump past expiry.
	v.nowF = func() time.Time { return time.Now().Add(2 * time.Hour) }

	access, err := v.GetValid(ctx, "acct-1")
	if err != nil {
		t.Fatalf("GetValid: %v", err)
	}
	if access != "refreshed-access-1" {
		t.Errorf("access = %q, want refreshed-access-1", access)
	}

	stored, err := repo.GetByAccount(ctx, "acct-1")
	if err != nil {
		t.Fatal(err)
	}
	if stored.AccessToken != "refreshed-access-1" || stored.RefreshToken != "refreshed-refresh-1" {
		t.Errorf("stored tokens = %q/%q, want refreshed pair persisted", stored.AccessToken, stored.RefreshToken)
	}
	if !stored.ExpiresAt.After(v.nowF()) {
		t.Errorf("stored expiry %v not after now", stored.ExpiresAt)
	}
}

func TestGetValid_ConcurrentRefreshCollapses(t *testing.T) {
	ctx := context.Background()
	ref := &fakeRefresher{delay: 20 * time.Millisecond}
	v, _ := newTestVault(t, ref)

	if _, err := v.Save(ctx, "acct-1", "old-access", "old-refresh", 3600, nil); err != nil {
		t.Fatal(err)
	}
	v.nowF = func() time.Time { return time.Now().Add(2 * time.Hour) }

	const n = 20
	var wg sync.WaitGroup
	results := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = v.GetValid(ctx, "acct-1")
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("call %d: %v", i, errs[i])
		}
		if results[i] != results[0] {
			t.Errorf("call %d got %q, others got %q", i, results[i], results[0])
		}
	}
	if calls := atomic.LoadInt32(&ref.calls); calls != 1 {
		t.Errorf("refresher called %d times, want 1", calls)
	}
}

func TestGetValid_RefreshFailureLeavesRecord(t *testing.T) {
	ctx := context.Background()
	ref := &fakeRefresher{err: errors.New("upstream down")}
	v, repo := newTestVault(t, ref)

	if _, err := v.Save(ctx, "acct-1", "old-access", "old-refresh", 3600, nil); err != nil {
		t.Fatal(err)
	}
	v.nowF = func() time.Time { return time.Now().Add(2 * time.Hour) }

	_, err := v.GetValid(ctx, "acct-1")
	if !errors.Is(err, ErrRefreshFailed) {
		t.Fatalf("GetValid: %v, want ErrRefreshFailed", err)
	}

	stored, err := repo.GetByAccount(ctx, "acct-1")
	if err != nil {
		t.Fatal(err)
	}
	if stored.AccessToken != "old-access" || stored.RefreshToken != "old-refresh" {
		t.Errorf("stored tokens changed to %q/%q after failed refresh", stored.AccessToken, stored.RefreshToken)
	}
	if !stored.Active {
		t.Error("record deactivated after failed refresh")
	}
}

func TestGetValid_NotFound(t *testing.T) {
	v, _ := newTestVault(t, nil)
	if _, err := v.GetValid(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetValid: %v, want ErrNotFound", err)
	}
}

func TestGet_ReturnsRevokedRecord(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVault(t, nil)

	if _, err := v.Save(ctx, "acct-1", "a1", "r1", 3600, &domain.Profile{Name: "Alice"}); err != nil {
		t.Fatal(err)
	}
	if err := v.Revoke(ctx, "acct-1"); err != nil {
		t.Fatal(err)
	}

	tok, err := v.Get(ctx, "acct-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if tok.Active {
		t.Error("Get returned active record after revoke")
	}
	if tok.Profile == nil || tok.Profile.Name != "Alice" {
		t.Errorf("profile = %+v, want kept", tok.Profile)
	}
}

func TestRevoke_Idempotent(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVault(t, nil)

	if err := v.Revoke(ctx, "missing"); err != nil {
		t.Errorf("Revoke missing: %v, want nil", err)
	}
	if _, err := v.Save(ctx, "acct-1", "a1", "r1", 3600, nil); err != nil {
		t.Fatal(err)
	}
	if err := v.Revoke(ctx, "acct-1"); err != nil {
		t.Fatal(err)
	}
	if err := v.Revoke(ctx, "acct-1"); err != nil {
		t.Errorf("second Revoke: %v, want nil", err)
	}
}

func TestPurge_RemovesRecord(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVault(t, nil)

	if _, err := v.Save(ctx, "acct-1", "a1", "r1", 3600, nil); err != nil {
		t.Fatal(err)
	}
	if err := v.Purge(ctx, "acct-1"); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if _, err := v.Get(ctx, "acct-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after purge: %v, want ErrNotFound", err)
	}
	if err := v.Purge(ctx, "acct-1"); err != nil {
		t.Errorf("Purge missing: %v, want nil", err)
	}
}
