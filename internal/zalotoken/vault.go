// Package zalotoken stores Zalo OAuth tokens per account and refreshes them
// transparently when they expire.
package zalotoken

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"hybrid-session-hub/internal/zalotoken/domain"
	"hybrid-session-hub/internal/zalotoken/repository"
)

var (
	// ErrNotFound indicates the account has no stored Zalo token.
	ErrNotFound = errors.New("zalo token not found")
	// ErrRevoked indicates the stored token was revoked and cannot be served.
	ErrRevoked = errors.New("zalo token revoked")
	// ErrRefreshFailed indicates the token expired and the refresh call failed.
	// The stored record is left untouched.
	ErrRefreshFailed = errors.New("zalo token refresh failed")
)

// Refresher exchanges a refresh token for a new token pair. Implemented by
// oauth.Client.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (accessToken, newRefreshToken string, expiresIn int, err error)
}

// Vault manages the one-row-per-account Zalo token store. Concurrent GetValid
// calls for the same expired account collapse into a single upstream refresh.
type Vault struct {
	repo      repository.Repository
	refresher Refresher
	flight    singleflight.Group
	nowF      func() time.Time
}

// NewVault returns a Vault over the given repository. refresher may be nil,
// in which case expired tokens fail with ErrRefreshFailed instead of being
// refreshed.
func NewVault(repo repository.Repository, refresher Refresher) *Vault {
	return &Vault{repo: repo, refresher: refresher, nowF: time.Now}
}

// Save upserts the account's token record. A nil profile on an existing record
// keeps the stored profile snapshot. The record always comes back active, even
// if it was previously revoked; a fresh save supersedes a revoke.
func (v *Vault) Save(ctx context.Context, accountID, accessToken, refreshToken string, expiresInSeconds int, profile *domain.Profile) (*domain.Token, error) {
	if accountID == "" {
		return nil, fmt.Errorf("account id is required")
	}
	now := v.nowF()
	existing, err := v.repo.GetByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}

	t := &domain.Token{
		AccountID:    accountID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(time.Duration(expiresInSeconds) * time.Second),
		Profile:      profile,
		Active:       true,
		UpdatedAt:    now,
	}

	if existing == nil {
		t.ID = uuid.NewString()
		t.CreatedAt = now
		if err := v.repo.Create(ctx, t); err != nil {
			return nil, fmt.Errorf("create token: %w", err)
		}
		return t, nil
	}

	t.ID = existing.ID
	t.CreatedAt = existing.CreatedAt
	if t.Profile == nil {
		t.Profile = existing.Profile
	}
	if err := v.repo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("update token: %w", err)
	}
	return t, nil
}

// GetValid returns an access token guaranteed to be unexpired at the time of
// the call, refreshing via the upstream OAuth endpoint when the stored one has
// expired. The refreshed pair is persisted before being returned; on refresh
// failure the stored record is not modified and ErrRefreshFailed is returned.
func (v *Vault) GetValid(ctx context.Context, accountID string) (string, error) {
	t, err := v.repo.GetByAccount(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	if t == nil {
		return "", ErrNotFound
	}
	if !t.Active {
		return "", ErrRevoked
	}
	if v.nowF().Before(t.ExpiresAt) {
		return t.AccessToken, nil
	}

	// Expired. Collapse concurrent refreshes for the same account into one
	// upstream call; every waiter gets the same result.
	access, err, _ := v.flight.Do(accountID, func() (interface{}, error) {
		return v.refreshLocked(ctx, accountID)
	})
	if err != nil {
		return "", err
	}
	return access.(string), nil
}

// refreshLocked runs inside the singleflight for accountID. It re-reads the
// record first: a waiter that queued behind a completed refresh sees the new
// expiry and returns without another upstream call.
func (v *Vault) refreshLocked(ctx context.Context, accountID string) (string, error) {
	t, err := v.repo.GetByAccount(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	if t == nil {
		return "", ErrNotFound
	}
	if !t.Active {
		return "", ErrRevoked
	}
	if v.nowF().Before(t.ExpiresAt) {
		return t.AccessToken, nil
	}
	if v.refresher == nil {
		return "", fmt.Errorf("%w: no refresher configured", ErrRefreshFailed)
	}

	access, refresh, expiresIn, err := v.refresher.Refresh(ctx, t.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	now := v.nowF()
	t.AccessToken = access
	t.RefreshToken = refresh
	t.ExpiresAt = now.Add(time.Duration(expiresIn) * time.Second)
	t.UpdatedAt = now
	if err := v.repo.Update(ctx, t); err != nil {
		return "", fmt.Errorf("persist refreshed token: %w", err)
	}
	return access, nil
}

// Get returns the full token record including profile and expiry. It does not
// refresh; revoked records are still returned so callers can inspect them.
func (v *Vault) Get(ctx context.Context, accountID string) (*domain.Token, error) {
	t, err := v.repo.GetByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	if t == nil {
		return nil, ErrNotFound
	}
	return t, nil
}

// Revoke soft-deletes the account's token. Idempotent: revoking an already
// revoked or missing token succeeds.
func (v *Vault) Revoke(ctx context.Context, accountID string) error {
	t, err := v.repo.GetByAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}
	if t == nil || !t.Active {
		return nil
	}
	t.Active = false
	t.UpdatedAt = v.nowF()
	if err := v.repo.Update(ctx, t); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// Purge hard-deletes the account's token record. No-op if absent.
func (v *Vault) Purge(ctx context.Context, accountID string) error {
	if err := v.repo.Delete(ctx, accountID); err != nil {
		return fmt.Errorf("purge token: %w", err)
	}
	return nil
}
