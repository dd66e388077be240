package client

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Orchestrator drives account switching on one device. It owns the local
// active flag and the outbound credential; server session state is reconciled,
// never assumed to mirror the local cache.
type Orchestrator struct {
	backend  Backend
	store    Store
	deviceID string

	// switchMu is the single in-flight switch lock. TryLock failures surface
	// as ErrSwitchInProgress instead of queueing.
	switchMu sync.Mutex

	mu     sync.Mutex
	bearer string

	nowF func() time.Time
}

// New returns an Orchestrator for the device.
func New(backend Backend, store Store, deviceID string) *Orchestrator {
	return &Orchestrator{
		backend:  backend,
		store:    store,
		deviceID: deviceID,
		nowF:     time.Now,
	}
}

// AddAccountInput carries the credentials AddAccount needs: the password
// login plus the third-party token set obtained from the external OAuth flow.
type AddAccountInput struct {
	Username    string
	Password    string
	DisplayName string
	Avatar      string
	Zalo        *ZaloCredentials
}

// ActiveAccount returns the locally active record, or nil if none.
func (o *Orchestrator) ActiveAccount() (*LocalAccountRecord, error) {
	recs, err := o.store.List()
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		if r.Active {
			return r, nil
		}
	}
	return nil, nil
}

// Accounts returns all cached records, most recently used first.
func (o *Orchestrator) Accounts() ([]*LocalAccountRecord, error) {
	recs, err := o.store.List()
	if err != nil {
		return nil, err
	}
	sortByLastUsed(recs)
	return recs, nil
}

// SwitchTo makes accountID the locally active account and places it on the
// device server-side. A second call while one is pending fails with
// ErrSwitchInProgress. If the server call fails after the local flip, the
// flip is not rolled back; Reconcile is attempted and the error is returned.
func (o *Orchestrator) SwitchTo(ctx context.Context, accountID string) (*LocalAccountRecord, error) {
	if !o.switchMu.TryLock() {
		return nil, ErrSwitchInProgress
	}
	defer o.switchMu.Unlock()
	return o.switchTo(ctx, accountID)
}

// switchTo runs the switch sequence. Caller must hold switchMu.
func (o *Orchestrator) switchTo(ctx context.Context, accountID string) (*LocalAccountRecord, error) {
	target, err := o.store.Get(accountID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrAccountNotFound
	}
	if target.Active {
		return target, nil
	}

	prev, err := o.ActiveAccount()
	if err != nil {
		return nil, err
	}

	// Optimistic local flip; the UI reflects the new account immediately.
	if prev != nil {
		prev.Active = false
		if err := o.store.Put(prev); err != nil {
			return nil, err
		}
	}
	target.Active = true
	target.LastUsedAt = o.nowF()
	if err := o.store.Put(target); err != nil {
		return nil, err
	}

	// from is empty: a local switch never closes the previous account's
	// server session; both stay active in hybrid mode.
	placement, err := o.backend.Switch(ctx, o.bearerFor(target), o.deviceID, "", accountID)
	if err != nil {
		o.reconcile(ctx, target)
		return nil, fmt.Errorf("switch to %s: %w", accountID, err)
	}

	target.AccessToken = placement.AccessToken
	target.RefreshToken = placement.RefreshToken
	if err := o.store.Put(target); err != nil {
		return nil, err
	}
	o.setBearer(target.AccessToken)
	return target, nil
}

// AddAccount logs the account in, stores its third-party token server-side,
// caches a local record, and switches to it.
func (o *Orchestrator) AddAccount(ctx context.Context, in AddAccountInput) (*LocalAccountRecord, error) {
	if !o.switchMu.TryLock() {
		return nil, ErrSwitchInProgress
	}
	defer o.switchMu.Unlock()

	placement, err := o.backend.Login(ctx, in.Username, in.Password, o.deviceID)
	if err != nil {
		return nil, fmt.Errorf("login %s: %w", in.Username, err)
	}
	if in.Zalo != nil {
		if err := o.backend.SaveZaloToken(ctx, placement.AccessToken, placement.AccountID, *in.Zalo); err != nil {
			return nil, fmt.Errorf("save zalo token: %w", err)
		}
	}

	rec := &LocalAccountRecord{
		AccountID:    placement.AccountID,
		Username:     in.Username,
		DisplayName:  in.DisplayName,
		Avatar:       in.Avatar,
		AccessToken:  placement.AccessToken,
		RefreshToken: placement.RefreshToken,
		LastUsedAt:   o.nowF(),
	}
	if err := o.store.Put(rec); err != nil {
		return nil, err
	}
	return o.switchTo(ctx, rec.AccountID)
}

// RemoveAccount revokes the account's third-party token (best-effort), drops
// the local record, and, if it was active, switches to the most recently used
// remaining account. Returns the new active record, or nil if none remain.
func (o *Orchestrator) RemoveAccount(ctx context.Context, accountID string) (*LocalAccountRecord, error) {
	if !o.switchMu.TryLock() {
		return nil, ErrSwitchInProgress
	}
	defer o.switchMu.Unlock()

	rec, err := o.store.Get(accountID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrAccountNotFound
	}

	if err := o.backend.RevokeZaloToken(ctx, rec.AccessToken, accountID); err != nil {
		log.Printf("client: revoking zalo token for %s: %v", accountID, err)
	}

	wasActive := rec.Active
	if err := o.store.Delete(accountID); err != nil {
		return nil, err
	}
	o.mu.Lock()
	if o.bearer == rec.AccessToken {
		o.bearer = ""
	}
	o.mu.Unlock()

	if !wasActive {
		return o.ActiveAccount()
	}
	remaining, err := o.Accounts()
	if err != nil {
		return nil, err
	}
	if len(remaining) == 0 {
		return nil, nil
	}
	return o.switchTo(ctx, remaining[0].AccountID)
}

// SwitchToNextAccount moves to the next account in last-used order,
// wrapping around. Returns nil without error if fewer than two accounts exist.
func (o *Orchestrator) SwitchToNextAccount(ctx context.Context) (*LocalAccountRecord, error) {
	return o.switchNeighbor(ctx, 1)
}

// SwitchToPreviousAccount moves to the previous account in last-used order,
// wrapping around. Returns nil without error if fewer than two accounts exist.
func (o *Orchestrator) SwitchToPreviousAccount(ctx context.Context) (*LocalAccountRecord, error) {
	return o.switchNeighbor(ctx, -1)
}

func (o *Orchestrator) switchNeighbor(ctx context.Context, step int) (*LocalAccountRecord, error) {
	if !o.switchMu.TryLock() {
		return nil, ErrSwitchInProgress
	}
	defer o.switchMu.Unlock()

	recs, err := o.Accounts()
	if err != nil {
		return nil, err
	}
	if len(recs) <= 1 {
		return nil, nil
	}
	idx := 0
	for i, r := range recs {
		if r.Active {
			idx = i
			break
		}
	}
	next := (idx + step + len(recs)) % len(recs)
	return o.switchTo(ctx, recs[next].AccountID)
}

// LogoutAll revokes and logs out every cached account (best-effort) and wipes
// the local cache.
func (o *Orchestrator) LogoutAll(ctx context.Context) error {
	if !o.switchMu.TryLock() {
		return ErrSwitchInProgress
	}
	defer o.switchMu.Unlock()

	recs, err := o.store.List()
	if err != nil {
		return err
	}
	for _, r := range recs {
		if err := o.backend.RevokeZaloToken(ctx, r.AccessToken, r.AccountID); err != nil {
			log.Printf("client: revoking zalo token for %s: %v", r.AccountID, err)
		}
		if err := o.backend.Logout(ctx, r.AccessToken); err != nil {
			log.Printf("client: logging out %s: %v", r.AccountID, err)
		}
		if err := o.store.Delete(r.AccountID); err != nil {
			return err
		}
	}
	o.setBearer("")
	return nil
}

// Reconcile re-reads server session state for the locally active account and
// clears the local active flag if the server shows no active session. Called
// after ambiguous switch failures; also safe to call on app start.
func (o *Orchestrator) Reconcile(ctx context.Context) error {
	active, err := o.ActiveAccount()
	if err != nil {
		return err
	}
	if active == nil {
		return nil
	}
	return o.reconcile(ctx, active)
}

func (o *Orchestrator) reconcile(ctx context.Context, active *LocalAccountRecord) error {
	sess, err := o.backend.ActiveSession(ctx, active.AccessToken, active.AccountID)
	if err != nil {
		log.Printf("client: reconcile read for %s: %v", active.AccountID, err)
		return err
	}
	if sess == nil || !sess.Active {
		active.Active = false
		if err := o.store.Put(active); err != nil {
			return err
		}
	}
	return nil
}

// bearerFor picks the outbound credential for a server call: the current
// bearer if set, otherwise the target's stored token.
func (o *Orchestrator) bearerFor(target *LocalAccountRecord) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.bearer != "" {
		return o.bearer
	}
	return target.AccessToken
}

func (o *Orchestrator) setBearer(token string) {
	o.mu.Lock()
	o.bearer = token
	o.mu.Unlock()
}
