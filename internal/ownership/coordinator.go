// Package ownership applies the session state-machine rules for login, switch,
// and logout. It is the only component that mutates the device owner pointer
// and closes ledger entries.
package ownership

import (
	"context"
	"fmt"

	"hybrid-session-hub/internal/device"
	"hybrid-session-hub/internal/security"
	sessiondomain "hybrid-session-hub/internal/session/domain"
	"hybrid-session-hub/internal/session/ledger"
)

// CredentialIssuer mints the session credential pair attached on login.
// Implementations must return security.ErrInvalidCredential (possibly wrapped)
// on issuance failure.
type CredentialIssuer interface {
	Issue(accountID string) (*security.CredentialPair, error)
}

// AuditLogger records coordinator events. Best-effort; implementations must
// not fail the calling operation.
type AuditLogger interface {
	LogEvent(ctx context.Context, accountID, deviceID, action, metadata string)
}

// LoginResult is the outcome of Login and Switch.
type LoginResult struct {
	Session         *sessiondomain.Session
	PreviousOwnerID string // device owner before this login; empty if none
}

// Coordinator serializes session transitions per (account, device) pair.
// Operations on different pairs proceed fully in parallel; that is the hybrid
// mode guarantee of many simultaneous accounts per device.
type Coordinator struct {
	registry *device.Registry
	ledger   *ledger.Ledger
	issuer   CredentialIssuer
	audit    AuditLogger // may be nil
	pairs    *keyedMutex
}

// NewCoordinator returns a Coordinator over the given registry, ledger, and
// issuer. audit may be nil to disable event logging.
func NewCoordinator(registry *device.Registry, l *ledger.Ledger, issuer CredentialIssuer, audit AuditLogger) *Coordinator {
	return &Coordinator{
		registry: registry,
		ledger:   l,
		issuer:   issuer,
		audit:    audit,
		pairs:    newKeyedMutex(),
	}
}

func pairKey(accountID, deviceID string) string {
	return accountID + "\x00" + deviceID
}

// Login activates (accountID, deviceID): NoSession|Ended -> Active.
//
// Steps run in order and the first failure aborts the rest: verify the device
// is registered, close any still-active session for this exact pair, point
// the device owner at the account (always succeeds for a different account;
// the device is multi-tenant), open the new ledger entry, then mint and
// attach the credential pair.
func (c *Coordinator) Login(ctx context.Context, accountID, deviceID string) (*LoginResult, error) {
	key := pairKey(accountID, deviceID)
	c.pairs.Lock(key)
	defer c.pairs.Unlock(key)

	return c.login(ctx, accountID, deviceID)
}

// login runs the login steps. Caller must hold the pair lock.
func (c *Coordinator) login(ctx context.Context, accountID, deviceID string) (*LoginResult, error) {
	if _, err := c.registry.Get(ctx, deviceID); err != nil {
		return nil, err
	}
	if _, err := c.ledger.CloseForPair(ctx, accountID, deviceID); err != nil {
		return nil, fmt.Errorf("close previous sessions: %w", err)
	}
	change, err := c.registry.SetOwner(ctx, deviceID, accountID)
	if err != nil {
		return nil, fmt.Errorf("set device owner: %w", err)
	}
	sess, err := c.ledger.Open(ctx, accountID, deviceID)
	if err != nil {
		return nil, err
	}
	pair, err := c.issuer.Issue(accountID)
	if err != nil {
		return nil, err
	}
	if err := c.ledger.AttachCredentials(ctx, sess.ID, pair.AccessToken, pair.RefreshToken, pair.ExpiresAt); err != nil {
		return nil, fmt.Errorf("attach credentials: %w", err)
	}
	sess.AccessToken = pair.AccessToken
	sess.RefreshToken = pair.RefreshToken
	exp := pair.ExpiresAt
	sess.ExpiresAt = &exp

	c.logEvent(ctx, accountID, deviceID, "login", "previous_owner="+change.PreviousOwnerID)
	return &LoginResult{Session: sess, PreviousOwnerID: change.PreviousOwnerID}, nil
}

// Switch moves the device's active slot from one account to another: close
// fromAccountID's sessions on the device, then log toAccountID in.
// fromAccountID may be empty on a fresh device; the close step is skipped.
func (c *Coordinator) Switch(ctx context.Context, fromAccountID, toAccountID, deviceID string) (*LoginResult, error) {
	if fromAccountID != "" {
		key := pairKey(fromAccountID, deviceID)
		c.pairs.Lock(key)
		_, err := c.ledger.CloseForPair(ctx, fromAccountID, deviceID)
		c.pairs.Unlock(key)
		if err != nil {
			return nil, fmt.Errorf("close sessions for %s: %w", fromAccountID, err)
		}
		c.logEvent(ctx, fromAccountID, deviceID, "switch_out", "to="+toAccountID)
	}
	return c.Login(ctx, toAccountID, deviceID)
}

// Logout closes the account's single currently-active session, on whichever
// device it lives. Returns ledger.ErrSessionNotFound if the account has no
// active session.
func (c *Coordinator) Logout(ctx context.Context, accountID string) (*sessiondomain.Session, error) {
	sess, err := c.ledger.ActiveForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ledger.ErrSessionNotFound
	}

	key := pairKey(accountID, sess.DeviceID)
	c.pairs.Lock(key)
	defer c.pairs.Unlock(key)

	if err := c.ledger.Close(ctx, sess.ID); err != nil {
		return nil, err
	}
	sess.Active = false
	c.logEvent(ctx, accountID, sess.DeviceID, "logout", "session="+sess.ID)
	return sess, nil
}

func (c *Coordinator) logEvent(ctx context.Context, accountID, deviceID, action, metadata string) {
	if c.audit == nil {
		return
	}
	c.audit.LogEvent(ctx, accountID, deviceID, action, metadata)
}
