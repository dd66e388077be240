// Package ledger is the append/close log of (account, device) sessions and the
// source of truth for "who is active where". Access decisions derive from
// here, never from the device owner pointer.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	accountdomain "hybrid-session-hub/internal/account/domain"
	devicedomain "hybrid-session-hub/internal/device/domain"
	sessiondomain "hybrid-session-hub/internal/session/domain"
	sessionrepo "hybrid-session-hub/internal/session/repository"
)

// Sentinel errors; handlers map them to HTTP statuses.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrDeviceNotFound  = errors.New("device not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session is not active")
)

// AccountGetter is the minimal account lookup the ledger needs.
type AccountGetter interface {
	GetByID(ctx context.Context, id string) (*accountdomain.Account, error)
}

// DeviceGetter is the minimal device lookup the ledger needs.
type DeviceGetter interface {
	GetByID(ctx context.Context, id string) (*devicedomain.Device, error)
}

// Ledger owns session rows. It never touches the device registry.
type Ledger struct {
	accounts AccountGetter
	devices  DeviceGetter
	sessions sessionrepo.Repository
	nowF     func() time.Time
}

// New returns a Ledger over the given lookups and session repository.
func New(accounts AccountGetter, devices DeviceGetter, sessions sessionrepo.Repository) *Ledger {
	return &Ledger{
		accounts: accounts,
		devices:  devices,
		sessions: sessions,
		nowF:     func() time.Time { return time.Now().UTC() },
	}
}

// Open starts a new active session for (accountID, deviceID).
//
// Any still-active session for the same pair is closed first, so re-login is
// idempotent. Sessions held by other accounts on the device are untouched;
// a device carries one active session per account, not one per device.
func (l *Ledger) Open(ctx context.Context, accountID, deviceID string) (*sessiondomain.Session, error) {
	acc, err := l.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ErrAccountNotFound
	}
	dev, err := l.devices.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if dev == nil {
		return nil, ErrDeviceNotFound
	}
	now := l.nowF()
	if _, err := l.sessions.CloseAllForPair(ctx, accountID, deviceID, now); err != nil {
		return nil, err
	}
	s := &sessiondomain.Session{
		ID:        uuid.New().String(),
		AccountID: accountID,
		DeviceID:  deviceID,
		Active:    true,
		StartedAt: now,
	}
	if err := l.sessions.Create(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// CloseForPair ends all active sessions for (accountID, deviceID) and returns
// the number closed. Zero closed is not an error.
func (l *Ledger) CloseForPair(ctx context.Context, accountID, deviceID string) (int, error) {
	return l.sessions.CloseAllForPair(ctx, accountID, deviceID, l.nowF())
}

// Close ends the session with the given id. Returns ErrSessionNotFound for an
// unknown id and ErrSessionClosed if the session is already inactive.
func (l *Ledger) Close(ctx context.Context, sessionID string) error {
	s, err := l.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if s == nil {
		return ErrSessionNotFound
	}
	if !s.Active {
		return ErrSessionClosed
	}
	return l.sessions.Close(ctx, sessionID, l.nowF())
}

// ActiveForAccount returns the account's most recently started active session
// on any device, or nil if none.
func (l *Ledger) ActiveForAccount(ctx context.Context, accountID string) (*sessiondomain.Session, error) {
	return l.sessions.GetActiveByAccount(ctx, accountID)
}

// AttachCredentials records the minted credential pair on the session.
func (l *Ledger) AttachCredentials(ctx context.Context, sessionID, accessToken, refreshToken string, expiresAt time.Time) error {
	return l.sessions.UpdateCredentials(ctx, sessionID, accessToken, refreshToken, expiresAt)
}

// ListByAccount returns all sessions (active and historical) for the account,
// most recent start first.
func (l *Ledger) ListByAccount(ctx context.Context, accountID string) ([]*sessiondomain.Session, error) {
	return l.sessions.ListByAccount(ctx, accountID)
}

// ListByDevice returns all sessions (active and historical) on the device,
// most recent start first.
func (l *Ledger) ListByDevice(ctx context.Context, deviceID string) ([]*sessiondomain.Session, error) {
	return l.sessions.ListByDevice(ctx, deviceID)
}

// AccountsForDevice returns the distinct accounts that have ever held a
// session on the device, most recent first.
func (l *Ledger) AccountsForDevice(ctx context.Context, deviceID string) ([]string, error) {
	sessions, err := l.sessions.ListByDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(sessions))
	var out []string
	for _, s := range sessions {
		if !seen[s.AccountID] {
			seen[s.AccountID] = true
			out = append(out, s.AccountID)
		}
	}
	return out, nil
}
