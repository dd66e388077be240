package domain

import "time"

// Metadata keys written by the registry when the owner pointer changes.
const (
	MetaPreviousOwner   = "previous_owner"
	MetaLastOwnerChange = "last_owner_change"
)

// Device represents a physical device shared by many accounts.
//
// OwnerAccountID is a last-writer hint ("who last became active here"), not an
// access-control list. Access decisions are derived from the session ledger;
// nothing may gate on this pointer.
type Device struct {
	ID             string
	Fingerprint    string
	Brand          string
	Model          string
	Platform       string
	OSVersion      string
	OwnerAccountID *string // nil when no account has been active yet
	Metadata       map[string]string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
