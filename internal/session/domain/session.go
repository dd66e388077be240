package domain

import "time"

// Session is one activation of an (account, device) pair.
//
// Sessions are exclusive per (account, device) pair, never per device:
// distinct accounts may each hold an active session on the same device at the
// same time. Closed sessions are kept for history, never deleted.
type Session struct {
	ID           string
	AccountID    string
	DeviceID     string
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time // credential expiry; nil until credentials attach
	Active       bool
	StartedAt    time.Time
	EndedAt      *time.Time // nil while active
}
