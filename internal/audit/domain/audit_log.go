package domain

import "time"

// AuditLog records one coordinator event (login, switch_out, logout, ...).
type AuditLog struct {
	ID        string
	AccountID string
	DeviceID  string
	Action    string
	Metadata  string
	CreatedAt time.Time
}
