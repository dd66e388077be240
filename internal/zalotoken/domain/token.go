package domain

import "time"

// Profile is the Zalo user snapshot captured at OAuth login.
type Profile struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	Phone  string `json:"phone,omitempty"`
}

// Token is the single live Zalo OAuth record for an account. Refresh
// supersedes it in place; revoke flips Active off but keeps the row for audit.
// Only an explicit purge deletes it.
type Token struct {
	ID           string
	AccountID    string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Profile      *Profile
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
