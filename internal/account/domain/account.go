package domain

import (
	"errors"
	"strings"
	"time"
)

// Account is an end-user identity. Accounts are referenced by sessions and
// device owner pointers but own neither.
type Account struct {
	ID           string
	Username     string
	PasswordHash string
	DisplayName  string
	Avatar       string
	Email        string
	Phone        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks required fields. PasswordHash is not validated here; the
// auth service owns hashing.
func (a *Account) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return errors.New("account: id is required")
	}
	if strings.TrimSpace(a.Username) == "" {
		return errors.New("account: username is required")
	}
	return nil
}
