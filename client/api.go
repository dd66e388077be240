package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Placement is the session the server placed an account into: identifiers
// plus the credential pair for subsequent calls.
type Placement struct {
	SessionID    string     `json:"session_id"`
	AccountID    string     `json:"account_id"`
	DeviceID     string     `json:"device_id"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// SessionInfo is a server-side session as seen by reconciliation reads.
type SessionInfo struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	DeviceID  string `json:"device_id"`
	Active    bool   `json:"active"`
}

// ZaloCredentials is a third-party token set handed to AddAccount after the
// external OAuth flow.
type ZaloCredentials struct {
	AccessToken      string                 `json:"access_token"`
	RefreshToken     string                 `json:"refresh_token"`
	ExpiresInSeconds int                    `json:"expires_in_seconds"`
	Profile          map[string]interface{} `json:"profile,omitempty"`
}

// Backend is the server surface the orchestrator drives.
type Backend interface {
	// Login authenticates with a password and places the account on the device.
	Login(ctx context.Context, username, password, deviceID string) (*Placement, error)
	// Switch places toAccountID on the device. fromAccountID may be empty;
	// then no other account's sessions are closed.
	Switch(ctx context.Context, bearer, deviceID, fromAccountID, toAccountID string) (*Placement, error)
	// Logout closes the bearer account's active session.
	Logout(ctx context.Context, bearer string) error
	// ActiveSession returns the account's active session, or nil if none.
	ActiveSession(ctx context.Context, bearer, accountID string) (*SessionInfo, error)
	// SaveZaloToken upserts the account's third-party token server-side.
	SaveZaloToken(ctx context.Context, bearer, accountID string, creds ZaloCredentials) error
	// RevokeZaloToken soft-revokes the account's third-party token.
	RevokeZaloToken(ctx context.Context, bearer, accountID string) error
}

// HTTPBackend implements Backend over the server's HTTP API.
type HTTPBackend struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPBackend returns a Backend talking to baseURL. timeout bounds each
// call.
func NewHTTPBackend(baseURL string, timeout time.Duration) *HTTPBackend {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPBackend{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (b *HTTPBackend) do(ctx context.Context, method, path, bearer string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Code    string `json:"error_code"`
			Message string `json:"error_message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Code == "" {
			return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: %s (%s)", method, path, apiErr.Message, apiErr.Code)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (b *HTTPBackend) Login(ctx context.Context, username, password, deviceID string) (*Placement, error) {
	var p Placement
	err := b.do(ctx, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"username":  username,
		"password":  password,
		"device_id": deviceID,
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (b *HTTPBackend) Switch(ctx context.Context, bearer, deviceID, fromAccountID, toAccountID string) (*Placement, error) {
	var p Placement
	err := b.do(ctx, http.MethodPost, "/v1/devices/"+deviceID+"/switch", bearer, map[string]string{
		"from_account_id": fromAccountID,
		"to_account_id":   toAccountID,
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (b *HTTPBackend) Logout(ctx context.Context, bearer string) error {
	return b.do(ctx, http.MethodPost, "/v1/sessions/logout", bearer, nil, nil)
}

func (b *HTTPBackend) ActiveSession(ctx context.Context, bearer, accountID string) (*SessionInfo, error) {
	var s SessionInfo
	err := b.do(ctx, http.MethodGet, "/v1/accounts/"+accountID+"/sessions/active", bearer, nil, &s)
	if err != nil {
		if strings.Contains(err.Error(), "SESSION_NOT_FOUND") {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (b *HTTPBackend) SaveZaloToken(ctx context.Context, bearer, accountID string, creds ZaloCredentials) error {
	return b.do(ctx, http.MethodPut, "/v1/accounts/"+accountID+"/zalo-token", bearer, creds, nil)
}

func (b *HTTPBackend) RevokeZaloToken(ctx context.Context, bearer, accountID string) error {
	return b.do(ctx, http.MethodPost, "/v1/accounts/"+accountID+"/zalo-token/revoke", bearer, nil, nil)
}
