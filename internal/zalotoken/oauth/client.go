// Package oauth calls the Zalo OAuth v4 endpoint to refresh access tokens.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrRefresh is returned for any non-success response or transport failure.
// The endpoint is treated as unreliable; callers decide retry policy.
var ErrRefresh = errors.New("zalo oauth refresh failed")

// Client is an HTTP client for the Zalo OAuth token endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	appID      string
	secretKey  string
}

// NewClient returns a Client for the given OAuth base URL (e.g.
// https://oauth.zaloapp.com). timeout bounds each refresh call; the call
// fails rather than hangs.
func NewClient(baseURL, appID, secretKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		appID:      appID,
		secretKey:  secretKey,
	}
}

// zaloTokenResponse is the success shape of the v4 token endpoint. Zalo
// returns expires_in as a decimal string.
type zaloTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	ErrorCode    int    `json:"error"`
	ErrorName    string `json:"error_name"`
}

// Refresh exchanges refreshToken for a new token pair. Returns the new access
// token, refresh token (Zalo may rotate it), and lifetime in seconds. Any
// failure wraps ErrRefresh.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (accessToken, newRefreshToken string, expiresIn int, err error) {
	form := url.Values{}
	form.Set("app_id", c.appID)
	form.Set("refresh_token", refreshToken)
	form.Set("grant_type", "refresh_token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v4/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", 0, fmt.Errorf("%w: %v", ErrRefresh, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("secret_key", c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", 0, fmt.Errorf("%w: %v", ErrRefresh, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", 0, fmt.Errorf("%w: status %d", ErrRefresh, resp.StatusCode)
	}

	var body zaloTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", "", 0, fmt.Errorf("%w: decode: %v", ErrRefresh, err)
	}
	if body.ErrorCode != 0 {
		return "", "", 0, fmt.Errorf("%w: %s (%d)", ErrRefresh, body.ErrorName, body.ErrorCode)
	}
	if body.AccessToken == "" {
		return "", "", 0, fmt.Errorf("%w: empty access token", ErrRefresh)
	}

	seconds, err := strconv.Atoi(body.ExpiresIn)
	if err != nil || seconds <= 0 {
		seconds = 86400 // Zalo default: 24h
	}
	if body.RefreshToken == "" {
		body.RefreshToken = refreshToken
	}
	return body.AccessToken, body.RefreshToken, seconds, nil
}
