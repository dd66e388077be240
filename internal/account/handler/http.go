// Package handler exposes account registration and login over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"hybrid-session-hub/internal/account/service"
	"hybrid-session-hub/internal/device"
	"hybrid-session-hub/internal/ownership"
	"hybrid-session-hub/internal/server/respond"
	"hybrid-session-hub/internal/session/ledger"
)

// AuthHandler serves /v1/auth endpoints.
type AuthHandler struct {
	svc *service.AuthService
}

// NewAuthHandler returns an AuthHandler over the given service.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type registerRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
}

type accountResponse struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	Avatar      string    `json:"avatar,omitempty"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Register handles POST /v1/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	acct, err := h.svc.Register(r.Context(), service.RegisterInput{
		Username:    in.Username,
		Password:    in.Password,
		DisplayName: in.DisplayName,
		Avatar:      in.Avatar,
		Email:       in.Email,
		Phone:       in.Phone,
	})
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			respond.Error(w, http.StatusConflict, "USERNAME_TAKEN", "username already taken")
			return
		}
		respond.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	respond.JSON(w, http.StatusCreated, accountResponse{
		ID:          acct.ID,
		Username:    acct.Username,
		DisplayName: acct.DisplayName,
		Avatar:      acct.Avatar,
		Email:       acct.Email,
		Phone:       acct.Phone,
		CreatedAt:   acct.CreatedAt,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	DeviceID string `json:"device_id"`
}

// LoginResponse is the session placement returned by login and switch.
type LoginResponse struct {
	SessionID       string     `json:"session_id"`
	AccountID       string     `json:"account_id"`
	DeviceID        string     `json:"device_id"`
	AccessToken     string     `json:"access_token"`
	RefreshToken    string     `json:"refresh_token"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	PreviousOwnerID string     `json:"previous_owner_id,omitempty"`
}

// NewLoginResponse maps a coordinator result to the wire shape.
func NewLoginResponse(res *ownership.LoginResult) LoginResponse {
	s := res.Session
	return LoginResponse{
		SessionID:       s.ID,
		AccountID:       s.AccountID,
		DeviceID:        s.DeviceID,
		AccessToken:     s.AccessToken,
		RefreshToken:    s.RefreshToken,
		ExpiresAt:       s.ExpiresAt,
		StartedAt:       s.StartedAt,
		PreviousOwnerID: res.PreviousOwnerID,
	}
}

// Login handles POST /v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if in.DeviceID == "" {
		respond.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "device_id is required")
		return
	}
	res, err := h.svc.Login(r.Context(), in.Username, in.Password, in.DeviceID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			respond.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid username or password")
		case errors.Is(err, device.ErrNotFound), errors.Is(err, ledger.ErrDeviceNotFound):
			respond.Error(w, http.StatusNotFound, "DEVICE_NOT_FOUND", "device not found")
		default:
			respond.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "login failed")
		}
		return
	}
	respond.JSON(w, http.StatusOK, NewLoginResponse(res))
}
