// Package handler exposes the Zalo token vault over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"hybrid-session-hub/internal/server/respond"
	"hybrid-session-hub/internal/zalotoken"
	"hybrid-session-hub/internal/zalotoken/domain"
)

// Handler serves /v1/accounts/{accountID}/zalo-token endpoints.
type Handler struct {
	vault *zalotoken.Vault
}

// NewHandler returns a zalo token Handler.
func NewHandler(v *zalotoken.Vault) *Handler {
	return &Handler{vault: v}
}

type saveRequest struct {
	AccessToken      string          `json:"access_token"`
	RefreshToken     string          `json:"refresh_token"`
	ExpiresInSeconds int             `json:"expires_in_seconds"`
	Profile          *domain.Profile `json:"profile,omitempty"`
}

type tokenResponse struct {
	AccountID string          `json:"account_id"`
	ExpiresAt time.Time       `json:"expires_at"`
	Profile   *domain.Profile `json:"profile,omitempty"`
	Active    bool            `json:"active"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Save handles PUT /v1/accounts/{accountID}/zalo-token: upsert the token pair.
// Token values are never echoed back.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountID"]
	var in saveRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if in.AccessToken == "" || in.RefreshToken == "" {
		respond.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "access_token and refresh_token are required")
		return
	}
	t, err := h.vault.Save(r.Context(), accountID, in.AccessToken, in.RefreshToken, in.ExpiresInSeconds, in.Profile)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "saving token failed")
		return
	}
	respond.JSON(w, http.StatusOK, tokenResponse{
		AccountID: t.AccountID,
		ExpiresAt: t.ExpiresAt,
		Profile:   t.Profile,
		Active:    t.Active,
		UpdatedAt: t.UpdatedAt,
	})
}

// Get handles GET /v1/accounts/{accountID}/zalo-token: the stored record
// without token values. Revoked records are returned with active=false.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountID"]
	t, err := h.vault.Get(r.Context(), accountID)
	if err != nil {
		writeVaultError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, tokenResponse{
		AccountID: t.AccountID,
		ExpiresAt: t.ExpiresAt,
		Profile:   t.Profile,
		Active:    t.Active,
		UpdatedAt: t.UpdatedAt,
	})
}

// Valid handles GET /v1/accounts/{accountID}/zalo-token/valid: an access token
// guaranteed unexpired, refreshing upstream if needed.
func (h *Handler) Valid(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountID"]
	access, err := h.vault.GetValid(r.Context(), accountID)
	if err != nil {
		writeVaultError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"access_token": access})
}

// Revoke handles POST /v1/accounts/{accountID}/zalo-token/revoke. Idempotent.
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountID"]
	if err := h.vault.Revoke(r.Context(), accountID); err != nil {
		respond.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "revoking token failed")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]bool{"revoked": true})
}

// Purge handles DELETE /v1/accounts/{accountID}/zalo-token: hard delete.
func (h *Handler) Purge(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountID"]
	if err := h.vault.Purge(r.Context(), accountID); err != nil {
		respond.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "purging token failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeVaultError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, zalotoken.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "TOKEN_NOT_FOUND", "no zalo token for account")
	case errors.Is(err, zalotoken.ErrRevoked):
		respond.Error(w, http.StatusForbidden, "TOKEN_REVOKED", "zalo token has been revoked")
	case errors.Is(err, zalotoken.ErrRefreshFailed):
		respond.Error(w, http.StatusBadGateway, "REFRESH_FAILED", "zalo token refresh failed")
	default:
		respond.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "token lookup failed")
	}
}
