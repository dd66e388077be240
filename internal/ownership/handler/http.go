// Package handler exposes the ownership coordinator's switch and logout
// operations over HTTP. Login goes through the auth handler, which verifies
// the password first.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	accounthandler "hybrid-session-hub/internal/account/handler"
	"hybrid-session-hub/internal/device"
	"hybrid-session-hub/internal/ownership"
	"hybrid-session-hub/internal/server/middleware"
	"hybrid-session-hub/internal/server/respond"
	"hybrid-session-hub/internal/session/ledger"
)

// Handler serves session transition endpoints.
type Handler struct {
	coordinator *ownership.Coordinator
}

// NewHandler returns an ownership Handler.
func NewHandler(c *ownership.Coordinator) *Handler {
	return &Handler{coordinator: c}
}

type switchRequest struct {
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
}

// Switch handles POST /v1/devices/{deviceID}/switch. from_account_id may be
// empty on a fresh device.
func (h *Handler) Switch(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["deviceID"]
	var in switchRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if in.ToAccountID == "" {
		respond.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "to_account_id is required")
		return
	}
	res, err := h.coordinator.Switch(r.Context(), in.FromAccountID, in.ToAccountID, deviceID)
	if err != nil {
		writeCoordinatorError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, accounthandler.NewLoginResponse(res))
}

// Logout handles POST /v1/sessions/logout. The account comes from the Bearer
// token; its most recent active session on any device is closed.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid authorization")
		return
	}
	s, err := h.coordinator.Logout(r.Context(), accountID)
	if err != nil {
		writeCoordinatorError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"session_id": s.ID,
		"device_id":  s.DeviceID,
		"active":     s.Active,
	})
}

func writeCoordinatorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, device.ErrNotFound), errors.Is(err, ledger.ErrDeviceNotFound):
		respond.Error(w, http.StatusNotFound, "DEVICE_NOT_FOUND", "device not found")
	case errors.Is(err, ledger.ErrAccountNotFound):
		respond.Error(w, http.StatusNotFound, "ACCOUNT_NOT_FOUND", "account not found")
	case errors.Is(err, ledger.ErrSessionNotFound):
		respond.Error(w, http.StatusNotFound, "SESSION_NOT_FOUND", "no active session")
	case errors.Is(err, ledger.ErrSessionClosed):
		respond.Error(w, http.StatusConflict, "SESSION_CLOSED", "session is not active")
	default:
		respond.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "session transition failed")
	}
}
