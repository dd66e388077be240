// Package handler exposes the device registry over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"hybrid-session-hub/internal/device"
	"hybrid-session-hub/internal/device/domain"
	"hybrid-session-hub/internal/server/respond"
)

// DeviceUsers lists the accounts that have held sessions on a device.
// Implemented by the session ledger.
type DeviceUsers interface {
	AccountsForDevice(ctx context.Context, deviceID string) ([]string, error)
}

// Handler serves /v1/devices endpoints.
type Handler struct {
	registry *device.Registry
	users    DeviceUsers
}

// NewHandler returns a device Handler.
func NewHandler(registry *device.Registry, users DeviceUsers) *Handler {
	return &Handler{registry: registry, users: users}
}

type registerRequest struct {
	Fingerprint string `json:"fingerprint"`
	Brand       string `json:"brand"`
	Model       string `json:"model"`
	Platform    string `json:"platform"`
	OSVersion   string `json:"os_version"`
}

type deviceResponse struct {
	ID             string            `json:"id"`
	Fingerprint    string            `json:"fingerprint"`
	Brand          string            `json:"brand,omitempty"`
	Model          string            `json:"model,omitempty"`
	Platform       string            `json:"platform,omitempty"`
	OSVersion      string            `json:"os_version,omitempty"`
	OwnerAccountID string            `json:"owner_account_id,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

func newDeviceResponse(d *domain.Device) deviceResponse {
	owner := ""
	if d.OwnerAccountID != nil {
		owner = *d.OwnerAccountID
	}
	return deviceResponse{
		ID:             d.ID,
		Fingerprint:    d.Fingerprint,
		Brand:          d.Brand,
		Model:          d.Model,
		Platform:       d.Platform,
		OSVersion:      d.OSVersion,
		OwnerAccountID: owner,
		Metadata:       d.Metadata,
		CreatedAt:      d.CreatedAt,
	}
}

// Register handles POST /v1/devices. Registration is idempotent by
// fingerprint; re-registering returns the existing record.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if in.Fingerprint == "" {
		respond.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "fingerprint is required")
		return
	}
	d, err := h.registry.Register(r.Context(), in.Fingerprint, device.Attributes{
		Brand:     in.Brand,
		Model:     in.Model,
		Platform:  in.Platform,
		OSVersion: in.OSVersion,
	})
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "device registration failed")
		return
	}
	respond.JSON(w, http.StatusCreated, newDeviceResponse(d))
}

// Get handles GET /v1/devices/{deviceID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["deviceID"]
	d, err := h.registry.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "DEVICE_NOT_FOUND", "device not found")
			return
		}
		respond.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "device lookup failed")
		return
	}
	respond.JSON(w, http.StatusOK, newDeviceResponse(d))
}

// Accounts handles GET /v1/devices/{deviceID}/accounts: the distinct accounts
// that have held a session on the device, most recent first.
func (h *Handler) Accounts(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["deviceID"]
	if _, err := h.registry.Get(r.Context(), id); err != nil {
		if errors.Is(err, device.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "DEVICE_NOT_FOUND", "device not found")
			return
		}
		respond.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "device lookup failed")
		return
	}
	accounts, err := h.users.AccountsForDevice(r.Context(), id)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "listing device accounts failed")
		return
	}
	if accounts == nil {
		accounts = []string{}
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{"account_ids": accounts})
}

// ForAccount handles GET /v1/accounts/{accountID}/devices: devices whose owner
// pointer is the account. A hint list, not an access control list.
func (h *Handler) ForAccount(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountID"]
	devices, err := h.registry.DevicesForAccount(r.Context(), accountID)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "listing devices failed")
		return
	}
	out := make([]deviceResponse, 0, len(devices))
	for _, d := range devices {
		out = append(out, newDeviceResponse(d))
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{"devices": out})
}
