// Package handler exposes audit log queries over HTTP.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"hybrid-session-hub/internal/audit"
	"hybrid-session-hub/internal/server/respond"
)

// Handler serves GET /v1/accounts/{accountID}/audit.
type Handler struct {
	logger *audit.Logger
}

// NewHandler returns an audit Handler.
func NewHandler(l *audit.Logger) *Handler {
	return &Handler{logger: l}
}

type entryResponse struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	DeviceID  string    `json:"device_id,omitempty"`
	Action    string    `json:"action"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListByAccount returns the account's audit entries, newest first. Supports
// limit and offset query parameters.
func (h *Handler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountID"]
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	entries, err := h.logger.ListByAccount(r.Context(), accountID, int32(limit), int32(offset))
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "listing audit entries failed")
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			ID:        e.ID,
			AccountID: e.AccountID,
			DeviceID:  e.DeviceID,
			Action:    e.Action,
			Metadata:  e.Metadata,
			CreatedAt: e.CreatedAt,
		})
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{"entries": out})
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
