// Package handler exposes session ledger queries over HTTP.
package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"hybrid-session-hub/internal/server/respond"
	sessiondomain "hybrid-session-hub/internal/session/domain"
	"hybrid-session-hub/internal/session/ledger"
)

// Handler serves session listing endpoints. Writes go through the ownership
// coordinator, never through here.
type Handler struct {
	ledger *ledger.Ledger
}

// NewHandler returns a session Handler over the ledger.
func NewHandler(l *ledger.Ledger) *Handler {
	return &Handler{ledger: l}
}

type sessionResponse struct {
	ID        string     `json:"id"`
	AccountID string     `json:"account_id"`
	DeviceID  string     `json:"device_id"`
	Active    bool       `json:"active"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func newSessionResponses(sessions []*sessiondomain.Session) []sessionResponse {
	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionResponse{
			ID:        s.ID,
			AccountID: s.AccountID,
			DeviceID:  s.DeviceID,
			Active:    s.Active,
			StartedAt: s.StartedAt,
			EndedAt:   s.EndedAt,
			ExpiresAt: s.ExpiresAt,
		})
	}
	return out
}

// ListByAccount handles GET /v1/accounts/{accountID}/sessions.
func (h *Handler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountID"]
	sessions, err := h.ledger.ListByAccount(r.Context(), accountID)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "listing sessions failed")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{"sessions": newSessionResponses(sessions)})
}

// ListByDevice handles GET /v1/devices/{deviceID}/sessions.
func (h *Handler) ListByDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["deviceID"]
	sessions, err := h.ledger.ListByDevice(r.Context(), deviceID)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "listing sessions failed")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{"sessions": newSessionResponses(sessions)})
}

// Active handles GET /v1/accounts/{accountID}/sessions/active: the account's
// most recently started active session, or 404 if none.
func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountID"]
	s, err := h.ledger.ActiveForAccount(r.Context(), accountID)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "session lookup failed")
		return
	}
	if s == nil {
		respond.Error(w, http.StatusNotFound, "SESSION_NOT_FOUND", "no active session")
		return
	}
	respond.JSON(w, http.StatusOK, newSessionResponses([]*sessiondomain.Session{s})[0])
}
