// Package server assembles the HTTP API: routes, middleware chain, and the
// feature handlers behind them.
package server

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	accounthandler "hybrid-session-hub/internal/account/handler"
	accountservice "hybrid-session-hub/internal/account/service"
	"hybrid-session-hub/internal/audit"
	audithandler "hybrid-session-hub/internal/audit/handler"
	"hybrid-session-hub/internal/device"
	devicehandler "hybrid-session-hub/internal/device/handler"
	"hybrid-session-hub/internal/ownership"
	ownershiphandler "hybrid-session-hub/internal/ownership/handler"
	"hybrid-session-hub/internal/security"
	"hybrid-session-hub/internal/server/middleware"
	"hybrid-session-hub/internal/server/respond"
	sessionhandler "hybrid-session-hub/internal/session/handler"
	"hybrid-session-hub/internal/session/ledger"
	"hybrid-session-hub/internal/zalotoken"
	zalohandler "hybrid-session-hub/internal/zalotoken/handler"
)

// Pinger reports backing store health, e.g. *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps holds the services the router wires handlers to.
type Deps struct {
	Auth        *accountservice.AuthService
	Coordinator *ownership.Coordinator
	Registry    *device.Registry
	Ledger      *ledger.Ledger
	Vault       *zalotoken.Vault
	Audit       *audit.Logger
	Tokens      *security.TokenProvider

	// Pinger is used by /healthz readiness. If nil the DB check is skipped.
	Pinger Pinger
	// Tracer and Meter feed the telemetry middleware. If nil, no telemetry
	// middleware is installed.
	Tracer trace.Tracer
	Meter  metric.Meter
}

// publicPaths are reachable without a Bearer token. Device registration is
// public because clients register before any account has logged in.
var publicPaths = map[string]bool{
	"/healthz":          true,
	"/v1/auth/register": true,
	"/v1/auth/login":    true,
	"/v1/devices":       true,
}

// NewRouter builds the full route table with the middleware chain installed.
func NewRouter(deps Deps) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.Logging)
	if deps.Tracer != nil && deps.Meter != nil {
		r.Use(middleware.Telemetry(deps.Tracer, deps.Meter))
	}
	r.Use(middleware.Auth(deps.Tokens, publicPaths))

	r.HandleFunc("/healthz", healthHandler(deps.Pinger)).Methods(http.MethodGet)

	authH := accounthandler.NewAuthHandler(deps.Auth)
	r.HandleFunc("/v1/auth/register", authH.Register).Methods(http.MethodPost)
	r.HandleFunc("/v1/auth/login", authH.Login).Methods(http.MethodPost)

	devH := devicehandler.NewHandler(deps.Registry, deps.Ledger)
	r.HandleFunc("/v1/devices", devH.Register).Methods(http.MethodPost)
	r.HandleFunc("/v1/devices/{deviceID}", devH.Get).Methods(http.MethodGet)
	r.HandleFunc("/v1/devices/{deviceID}/accounts", devH.Accounts).Methods(http.MethodGet)
	r.HandleFunc("/v1/accounts/{accountID}/devices", devH.ForAccount).Methods(http.MethodGet)

	sessH := sessionhandler.NewHandler(deps.Ledger)
	r.HandleFunc("/v1/accounts/{accountID}/sessions", sessH.ListByAccount).Methods(http.MethodGet)
	r.HandleFunc("/v1/accounts/{accountID}/sessions/active", sessH.Active).Methods(http.MethodGet)
	r.HandleFunc("/v1/devices/{deviceID}/sessions", sessH.ListByDevice).Methods(http.MethodGet)

	ownH := ownershiphandler.NewHandler(deps.Coordinator)
	r.HandleFunc("/v1/devices/{deviceID}/switch", ownH.Switch).Methods(http.MethodPost)
	r.HandleFunc("/v1/sessions/logout", ownH.Logout).Methods(http.MethodPost)

	zaloH := zalohandler.NewHandler(deps.Vault)
	r.HandleFunc("/v1/accounts/{accountID}/zalo-token", zaloH.Save).Methods(http.MethodPut)
	r.HandleFunc("/v1/accounts/{accountID}/zalo-token", zaloH.Get).Methods(http.MethodGet)
	r.HandleFunc("/v1/accounts/{accountID}/zalo-token", zaloH.Purge).Methods(http.MethodDelete)
	r.HandleFunc("/v1/accounts/{accountID}/zalo-token/valid", zaloH.Valid).Methods(http.MethodGet)
	r.HandleFunc("/v1/accounts/{accountID}/zalo-token/revoke", zaloH.Revoke).Methods(http.MethodPost)

	auditH := audithandler.NewHandler(deps.Audit)
	r.HandleFunc("/v1/accounts/{accountID}/audit", auditH.ListByAccount).Methods(http.MethodGet)

	return r
}

func healthHandler(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p != nil {
			if err := p.PingContext(r.Context()); err != nil {
				respond.Error(w, http.StatusServiceUnavailable, "UNHEALTHY", "database unreachable")
				return
			}
		}
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
