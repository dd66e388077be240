package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	accountrepo "hybrid-session-hub/internal/account/repository"
	accountservice "hybrid-session-hub/internal/account/service"
	"hybrid-session-hub/internal/audit"
	auditrepo "hybrid-session-hub/internal/audit/repository"
	"hybrid-session-hub/internal/config"
	"hybrid-session-hub/internal/db"
	"hybrid-session-hub/internal/device"
	devicerepo "hybrid-session-hub/internal/device/repository"
	"hybrid-session-hub/internal/ownership"
	"hybrid-session-hub/internal/security"
	"hybrid-session-hub/internal/server"
	"hybrid-session-hub/internal/session/ledger"
	sessionrepo "hybrid-session-hub/internal/session/repository"
	"hybrid-session-hub/internal/telemetry/otel"
	"hybrid-session-hub/internal/zalotoken"
	"hybrid-session-hub/internal/zalotoken/oauth"
	zalorepo "hybrid-session-hub/internal/zalotoken/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	ctx := context.Background()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "session-hub", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	accounts := accountrepo.NewPostgresRepository(database)
	devices := devicerepo.NewPostgresRepository(database)
	sessions := sessionrepo.NewPostgresRepository(database)

	registry := device.NewRegistry(devices)
	l := ledger.New(accounts, devices, sessions)
	tokens := security.NewTokenProvider([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.AccessTTL(), cfg.RefreshTTL())
	auditLogger := audit.NewLogger(auditrepo.NewPostgresRepository(database))
	coordinator := ownership.NewCoordinator(registry, l, tokens, auditLogger)
	authSvc := accountservice.NewAuthService(accounts, coordinator, security.NewHasher(cfg.BcryptCost))

	var refresher zalotoken.Refresher
	if cfg.ZaloAppID != "" {
		refresher = oauth.NewClient(cfg.ZaloOAuthBaseURL, cfg.ZaloAppID, cfg.ZaloAppSecret, cfg.RefreshTimeout())
	} else {
		log.Println("ZALO_APP_ID not set; expired zalo tokens will not be refreshed")
	}
	vault := zalotoken.NewVault(zalorepo.NewPostgresRepository(database), refresher)

	router := server.NewRouter(server.Deps{
		Auth:        authSvc,
		Coordinator: coordinator,
		Registry:    registry,
		Ledger:      l,
		Vault:       vault,
		Audit:       auditLogger,
		Tokens:      tokens,
		Pinger:      database,
		Tracer:      providers.TracerProvider.Tracer("session-hub/http"),
		Meter:       providers.MeterProvider.Meter("session-hub/http"),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
