// seed inserts demo accounts and a demo device for local development.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	accountdomain "hybrid-session-hub/internal/account/domain"
	accountrepo "hybrid-session-hub/internal/account/repository"
	"hybrid-session-hub/internal/config"
	"hybrid-session-hub/internal/db"
	"hybrid-session-hub/internal/device"
	devicerepo "hybrid-session-hub/internal/device/repository"
	"hybrid-session-hub/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	accounts := accountrepo.NewPostgresRepository(database)
	hasher := security.NewHasher(cfg.BcryptCost)

	demo := []struct {
		username, password, displayName string
	}{
		{"alice", "alice-dev-pass", "Alice"},
		{"bob", "bob-dev-pass", "Bob"},
	}
	for _, d := range demo {
		existing, err := accounts.GetByUsername(ctx, d.username)
		if err != nil {
			log.Fatalf("lookup %s: %v", d.username, err)
		}
		if existing != nil {
			fmt.Printf("account %s already exists (%s)\n", d.username, existing.ID)
			continue
		}
		hash, err := hasher.Hash([]byte(d.password))
		if err != nil {
			log.Fatalf("hash: %v", err)
		}
		now := time.Now().UTC()
		acct := &accountdomain.Account{
			ID:           uuid.NewString(),
			Username:     d.username,
			PasswordHash: hash,
			DisplayName:  d.displayName,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := accounts.Create(ctx, acct); err != nil {
			log.Fatalf("create %s: %v", d.username, err)
		}
		fmt.Printf("created account %s (%s)\n", d.username, acct.ID)
	}

	registry := device.NewRegistry(devicerepo.NewPostgresRepository(database))
	dev, err := registry.Register(ctx, "dev-fingerprint-1", device.Attributes{
		Brand:    "Google",
		Model:    "Pixel 9",
		Platform: "android",
	})
	if err != nil {
		log.Fatalf("register device: %v", err)
	}
	fmt.Printf("demo device %s (%s)\n", dev.Fingerprint, dev.ID)
}
