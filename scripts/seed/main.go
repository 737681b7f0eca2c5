package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/procurehub/procurehub/internal/app"
	"github.com/procurehub/procurehub/internal/auth"
	"github.com/procurehub/procurehub/internal/platform/db"
)

type demoUser struct {
	username string
	email    string
	password string
	active   bool
}

var demoUsers = []demoUser{
	{username: "admin", email: "admin@procurehub.local", password: "admin123", active: true},
	{username: "buyer", email: "buyer@procurehub.local", password: "buyer123", active: true},
	{username: "former", email: "former@procurehub.local", password: "former123", active: false},
}

func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	tokens, err := auth.NewTokenService(auth.TokenConfig{Secret: cfg.SecretKey, Algorithm: cfg.Algorithm, TTL: cfg.AccessTokenTTL()})
	if err != nil {
		log.Fatalf("token service: %v", err)
	}
	repo := auth.NewRepository(pool)
	gate := auth.NewService(repo, auth.NewPasswordHasher(cfg.BcryptCost, cfg.HashConcurrency), tokens, logger)

	fmt.Println("→ Seeding users...")
	for _, u := range demoUsers {
		_, err := gate.Register(ctx, u.username, u.email, u.password)
		switch {
		case err == nil:
			fmt.Printf("  created %s\n", u.username)
		case errors.Is(err, auth.ErrUsernameTaken), errors.Is(err, auth.ErrEmailTaken):
			fmt.Printf("  %s already present\n", u.username)
		default:
			log.Fatalf("register %s: %v", u.username, err)
		}
		if !u.active {
			if err := repo.SetActive(ctx, u.username, false); err != nil {
				log.Fatalf("deactivate %s: %v", u.username, err)
			}
		}
	}
	fmt.Println("✓ Seed complete")
}
