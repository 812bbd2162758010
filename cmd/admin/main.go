// Command admin creates or promotes an administrator account. Roles are never
// assigned through the HTTP API, so deployments run this once against the
// configured database.
//
//	ADMIN_EMAIL=root@example.com ADMIN_NAME=Root ADMIN_PASSWORD=... go run ./cmd/admin
package main

import (
	"context"
	"log"
	"os"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pollbox/pollbox/internal/config"
	"github.com/pollbox/pollbox/internal/database"
	"github.com/pollbox/pollbox/internal/models"
	"github.com/pollbox/pollbox/internal/users"
	"github.com/pollbox/pollbox/internal/validate"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	email := os.Getenv("ADMIN_EMAIL")
	name := os.Getenv("ADMIN_NAME")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD are required")
	}
	if name == "" {
		name = "Administrator"
	}
	if err := validate.RegisterInput(name, email, password, password); err != nil {
		log.Fatalf("invalid admin input: %v", err)
	}

	if cfg.MongoDB.URI == "" {
		log.Fatal("MONGODB_URI is required")
	}
	ctx := context.Background()
	client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
	if err != nil {
		log.Fatalf("cannot connect to MongoDB: %v", err)
	}
	defer func() { _ = client.Disconnect(ctx) }()

	repo := users.NewMongoUserRepository(client.Database(cfg.MongoDB.Database).Collection("users"))

	if existing, err := repo.GetByEmail(ctx, email); err != nil {
		log.Fatalf("lookup failed: %v", err)
	} else if existing != nil {
		if err := repo.SetRole(ctx, existing.ID, models.RoleAdmin); err != nil {
			log.Fatalf("promotion failed: %v", err)
		}
		log.Printf("promoted existing account %s to admin", existing.Email)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cfg.Auth.BcryptCost)
	if err != nil {
		log.Fatalf("password hashing failed: %v", err)
	}
	u := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		Role:         models.RoleAdmin,
		PasswordHash: string(hash),
	}
	if err := repo.Create(ctx, u); err != nil {
		log.Fatalf("creation failed: %v", err)
	}
	log.Printf("created admin account %s", u.Email)
}
