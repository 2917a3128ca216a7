//go:build ignore

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/hugh/salespulse/internal/auth"
	"github.com/hugh/salespulse/internal/database"
	"github.com/hugh/salespulse/internal/database/models"
	"github.com/hugh/salespulse/pkg/config"
	"github.com/hugh/salespulse/pkg/util"
	"github.com/joho/godotenv"
)

// Bootstraps the first admin account from ADMIN_EMAIL and ADMIN_PASSWORD.
// Without a password a temporary one is generated and printed once.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Server.Env)

	if err := database.Migrate(&cfg.Database, logger); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer database.Close(db)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	authService := auth.NewService(db, jwtService)

	email := os.Getenv("ADMIN_EMAIL")
	if email == "" {
		log.Fatal("ADMIN_EMAIL is required")
	}
	firstName := os.Getenv("ADMIN_FIRST_NAME")
	if firstName == "" {
		firstName = "Admin"
	}
	lastName := os.Getenv("ADMIN_LAST_NAME")
	if lastName == "" {
		lastName = "User"
	}

	result, err := authService.Register(context.Background(), auth.RegisterInput{
		Email:     email,
		Password:  os.Getenv("ADMIN_PASSWORD"),
		FirstName: firstName,
		LastName:  lastName,
		Role:      models.RoleAdmin,
	})
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			fmt.Printf("Admin user already exists: %s\n", email)
			return
		}
		log.Fatalf("failed to create admin user: %v", err)
	}

	fmt.Printf("Admin user created successfully!\n")
	fmt.Printf("Email: %s\n", result.User.Email)
	if result.TemporaryPassword != "" {
		fmt.Printf("Temporary password: %s\n", result.TemporaryPassword)
	}
}
