package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mosquitoalert/mosquito-alert-api/config"
	"github.com/mosquitoalert/mosquito-alert-api/databases"
	"github.com/mosquitoalert/mosquito-alert-api/models"
)

// Creates an admin account, or resets the password of an existing one.
// Usage: ADMIN_EMAIL=... ADMIN_PASSWORD=... go run ./scripts/seed_admin [name]
func main() {
	conf := config.New()

	email := strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL")))
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || len(password) < 6 {
		fmt.Println("Usage: ADMIN_EMAIL=<email> ADMIN_PASSWORD=<at least 6 chars> go run ./scripts/seed_admin [name]")
		os.Exit(1)
	}
	name := "Admin"
	if len(os.Args) > 1 {
		name = os.Args[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := databases.NewClient(conf)
	if err != nil {
		zap.S().Fatalw("failed to create client", "error", err)
	}
	if err := client.Connect(ctx); err != nil {
		zap.S().Fatalw("failed to connect to database", "error", err)
	}
	defer client.Disconnect(ctx) //nolint:errcheck

	users := databases.NewUserDatabase(databases.NewDatabase(conf, client))
	if err := seed(ctx, users, name, email, password); err != nil {
		zap.S().Fatalw("failed to seed admin", "email", email, "error", err)
	}
}

func seed(ctx context.Context, users databases.UserDatabase, name, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	existing, err := users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != models.RoleAdmin {
			return fmt.Errorf("%s belongs to a reporter account", email)
		}
		if err := users.UpdatePassword(ctx, existing.ID, string(hash)); err != nil {
			return err
		}
		zap.S().Infow("admin password reset", "userId", existing.ID.Hex())
		return nil
	case errors.Is(err, models.ErrNotFound):
	default:
		return err
	}

	id, err := users.Create(ctx, models.Account{
		Name:      name,
		Email:     email,
		Password:  string(hash),
		Role:      models.RoleAdmin,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	zap.S().Infow("admin created", "userId", id.Hex())
	return nil
}
