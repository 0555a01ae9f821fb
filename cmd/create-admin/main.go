package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

const passwordEnv = "STOREFRONT_ADMIN_PASSWORD"

func main() {
	email := flag.String("email", "", "admin email")
	name := flag.String("name", "Admin", "display name")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "create-admin"})
	_ = godotenv.Load()

	password := os.Getenv(passwordEnv)
	if strings.TrimSpace(*email) == "" || len(password) < 8 {
		fmt.Fprintf(os.Stderr, "usage: %s=<min 8 chars> create-admin -email admin@example.com\n", passwordEnv)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	hash, err := security.HashPassword(password, cfg.Password)
	if err != nil {
		logg.Error(context.Background(), "failed to hash password", err)
		os.Exit(1)
	}

	ctx := logg.WithField(context.Background(), "email", *email)
	user, created, err := ensureAdmin(ctx, users.NewRepository(dbClient.DB()), *email, *name, hash)
	if err != nil {
		logg.Error(ctx, "failed to ensure admin", err)
		os.Exit(1)
	}
	ctx = logg.WithUserID(ctx, user.ID.String())
	if created {
		logg.Info(ctx, "admin created")
		return
	}
	logg.Info(ctx, "admin password reset")
}
