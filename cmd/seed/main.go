package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"gasdash-backend/internal/config"
	"gasdash-backend/internal/database"
	"gasdash-backend/internal/docstore"
	"gasdash-backend/internal/identity"
)

// Seeds the demo admin, manager and driver logins into a Postgres-backed
// deployment
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.StoreBackend != config.BackendPostgres {
		log.Fatalf("seed writes profiles to Postgres; STORE_BACKEND is %q", cfg.StoreBackend)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("🔌 Connected to database")

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	local := identity.NewLocal(db, cfg.JWTSecret, cfg.TokenLifetime())
	if err := database.SeedAccounts(context.Background(), db, local, docstore.NewPostgres(db), database.DefaultAccounts); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}
	log.Println("✅ Done")
}
