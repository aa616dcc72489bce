package main

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"gasdash-backend/internal/config"
	"gasdash-backend/internal/database"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	// Query and display summary
	var rows []struct {
		Collection string `db:"collection"`
		Documents  int    `db:"documents"`
	}
	err = db.Select(&rows, `
		SELECT collection, COUNT(*) AS documents
		FROM documents
		GROUP BY collection
		ORDER BY collection
	`)
	if err != nil {
		log.Fatalf("Failed to query summary: %v", err)
	}
	var credentials int
	if err := db.Get(&credentials, "SELECT COUNT(*) FROM credentials"); err != nil {
		log.Fatalf("Failed to count credentials: %v", err)
	}

	fmt.Println("\n============================================================")
	fmt.Println("MIGRATION SUMMARY")
	fmt.Println("============================================================")
	for _, r := range rows {
		fmt.Printf("%-24s %d\n", r.Collection+":", r.Documents)
	}
	fmt.Printf("%-24s %d\n", "credentials:", credentials)
	fmt.Println("============================================================")
}
