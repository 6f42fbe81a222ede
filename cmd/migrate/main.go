package main

import (
	"flag"
	"log"

	"github.com/joho/godotenv"

	"github.com/explicae-app/explicae/internal/config"
	"github.com/explicae-app/explicae/internal/database"
)

// Applies pending schema migrations and verifies connectivity, for use
// in deploy pipelines before the API itself starts.
func main() {
	configPath := flag.String("config", "app.yml", "Path to configuration file")
	flag.Parse()

	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded environment from .env")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Init applies pending migrations as part of opening the database.
	if err := database.Init(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	if err := database.GetConnection().Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	log.Printf("Migrations applied successfully")
}
