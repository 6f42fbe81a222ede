package main

import (
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/explicae-app/explicae/internal/api"
	"github.com/explicae-app/explicae/internal/auth"
	"github.com/explicae-app/explicae/internal/billing"
	"github.com/explicae-app/explicae/internal/config"
	"github.com/explicae-app/explicae/internal/database"
	"github.com/explicae-app/explicae/internal/entitlement"
	"github.com/explicae-app/explicae/internal/generation"
	"github.com/explicae-app/explicae/internal/storage"
	"github.com/explicae-app/explicae/internal/store"
	"github.com/explicae-app/explicae/internal/usage"
)

const version = "0.0.1"

func initializeAPI(configPath string) (*api.Api, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	// Init runs pending migrations before handing out the connection.
	if err := database.Init(cfg); err != nil {
		return nil, err
	}

	dataStore := store.New(database.GetConnection(), database.Type())
	auth.Configure(dataStore, cfg)

	evaluator := entitlement.New(cfg.Limits.AnonymousGenerations)
	tracker := usage.NewTracker(dataStore)
	provider := generation.NewClient(
		cfg.Generation.BaseURL,
		cfg.Generation.APIKey,
		cfg.Generation.Model,
		time.Duration(cfg.Generation.TimeoutSeconds)*time.Second,
	)
	orchestrator := generation.NewOrchestrator(dataStore, evaluator, tracker, provider, cfg.Generation.Count)

	billingService := billing.New(dataStore, cfg)

	var exporter *storage.S3Client
	if cfg.Storage.Bucket != "" {
		exporter, err = storage.NewS3Client(
			cfg.Storage.Endpoint,
			cfg.Storage.Region,
			cfg.Storage.Bucket,
			cfg.Storage.AccessKeyID,
			cfg.Storage.SecretAccessKey,
		)
		if err != nil {
			return nil, err
		}
	} else {
		log.Printf("Object storage not configured, library exports disabled")
	}

	return api.NewApi(*cfg, dataStore, orchestrator, billingService, exporter)
}

func main() {
	configPath := flag.String("config", "app.yml", "Path to configuration file")
	flag.Parse()

	// Local development reads secrets from .env; in production the
	// variables come from the environment directly.
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded environment from .env")
	}

	log.Printf("Starting Explicaê API v%s with config: %s", version, *configPath)

	api, err := initializeAPI(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	api.Serve()
}
