package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weather-flow/internal/api/http"
	"github.com/i474232898/weather-flow/internal/artifact"
	"github.com/i474232898/weather-flow/internal/config"
	"github.com/i474232898/weather-flow/internal/pipeline"
	"github.com/i474232898/weather-flow/internal/scheduler"
	"github.com/i474232898/weather-flow/internal/secrets"
	"github.com/i474232898/weather-flow/internal/store"
	"github.com/i474232898/weather-flow/internal/weather"
	"github.com/i474232898/weather-flow/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Resolve a city-only location to coordinates.
	loc, err := providers.NewGeocoder(cfg.GeocoderAPIKey).Resolve(cfg.Location)
	if err != nil {
		log.Fatalf("failed to resolve location: %v", err)
	}
	cfg.Location = loc

	params, err := cfg.Params()
	if err != nil {
		log.Fatalf("invalid request parameters: %v", err)
	}

	// Cached, retrying client for the forecast API.
	client, err := providers.NewClient(cfg.ClientConfig())
	if err != nil {
		log.Fatalf("failed to create weather client: %v", err)
	}
	defer client.Close()

	// State database for secrets and artifacts.
	db, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open state database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	secretStore, err := openSecrets(cfg, db)
	if err != nil {
		log.Fatalf("failed to open secret store: %v", err)
	}
	artifacts, err := openArtifacts(ctx, cfg, db)
	if err != nil {
		log.Fatalf("failed to open artifact store: %v", err)
	}

	// In-memory run history with configured retention.
	runs := store.NewMemoryStore(cfg.RunMaxHistory, cfg.RunMaxAge)

	fetcher := weather.NewFetcher(providers.NewOpenMeteoProvider(client, cfg.ForecastURL))
	flow := pipeline.New(pipeline.Config{
		CSVPath:             cfg.CSVPath,
		SecretName:          cfg.SecretName,
		ArtifactKey:         cfg.ArtifactKey,
		ArtifactDescription: cfg.ArtifactDescription,
	}, fetcher, secretStore, artifacts, runs)

	if cfg.Mode == config.ModeOnce {
		if err := runOnce(ctx, flow, params); err != nil {
			log.Printf("ERROR: %v", err)
			// Deferred closes are skipped by os.Exit.
			client.Close()
			db.Close()
			os.Exit(1)
		}
		return
	}

	serve(cfg, flow, params, runs, artifacts)
}

func runOnce(ctx context.Context, flow *pipeline.Pipeline, params weather.Params) error {
	run, err := flow.Run(ctx, params)
	if err != nil {
		return fmt.Errorf("flow run %s failed: %w", run.Name, err)
	}
	log.Printf("INFO: flow run %s finished in %s", run.Name, run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	return nil
}

func serve(cfg *config.AppConfig, flow *pipeline.Pipeline, params weather.Params, runs store.RunStore, artifacts artifact.Reader) {
	// Scheduler that periodically runs the flow.
	sched := scheduler.New(flow, params, cfg.ScheduleInterval, cfg.ScheduleInterval)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-flow",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Triggered runs execute inside the request.
		WriteTimeout: cfg.HTTPTimeout * time.Duration(cfg.Retries+2),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-flow",
		})
	})

	httpapi.RegisterRoutes(app, flow, runs, artifacts)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()
	log.Printf("INFO: listening on :%s", cfg.Port)

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

func openSecrets(cfg *config.AppConfig, db *sql.DB) (secrets.Store, error) {
	switch cfg.SecretBackend {
	case config.BackendYAML:
		return secrets.NewYAMLStore(cfg.SecretsFile), nil
	case config.BackendSQLite:
		return secrets.NewSQLiteStore(db)
	default:
		return secrets.NewEnvStore(), nil
	}
}

func openArtifacts(ctx context.Context, cfg *config.AppConfig, db *sql.DB) (artifact.Store, error) {
	if cfg.ArtifactBackend == config.BackendMinIO {
		return artifact.NewMinIOStore(ctx, cfg.MinIO)
	}
	return artifact.NewSQLiteStore(db)
}
