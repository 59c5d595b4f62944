package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"mongo-testkit/internal/di"
	"mongo-testkit/internal/shared/database"
	"mongo-testkit/internal/shared/logger"
	httpadapter "mongo-testkit/internal/testkit/adapter/http"
	"mongo-testkit/internal/testkit/config"
)

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"localhost"`
	Port string `env:"SERVER_PORT" envDefault:"3030"`

	// PruneOnStart drops runs older than this before serving. Zero disables it.
	PruneOnStart time.Duration `env:"JANITOR_PRUNE_ON_START" envDefault:"0"`
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		logger.Warnf("Could not load .env file: %v", err)
	}

	serverCfg := &ServerConfig{}
	if err := env.Parse(serverCfg); err != nil {
		logger.Fatalf("Failed to load server configuration: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("Failed to load testkit configuration: %v", err)
	}

	appLogger := logger.New(cfg.Log.Backend, cfg.Log.Level, cfg.Log.Format).WithComponent("janitor")
	logger.SetDefault(appLogger)
	appLogger.Info("Janitor configuration loaded successfully")

	container := di.NewContainer()
	container.Logger = appLogger
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			appLogger.Errorf("Failed to close container: %v", err)
		}
	}()

	if err := container.InitializeTestkit(cfg); err != nil {
		logger.Fatalf("Failed to initialize testkit module: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := container.InitializeJanitor(ctx); err != nil {
		logger.Fatalf("Failed to initialize run janitor: %v", err)
	}
	appLogger.Infof("Connected to MongoDB, managing databases prefixed %q", cfg.DatabasePrefix)

	runs, err := di.GetService[*database.RunManager](container)
	if err != nil {
		logger.Fatalf("Run janitor not registered: %v", err)
	}

	if serverCfg.PruneOnStart > 0 {
		dropped, err := runs.PruneOlderThan(ctx, serverCfg.PruneOnStart)
		if err != nil {
			appLogger.Errorf("Startup prune failed: %v", err)
		} else {
			appLogger.Infof("Startup prune dropped %d databases", len(dropped))
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      "mongo-testkit janitor",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			appLogger.Errorf("HTTP Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal Server Error",
			})
		},
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		healthCtx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
		defer cancel()

		if err := container.HealthCheck(healthCtx); err != nil {
			appLogger.Errorf("Health check failed: %v", err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "UNHEALTHY",
				"error":  err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"status":    "HEALTHY",
			"prefix":    cfg.DatabasePrefix,
			"timestamp": time.Now().UTC(),
		})
	})

	handler, err := di.GetService[*httpadapter.RunsHandler](container)
	if err != nil {
		logger.Fatalf("Failed to build runs handler: %v", err)
	}
	handler.RegisterRoutes(app)

	serverAddr := fmt.Sprintf("%s:%s", serverCfg.Host, serverCfg.Port)
	appLogger.Infof("Starting janitor HTTP server on %s", serverAddr)

	serverShutdown := make(chan error, 1)
	go func() {
		serverShutdown <- app.Listen(serverAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverShutdown:
		if err != nil {
			logger.Fatalf("Server startup failed: %v", err)
		}
	case sig := <-quit:
		appLogger.Infof("Received shutdown signal: %v", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			appLogger.Errorf("Server forced to shutdown: %v", err)
		}
		appLogger.Info("HTTP server stopped")
	}
}
