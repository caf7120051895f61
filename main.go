package main

import (
	"context"
	"log"
	"os"
	"time"

	"casalink/config"
	"casalink/middleware"
	"casalink/realtime"
	"casalink/routes"
	"casalink/worker"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
)

func main() {
	// Initialize logger
	logger := log.New(os.Stdout, "SERVER: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Sentry when a DSN is configured
	if dsn := config.AppConfig.SentryDSN; dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         dsn,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Printf("Sentry initialization failed: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize database connection (runs the schema migration)
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Create Fiber app
	app := fiber.New()

	// Add CORS middleware
	app.Use(middleware.CORS())

	// Connection registry shared by the HTTP handlers and websocket routes
	hub := realtime.NewHub()

	// Start the geo backfill worker
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	geoWorker := worker.NewGeoWorker(config.DB, log.New(os.Stdout, "GEO: ", log.LstdFlags))
	go geoWorker.Start(ctx)

	// Setup routes
	routes.SetupRoutes(app, config.DB, hub)

	// Start server
	logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
