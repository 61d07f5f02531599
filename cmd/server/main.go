package main

import (
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"

	"github.com/Thisisbailin/Script2Video-sub002/internal/config"
	"github.com/Thisisbailin/Script2Video-sub002/internal/database"
	"github.com/Thisisbailin/Script2Video-sub002/internal/handlers"
	"github.com/Thisisbailin/Script2Video-sub002/internal/middleware"
	"github.com/Thisisbailin/Script2Video-sub002/internal/services"
	"github.com/Thisisbailin/Script2Video-sub002/internal/types"

	_ "github.com/Thisisbailin/Script2Video-sub002/docs/api" // Swagger docs
)

// @title Script2Video Project Sync API
// @version 1.0.0
// @description Versioned project document sync service with delta merge, snapshots and a change feed
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/Thisisbailin/Script2Video-sub002

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name cookie_session

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// The Authorizer may still be starting; auth requests fail until it is up.
	if err := services.InitAuthorizer(cfg, "http", "localhost:"+cfg.Port); err != nil {
		log.Printf("Authorizer not available yet: %v", err)
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: false,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("script2video")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Health endpoint, unauthenticated
	app.Get("/health", func(c *fiber.Ctx) error {
		result := services.HealthCheck(cfg, db)
		status := fiber.StatusOK
		if result.Status != "healthy" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(result)
	})

	// API routes under /api
	api := app.Group("/api")
	api.Use(middleware.VersionMiddleware())

	// Create handlers and the rollout gate
	audit := services.NewAuditor(db)
	gate := services.NewRolloutGate(cfg)
	projectHandler := &handlers.ProjectHandler{DB: db, Audit: audit}
	snapshotHandler := &handlers.SnapshotHandler{DB: db, Audit: audit}
	changesHandler := &handlers.ChangesHandler{DB: db}

	// Project routes, all behind user auth and the sync rollout gate
	project := api.Group("/project", middleware.AuthUser(), middleware.SyncGate(gate))
	project.Get("/", projectHandler.GetProject)
	project.Put("/", projectHandler.SaveProject)
	project.Post("/delta", projectHandler.ApplyDelta)
	project.Get("/changes", changesHandler.GetChanges)
	project.Get("/snapshots", snapshotHandler.ListSnapshots)
	project.Post("/snapshots/:version/restore", snapshotHandler.RestoreSnapshot)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":    fiber.StatusNotFound,
			"message":   "[404] Resource Not Found",
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
		})
	})

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	port := cfg.Port
	log.Printf("Starting server on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server stopped")
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	errorType := "unknown"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	var custom *types.CustomError
	if errors.As(err, &custom) {
		code = custom.Code
		message = custom.Message
		errorType = custom.Type
	}

	// Check for version errors
	versionError := false
	if code == fiber.StatusConflict || (len(message) >= 9 && message[:9] == "E_VERSION") {
		versionError = true
		errorType = "version"
		code = fiber.StatusConflict
	}

	return c.Status(code).JSON(fiber.Map{
		"status":       code,
		"message":      message,
		"ok":           false,
		"versionError": versionError,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"url":          c.OriginalURL(),
		"type":         errorType,
	})
}
