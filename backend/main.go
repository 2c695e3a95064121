package main

import (
	"log"
	"project/backend/config"
	"project/backend/middleware"
	"project/backend/repository"
	"project/backend/routes"
	"project/backend/scheduler"
	"project/backend/services"
	"project/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize database
	db, err := utils.InitDB(cfg)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}

	// Initialize logger
	logger := utils.InitLogger()

	// Create Fiber app
	app := fiber.New()

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware(logger))

	// Setup routes
	routes.SetupRoutes(app, db, cfg)

	// Background sweeps: marathon completion reports and daily reminders
	repo := repository.New(db)
	narrator := services.NewAIService(cfg.AIAPIKey, cfg.AIModel)
	notifier := services.NewTelegramNotifier(cfg.BotToken)
	scheduler.New(repo, narrator, notifier, cfg, logger).Start()

	// Start server
	log.Fatal(app.Listen(":" + cfg.ServerPort))
}
