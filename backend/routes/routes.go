package routes

import (
	"project/backend/config"
	"project/backend/controllers"
	"project/backend/middleware"
	"project/backend/repository"
	"project/backend/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	repo := repository.New(db)
	sessionService := services.NewSessionService(repo)
	marathonService := services.NewMarathonService(repo)
	aiService := services.NewAIService(cfg.AIAPIKey, cfg.AIModel)

	// Auth routes
	authController := controllers.NewAuthController(db, cfg)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	adminMiddleware := middleware.AdminMiddleware(db, cfg)

	// Session routes
	sessionController := controllers.NewSessionController(sessionService, aiService, cfg)
	sessions := app.Group("/api/sessions", authMiddleware)
	sessions.Post("/start", sessionController.Start)
	sessions.Post("/end", sessionController.End)
	sessions.Put("/:id/comment", sessionController.SetComment)
	sessions.Put("/:id/rating", sessionController.SetRating)

	// Progress and history routes
	historyController := controllers.NewHistoryController(repo, marathonService, cfg)
	app.Get("/api/progress", authMiddleware, historyController.GetProgress)
	history := app.Group("/api/history", authMiddleware)
	history.Get("/", historyController.GetHistory)
	history.Get("/month/:year/:month", historyController.GetMonth)
	history.Get("/day/:date", historyController.GetDay)

	// Marathon routes
	marathonController := controllers.NewMarathonController(marathonService, cfg)
	marathons := app.Group("/api/marathons", authMiddleware)
	marathons.Get("/active", marathonController.GetActive)
	marathons.Post("/:id/join", marathonController.Join)
	marathons.Get("/:id/progress", marathonController.GetProgress)

	// Free-text entries and dialogue
	entryController := controllers.NewEntryController(sessionService, repo, aiService, cfg)
	entries := app.Group("/api/entries", authMiddleware)
	entries.Post("/parse", entryController.Parse)
	entries.Post("/confirm", entryController.Confirm)
	app.Post("/api/dialogue", authMiddleware, entryController.Dialogue)

	// Admin routes
	admin := app.Group("/api/admin", authMiddleware, adminMiddleware)
	admin.Post("/marathons", marathonController.Create)
}
