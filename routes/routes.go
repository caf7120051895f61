package routes

import (
	"log"
	"os"

	"casalink/config"
	controller "casalink/controllers"
	"casalink/middleware"
	"casalink/realtime"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"
)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB) {
	authLogger := log.New(os.Stdout, "AUTH: ", log.Ldate|log.Ltime|log.Lshortfile)
	authController := controller.NewAuthController(db, authLogger)

	// Auth routes group with logging middleware
	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public auth endpoints (no authentication required)
	auth.Post("/register", authController.Register)
	auth.Post("/login", authController.Login)
	auth.Post("/refresh", authController.RefreshToken)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Post("/logout", authController.Logout)
	protectedAuth.Post("/change-password", authController.ChangePassword)
	protectedAuth.Get("/me", authController.GetCurrentUser)

	authLogger.Println("Authentication routes initialized successfully")
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB, hub *realtime.Hub) {
	// Initialize controllers with their respective loggers
	leadController := controller.NewLeadController(db, log.New(os.Stdout, "LEAD: ", log.LstdFlags))
	conversationController := controller.NewConversationController(db, hub, log.New(os.Stdout, "CHAT: ", log.LstdFlags))
	propertyController := controller.NewPropertyController(db, hub, log.New(os.Stdout, "PROPERTY: ", log.LstdFlags))
	favoriteController := controller.NewFavoriteController(db, log.New(os.Stdout, "FAVORITE: ", log.LstdFlags))
	dashboardController := controller.NewDashboardController(db, log.New(os.Stdout, "DASHBOARD: ", log.LstdFlags))
	settingsController := controller.NewSettingsController(db, log.New(os.Stdout, "SETTINGS: ", log.LstdFlags))

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Dashboard routes
	dashboard := api.Group("/dashboard")
	dashboard.Get("/stats", dashboardController.GetStats)

	// Lead routes
	lead := api.Group("/leads")
	lead.Post("/", leadController.CreateLead)
	lead.Get("/", leadController.GetLeads)
	lead.Get("/:id", leadController.GetLead)
	lead.Put("/:id", leadController.UpdateLead)

	// Conversation routes
	conversation := api.Group("/conversations")
	conversation.Get("/", conversationController.GetConversations)
	conversation.Get("/:id/messages", conversationController.GetMessages)
	conversation.Post("/:id/messages", conversationController.SendMessage)
	conversation.Post("/:id/read", conversationController.MarkRead)
	conversation.Put("/:id/archive", conversationController.Archive)
	conversation.Put("/:id/assign", conversationController.Assign)

	// Property routes
	property := api.Group("/properties")
	property.Post("/", propertyController.CreateProperty)
	property.Get("/", propertyController.GetProperties)
	property.Get("/:id", propertyController.GetProperty)
	property.Put("/:id", propertyController.UpdateProperty)
	property.Delete("/:id", propertyController.DeleteProperty)

	// Favorite and price alert routes
	favorite := api.Group("/favorites")
	favorite.Get("/", favoriteController.GetFavorites)
	favorite.Post("/:propertyId", favoriteController.AddFavorite)
	favorite.Delete("/:propertyId", favoriteController.RemoveFavorite)
	api.Get("/price-alerts", favoriteController.GetPriceAlerts)
	api.Post("/price-alerts/read", favoriteController.MarkAlertsRead)

	// Settings routes
	settings := api.Group("/settings")
	settings.Get("/", settingsController.GetUserSettings)
	settings.Put("/", settingsController.UpdateUserSettings)
	settings.Get("/bot", settingsController.GetBotSettings)
	settings.Put("/bot", settingsController.UpdateBotSettings)
	settings.Post("/api-keys", settingsController.CreateAPIKey)
	settings.Get("/api-keys", settingsController.GetAPIKeys)
	settings.Delete("/api-keys/:id", settingsController.RevokeAPIKey)

	log.Println("API routes initialized successfully")
}

func SetupWidgetRoutes(app *fiber.App, db *gorm.DB, hub *realtime.Hub) {
	widgetLogger := log.New(os.Stdout, "WIDGET: ", log.LstdFlags)
	widgetController := controller.NewWidgetController(db, hub, widgetLogger)

	// Public widget endpoints, authenticated by installation API key and
	// rate limited per client IP
	widget := app.Group("/api/widget", middleware.WidgetAPIKey(), middleware.WidgetRateLimiter())
	widget.Post("/start", widgetController.StartChat)
	widget.Post("/conversations/:conversationID/messages", widgetController.SendMessage)
	widget.Post("/conversations/:conversationID/upload", widgetController.Upload)
	widget.Get("/conversations/:conversationID/messages", widgetController.GetMessages)
	widget.Post("/push-subscribe", widgetController.PushSubscribe)

	widgetLogger.Println("Widget routes initialized successfully")
}

func SetupWebSocketRoutes(app *fiber.App, db *gorm.DB, hub *realtime.Hub) {
	wsController := controller.NewWSController(db, hub, log.New(os.Stdout, "WS: ", log.LstdFlags))

	// Plain HTTP, must come before the upgrade guard
	app.Get("/ws/status", wsController.Status)

	// Upgrade guard: non-websocket requests get 426
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/users/:id", websocket.New(wsController.HandleUserWS))
	app.Get("/ws/conversations/:id", websocket.New(wsController.HandleConversationWS))
}

func SetupRoutes(app *fiber.App, db *gorm.DB, hub *realtime.Hub) {
	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Uploaded widget files, served under the prefix stored in
	// message file_url fields
	app.Static("/uploads/widget", config.AppConfig.UploadDir)

	SetupAuthRoutes(app, db)
	SetupAPIRoutes(app, db, hub)
	SetupWidgetRoutes(app, db, hub)
	SetupWebSocketRoutes(app, db, hub)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
