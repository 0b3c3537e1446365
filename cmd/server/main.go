package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/Nuad106404/loanpwa-sub002/internal/cache"
	"github.com/Nuad106404/loanpwa-sub002/internal/handlers"
	"github.com/Nuad106404/loanpwa-sub002/internal/handlers/ws"
	"github.com/Nuad106404/loanpwa-sub002/internal/middleware"
	"github.com/Nuad106404/loanpwa-sub002/internal/repository"
	"github.com/Nuad106404/loanpwa-sub002/internal/service"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"
)

// presenceStore adapts the user repository to the persistence-sync write
// contract.
type presenceStore struct {
	users repository.UserRepositoryInterface
}

func (s presenceStore) UpdatePresence(rec ws.PresenceRecord) error {
	return s.users.UpdatePresence(rec.UserID, rec.Online, rec.ChannelConnected, rec.ActiveConnID, rec.LastActive)
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName: "LoanPWA Realtime Backend",
	})

	// Middleware
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     os.Getenv("ALLOWED_ORIGINS"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	// Initialize database connection
	db, err := repository.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Initialize Redis cache
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if parsedDB, err := strconv.Atoi(dbStr); err == nil {
			redisDB = parsedDB
		}
	}

	redisCache := cache.NewRedisCache(redisAddr, redisPassword, redisDB)
	if err := redisCache.Ping(); err != nil {
		log.Printf("WARNING: Redis connection failed: %v. Running without cache.", err)
		redisCache = nil
	} else {
		log.Println("Redis cache connected successfully")
	}

	presenceCache := cache.NewPresenceCache(redisCache)
	notificationCache := cache.NewNotificationCache(redisCache)

	// A fresh process has no live connections; clear whatever the previous
	// run left marked online.
	if err := presenceCache.ResetOnline(); err != nil {
		log.Printf("Failed to reset stale presence mirror: %v", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Initialize the presence hub. Persistence writes are fire-and-forget:
	// a slow or failing store never blocks live delivery.
	presenceSync := ws.NewPresenceSync(presenceStore{users: userRepo}, presenceCache, 4, ws.DefaultHeartbeatInterval)
	hub := ws.NewHub(presenceSync, ws.DefaultDeliveryTimeout)
	go hub.Run()
	defer hub.Stop()

	// Initialize services
	notificationService := service.NewNotificationService(notificationRepo, hub)

	// Periodically purge expired notifications
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if n, err := notificationService.PurgeExpired(); err != nil {
				log.Printf("Failed to purge expired notifications: %v", err)
			} else if n > 0 {
				log.Printf("Purged %d expired notifications", n)
			}
		}
	}()

	// Initialize handlers
	wsHandler := handlers.NewWebSocketHandler(hub)
	notificationHandler := handlers.NewNotificationHandler(notificationService, notificationCache)
	presenceHandler := handlers.NewPresenceHandler(hub, presenceCache)

	// Routes
	api := app.Group("/api", middleware.OriginAllowed())

	protected := api.Group("/", middleware.AuthRequired())
	protected.Get("/notifications", notificationHandler.GetMyNotifications)
	protected.Post("/notifications/:id/read", notificationHandler.MarkNotificationRead)
	protected.Post("/presence/logout", limiter.New(limiter.Config{
		Max:        20,
		Expiration: time.Minute,
	}), presenceHandler.Logout)

	admin := protected.Group("/", middleware.RequireRole("admin"))
	admin.Post("/notifications", notificationHandler.SendNotification)
	admin.Post("/notifications/broadcast", notificationHandler.BroadcastNotification)
	admin.Get("/presence/online", presenceHandler.GetOnlineUsers)
	admin.Get("/presence/online/:id", presenceHandler.CheckUserOnline)

	// WebSocket route (websocket upgrade needs special handling)
	app.Use(
		"/ws",
		middleware.OriginAllowed(),
		middleware.AuthRequired(),
		func(c *fiber.Ctx) error {
			// Upgrade to WebSocket
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		},
	)
	app.Get("/ws", websocket.New(wsHandler.HandleWebSocket))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"message": "LoanPWA realtime backend is running",
		})
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s...", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
