package main

import (
	"log"
	"time"

	"geoguess/config"
	"geoguess/handlers"
	"geoguess/middleware"
	"geoguess/models"
	"geoguess/routes"
	"geoguess/services"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database models
	err = db.AutoMigrate(
		&models.User{},
		&models.Room{},
		&models.GameRecord{},
		&models.MultiGameRecord{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize Redis
	redisClient := config.InitRedis(cfg)

	// Initialize services
	authService := services.NewAuthService(db, cfg.JWTSecret)
	historyService := services.NewHistoryService(db)
	roomService := services.NewRoomService(db, redisClient, historyService)
	soloService := services.NewSoloService(redisClient, historyService)

	// Initialize WebSocket hub
	hub := services.NewHub(roomService)
	go hub.Run()

	// Stale room cleanup sweep
	go roomService.RunCleanup(time.Hour)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	roomHandler := handlers.NewRoomHandler(roomService, hub)
	soloHandler := handlers.NewSoloHandler(soloService)
	historyHandler := handlers.NewHistoryHandler(historyService)

	// Setup Gin router
	router := gin.Default()

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Setup routes
	routes.SetupRoutes(router, authHandler, roomHandler, soloHandler, historyHandler, hub, roomService, cfg.JWTSecret)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
