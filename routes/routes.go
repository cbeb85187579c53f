package routes

import (
	"fmt"
	"log"
	"net/http"

	"geoguess/handlers"
	"geoguess/middleware"
	"geoguess/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

func SetupRoutes(
	router *gin.Engine,
	authHandler *handlers.AuthHandler,
	roomHandler *handlers.RoomHandler,
	soloHandler *handlers.SoloHandler,
	historyHandler *handlers.HistoryHandler,
	hub *services.Hub,
	roomService *services.RoomService,
	jwtSecret string,
) {
	api := router.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// Protected routes
		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(jwtSecret))
		{
			protected.GET("/auth/profile", authHandler.GetProfile)

			// Multiplayer room routes
			rooms := protected.Group("/rooms")
			{
				rooms.POST("", roomHandler.CreateRoom)
				rooms.POST("/join", roomHandler.JoinRoom)
				rooms.GET("/key/:key", roomHandler.GetRoomByKey)
				rooms.GET("/:id", roomHandler.GetRoom)
				rooms.GET("/:id/ranking", roomHandler.GetRanking)
				rooms.POST("/:id/leave", roomHandler.LeaveRoom)
				rooms.POST("/:id/ready", roomHandler.SetReady)
				rooms.POST("/:id/start", roomHandler.StartGame)
				rooms.POST("/:id/guess", roomHandler.SubmitGuess)
				rooms.POST("/:id/advance", roomHandler.AdvanceRound)
				rooms.POST("/:id/complete", roomHandler.CompleteGame)
				rooms.POST("/:id/position", roomHandler.UpdatePosition)
				rooms.POST("/:id/respawn", roomHandler.RecordRespawn)
			}

			// Solo session routes
			solo := protected.Group("/solo")
			{
				solo.POST("", soloHandler.CreateSession)
				solo.GET("/:id", soloHandler.GetSession)
				solo.POST("/:id/hint", soloHandler.RecordHint)
				solo.POST("/:id/respawn", soloHandler.RecordRespawn)
				solo.POST("/:id/complete", soloHandler.CompleteSession)
			}

			// History routes
			history := protected.Group("/history")
			{
				history.GET("/records", historyHandler.GetRecords)
				history.GET("/sessions", historyHandler.GetMultiSessions)
			}
		}
	}

	// WebSocket endpoint for real-time room updates
	router.GET("/ws/:roomKey/:userID", func(c *gin.Context) {
		roomKey := c.Param("roomKey")
		userIDStr := c.Param("userID")

		var userID uint
		if _, err := fmt.Sscanf(userIDStr, "%d", &userID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}

		// Only room participants may subscribe to the room channel.
		room, err := roomService.GetRoomByKey(roomKey)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}
		player, _ := room.FindPlayer(userID)
		if player == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not in room"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed for room %s, user %d: %v", roomKey, userID, err)
			return
		}

		client := hub.RegisterClient(conn, roomKey, userID, player.Username)
		hub.SendRoomStateSync(client)
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
