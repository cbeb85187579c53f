package handlers

import (
	"net/http"
	"strconv"

	"geoguess/models"
	"geoguess/services"

	"github.com/gin-gonic/gin"
)

type RoomHandler struct {
	roomService *services.RoomService
	hub         *services.Hub
}

func NewRoomHandler(roomService *services.RoomService, hub *services.Hub) *RoomHandler {
	return &RoomHandler{
		roomService: roomService,
		hub:         hub,
	}
}

type CreateRoomRequest struct {
	MaxPlayers int `json:"max_players"`
	RoundCount int `json:"round_count"`
}

type JoinRoomRequest struct {
	RoomKey string `json:"room_key" binding:"required,len=6"`
}

type SetReadyRequest struct {
	IsReady *bool `json:"is_ready" binding:"required"`
}

type StartGameRequest struct {
	Target      models.Location `json:"target" binding:"required"`
	PlayerStart models.Location `json:"player_start" binding:"required"`
}

type SubmitGuessRequest struct {
	Location models.Location `json:"location" binding:"required"`
	HintUsed bool            `json:"hint_used"`
}

type AdvanceRoundRequest struct {
	Target      models.Location `json:"target" binding:"required"`
	PlayerStart models.Location `json:"player_start" binding:"required"`
}

type UpdatePositionRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.roomService.CreateRoom(userID.(uint), models.RoomSettings{
		MaxPlayers: req.MaxPlayers,
		RoundCount: req.RoundCount,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, room)
}

func (h *RoomHandler) JoinRoom(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.roomService.JoinRoom(req.RoomKey, userID.(uint))
	if err != nil {
		respondError(c, err)
		return
	}

	if h.hub != nil {
		player, _ := room.FindPlayer(userID.(uint))
		h.hub.BroadcastToRoom(room.RoomKey, "player_update", gin.H{
			"action": "joined",
			"player": player,
			"room":   room,
		})
	}

	c.JSON(http.StatusOK, room)
}

func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	room, err := h.roomService.GetRoom(roomID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, room)
}

func (h *RoomHandler) GetRoomByKey(c *gin.Context) {
	key := c.Param("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Room key required"})
		return
	}

	room, err := h.roomService.GetRoomByKey(key)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, room)
}

func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	room, err := h.roomService.LeaveRoom(roomID, userID.(uint))
	if err != nil {
		respondError(c, err)
		return
	}

	if room == nil {
		// Last player out; the room is gone.
		c.JSON(http.StatusOK, gin.H{"message": "Left room", "room_deleted": true})
		return
	}

	if h.hub != nil {
		h.hub.BroadcastToRoom(room.RoomKey, "player_update", gin.H{
			"action":  "left",
			"user_id": userID.(uint),
			"room":    room,
		})
		// The departure may have completed the round.
		if room.Status == models.RoomStatusRanking {
			h.hub.BroadcastToRoom(room.RoomKey, "round_ranking", gin.H{
				"ranking": services.CurrentRanking(room),
				"room":    room,
			})
		}
	}

	c.JSON(http.StatusOK, room)
}

func (h *RoomHandler) SetReady(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	var req SetReadyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.roomService.SetReady(roomID, userID.(uint), *req.IsReady)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastToRoom(room.RoomKey, "ready_update", gin.H{
			"user_id":  userID.(uint),
			"is_ready": *req.IsReady,
			"room":     room,
		})
	}

	c.JSON(http.StatusOK, room)
}

func (h *RoomHandler) StartGame(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	var req StartGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.roomService.StartGame(roomID, userID.(uint), req.Target, req.PlayerStart)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastToRoom(room.RoomKey, "round_start", gin.H{"room": room})
	}

	c.JSON(http.StatusOK, room)
}

func (h *RoomHandler) SubmitGuess(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	var req SubmitGuessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, room, err := h.roomService.SubmitGuess(roomID, userID.(uint), req.Location, req.HintUsed)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastToRoom(room.RoomKey, "guess_update", gin.H{
			"user_id":             userID.(uint),
			"all_players_guessed": result.AllPlayersGuessed,
			"room":                room,
		})
		if result.AllPlayersGuessed {
			h.hub.BroadcastToRoom(room.RoomKey, "round_ranking", gin.H{
				"ranking": services.CurrentRanking(room),
				"room":    room,
			})
		}
	}

	c.JSON(http.StatusOK, gin.H{"result": result, "room": room})
}

func (h *RoomHandler) AdvanceRound(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	var req AdvanceRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.roomService.AdvanceRound(roomID, req.Target, req.PlayerStart)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastToRoom(room.RoomKey, "round_start", gin.H{"room": room})
	}

	c.JSON(http.StatusOK, room)
}

func (h *RoomHandler) CompleteGame(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	ranking, room, err := h.roomService.CompleteGame(roomID)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastToRoom(room.RoomKey, "game_end", gin.H{
			"final_ranking": ranking,
			"room":          room,
		})
	}

	c.JSON(http.StatusOK, gin.H{"final_ranking": ranking, "room": room})
}

func (h *RoomHandler) GetRanking(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	room, err := h.roomService.GetRoom(roomID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ranking": services.CurrentRanking(room)})
}

func (h *RoomHandler) UpdatePosition(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	var req UpdatePositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.roomService.UpdatePosition(roomID, userID.(uint), models.Location{Lat: req.Lat, Lng: req.Lng})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, room)
}

func (h *RoomHandler) RecordRespawn(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	room, err := h.roomService.RecordRespawn(roomID, userID.(uint))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, room)
}

func parseRoomID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID"})
		return 0, false
	}
	return uint(id), true
}
