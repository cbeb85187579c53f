package handlers

import (
	"net/http"
	"strconv"

	"geoguess/models"
	"geoguess/services"

	"github.com/gin-gonic/gin"
)

type HistoryHandler struct {
	historyService *services.HistoryService
}

func NewHistoryHandler(historyService *services.HistoryService) *HistoryHandler {
	return &HistoryHandler{historyService: historyService}
}

func (h *HistoryHandler) GetRecords(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	mode := models.GameMode(c.Query("mode"))
	if mode != "" && mode != models.GameModeSolo && mode != models.GameModeMulti {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid mode"})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	records, err := h.historyService.ListRecords(userID.(uint), mode, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, records)
}

func (h *HistoryHandler) GetMultiSessions(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))

	sessions, err := h.historyService.ListMultiSessions(userID.(uint), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, sessions)
}
