package handlers

import (
	"net/http"

	"geoguess/models"
	"geoguess/services"

	"github.com/gin-gonic/gin"
)

type SoloHandler struct {
	soloService *services.SoloService
}

func NewSoloHandler(soloService *services.SoloService) *SoloHandler {
	return &SoloHandler{soloService: soloService}
}

type CreateSoloSessionRequest struct {
	Target models.Location `json:"target" binding:"required"`
	Start  models.Location `json:"start" binding:"required"`
}

type CompleteSoloSessionRequest struct {
	FinalLocation models.Location `json:"final_location" binding:"required"`
}

func (h *SoloHandler) CreateSession(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req CreateSoloSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.soloService.CreateSession(userID.(uint), req.Target, req.Start)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

func (h *SoloHandler) GetSession(c *gin.Context) {
	session, err := h.soloService.GetSession(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *SoloHandler) RecordHint(c *gin.Context) {
	session, err := h.soloService.RecordHint(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if session == nil {
		// Missing or already completed; nothing to report.
		c.JSON(http.StatusOK, gin.H{})
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *SoloHandler) RecordRespawn(c *gin.Context) {
	session, err := h.soloService.RecordRespawn(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if session == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}

	c.JSON(http.StatusOK, session)
}

func (h *SoloHandler) CompleteSession(c *gin.Context) {
	var req CompleteSoloSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.soloService.CompleteSession(c.Param("id"), req.FinalLocation)
	if err != nil {
		respondError(c, err)
		return
	}
	if result == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}

	c.JSON(http.StatusOK, result)
}
