package handlers

import (
	"errors"
	"net/http"

	"geoguess/services"

	"github.com/gin-gonic/gin"
)

// respondError maps engine failures onto HTTP statuses. Everything the
// engine returns is recoverable by the caller; only unknown errors become a
// 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrRoomNotFound),
		errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, services.ErrNotHost):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, services.ErrWrongState),
		errors.Is(err, services.ErrRoomNotJoinable),
		errors.Is(err, services.ErrRoomNotPlaying),
		errors.Is(err, services.ErrRoundNotComplete),
		errors.Is(err, services.ErrAllRoundsComplete),
		errors.Is(err, services.ErrRoundsIncomplete),
		errors.Is(err, services.ErrRoomConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, services.ErrRoomFull),
		errors.Is(err, services.ErrAlreadyJoined),
		errors.Is(err, services.ErrNotAParticipant),
		errors.Is(err, services.ErrNotAllReady),
		errors.Is(err, services.ErrNotEnoughPlayers),
		errors.Is(err, services.ErrAlreadyGuessed),
		errors.Is(err, services.ErrInvalidLocation),
		errors.Is(err, services.ErrInvalidSettings):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
