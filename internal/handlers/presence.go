package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/social-signaling/internal/middleware"
	"github.com/mossy-p/social-signaling/internal/models"
	"github.com/mossy-p/social-signaling/internal/signaling"
)

const queryTimeout = 2 * time.Second

// PresenceReader is the part of the hub the HTTP API needs
type PresenceReader interface {
	IsOnline(ctx context.Context, userID string) (bool, error)
	Stats(ctx context.Context) (models.HubStats, error)
}

var _ PresenceReader = (*signaling.Hub)(nil)

// Health reports liveness plus connection counts
func Health(hub PresenceReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
		defer cancel()

		stats, err := hub.Stats(ctx)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"connections": stats.Connections,
			"onlineUsers": stats.OnlineUsers,
			"rooms":       stats.Rooms,
		})
	}
}

// GetPresence reports whether a user is reachable for signaling on this
// instance
func GetPresence(hub PresenceReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("userId")

		ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
		defer cancel()

		online, err := hub.IsOnline(ctx, userID)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Presence unavailable"})
			return
		}
		c.JSON(http.StatusOK, models.PresenceResponse{UserID: userID, Online: online})
	}
}

// InitiateCall acknowledges a call request over HTTP and tells the caller
// whether the callee can currently be reached. The call itself is set up
// over the WebSocket with callUser.
func InitiateCall(hub PresenceReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		callerID := c.GetString(middleware.UserIDKey)
		if callerID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		var req models.InitiateCallRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.CallType == "" {
			req.CallType = "video"
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
		defer cancel()

		online, err := hub.IsOnline(ctx, req.TargetUserID)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Presence unavailable"})
			return
		}

		c.JSON(http.StatusOK, models.InitiateCallResponse{
			Message:      "Call initiated",
			CallerID:     callerID,
			TargetUserID: req.TargetUserID,
			CallType:     req.CallType,
			TargetOnline: online,
		})
	}
}
