package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/social-signaling/internal/directory"
	"github.com/mossy-p/social-signaling/internal/middleware"
	"go.uber.org/zap"
)

const tokenTTL = 24 * time.Hour

// TokenRequest represents the token request body
type TokenRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// TokenResponse represents the token response
type TokenResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// IssueToken hands out a signaling token for any user the directory knows.
// Real credentials are checked by the account service; this endpoint is for
// development and is not mounted in production.
func IssueToken(dir directory.Directory, jwtSecret string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request body",
			})
			return
		}

		exists, err := dir.Exists(c.Request.Context(), req.UserID)
		if err != nil {
			log.Error("directory lookup failed", zap.String("user_id", req.UserID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to look up user",
			})
			return
		}
		if !exists {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "User not found",
			})
			return
		}

		token, err := middleware.IssueToken(jwtSecret, req.UserID, tokenTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to generate token",
			})
			return
		}

		c.JSON(http.StatusOK, TokenResponse{
			Token:  token,
			UserID: req.UserID,
		})
	}
}
