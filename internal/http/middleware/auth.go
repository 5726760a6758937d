package middleware

import (
	"context"
	"net/http"
	"strings"

	"plantaton/internal/logger"
	"plantaton/internal/service"

	"github.com/gin-gonic/gin"
)

// Context keys set by JWT.
const (
	ContextUserID  = "user_id"
	ContextIsAdmin = "is_admin"
)

// BanChecker is the part of the store RequireActiveUser needs.
type BanChecker interface {
	IsBanned(ctx context.Context, userID int64) (bool, error)
}

func abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "message": msg, "code": code})
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if h == "" {
		return ""
	}
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// JWT resolves the current user from the Authorization header.
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}
		claims, err := service.ParseJWT(token)
		if err != nil {
			abort(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextIsAdmin, claims.Admin)
		c.Next()
	}
}

// RequireAdmin must run after JWT.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ContextIsAdmin) {
			abort(c, http.StatusForbidden, "FORBIDDEN", "Admin access required")
			return
		}
		c.Next()
	}
}

// RequireActiveUser rejects banned users. Must run after JWT.
func RequireActiveUser(bans BanChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt64(ContextUserID)
		if userID == 0 {
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}
		banned, err := bans.IsBanned(c.Request.Context(), userID)
		if err != nil {
			logger.WithContext(c.Request.Context()).Error("ban check failed", "user_id", userID, "error", err)
			abort(c, http.StatusInternalServerError, "INTERNAL", "internal error")
			return
		}
		if banned {
			abort(c, http.StatusForbidden, service.ErrUserBanned.Code, service.ErrUserBanned.Message)
			return
		}
		c.Next()
	}
}
