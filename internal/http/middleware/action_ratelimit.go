package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// UserRateLimit limits reward actions (plant, harvest, claims) per user
// rather than per IP. Requires JWT to run before it.
func UserRateLimit(maxActions int, window time.Duration) gin.HandlerFunc {
	local := newLocalLimiter(maxActions, window)
	return func(c *gin.Context) {
		userID := c.GetInt64(ContextUserID)
		if userID == 0 {
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}

		endpoint := "action:" + c.FullPath()
		ident := strconv.FormatInt(userID, 10)

		if redisClient == nil {
			if !local.allow(ident, time.Now()) {
				tooManyRequests(c, endpoint, window)
				return
			}
			RLRequests.WithLabelValues(endpoint).Inc()
			c.Next()
			return
		}

		key := "action_rl:" + ident + ":" + strconv.FormatInt(int64(window.Seconds()), 10)
		val, err := incrWindow(c.Request.Context(), key, window)
		if err != nil {
			c.Header("X-ActionRateLimit-Error", "redis-error")
			if !local.allow(ident, time.Now()) {
				tooManyRequests(c, endpoint, window)
				return
			}
			c.Next()
			return
		}

		c.Header("X-ActionRateLimit-Limit", strconv.Itoa(maxActions))
		c.Header("X-ActionRateLimit-Remaining", strconv.FormatInt(max(0, int64(maxActions)-val), 10))

		if val > int64(maxActions) {
			tooManyRequests(c, endpoint, window)
			return
		}

		RLRequests.WithLabelValues(endpoint).Inc()
		c.Next()
	}
}
