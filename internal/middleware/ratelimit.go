package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	loginRateMax    = 10
	loginRateWindow = time.Minute
)

// LoginRateLimit returns a middleware that caps login attempts per IP
// in a sliding one-minute window. It guards the credential endpoints
// against online brute force; everything else stays unthrottled.
func LoginRateLimit(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		windowKey := time.Now().Unix() / int64(loginRateWindow.Seconds())
		key := fmt.Sprintf("mw:rate_limit:login:%s:%d", ip, windowKey)

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			// Redis trouble must not lock everyone out.
			c.Next()
			return
		}
		if count == 1 {
			rdb.PExpire(ctx, key, loginRateWindow+time.Second)
		}

		if count > loginRateMax {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"ok":      0,
				"code":    http.StatusTooManyRequests,
				"message": "too many login attempts, try again later",
			})
			return
		}

		c.Next()
	}
}
