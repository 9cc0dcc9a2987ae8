package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
	pkgredis "github.com/mailwarden/core/internal/pkg/redis"
	"gorm.io/gorm"
)

// RegisterRoutes mounts the liveness endpoint.
func RegisterRoutes(rg *gin.RouterGroup, db *gorm.DB, rc *pkgredis.Client) {
	rg.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		dbOK := err == nil && sqlDB.Ping() == nil
		redisOK := rc.Ping(c.Request.Context()) == nil

		status := "ok"
		code := http.StatusOK
		if !dbOK || !redisOK {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"status":   status,
			"database": dbOK,
			"redis":    redisOK,
		})
	})
}
