package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mailwarden/core/internal/pkg/response"
)

const csrfHeader = "X-CSRF-Token"

// CSRF requires the per-session anti-forgery token on every
// state-mutating browser request. Must run after SessionAuth. The
// desktop bearer flow never passes through here: with no ambient
// cookie credential there is nothing to forge.
func CSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		payload := CurrentPayload(c)
		if payload == nil {
			response.Unauthorized(c)
			return
		}
		presented := c.GetHeader(csrfHeader)
		if presented == "" {
			presented = c.PostForm("csrf_token")
		}
		if subtle.ConstantTimeCompare([]byte(presented), []byte(payload.CSRFToken)) != 1 {
			response.ForbiddenMsg(c, "invalid or missing anti-forgery token")
			return
		}
		c.Next()
	}
}
