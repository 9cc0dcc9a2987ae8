package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mailwarden/core/internal/models"
	"github.com/mailwarden/core/internal/pkg/apperr"
	"github.com/mailwarden/core/internal/pkg/response"
	sessionpkg "github.com/mailwarden/core/internal/pkg/session"
)

const (
	// SessionCookie carries the opaque session identifier; it is the
	// only thing the browser holds.
	SessionCookie = "mw_session"

	ContextKeyPayload = "session_payload"
	ContextKeySID     = "session_id"
)

// SessionAuth enforces a valid session. Each pass re-validates the
// account behind the session, rotates stale identifiers and refreshes
// the cookie when the identifier changed. A backend failure is a 500,
// not a logout: the cookie is cleared only when the session itself was
// judged invalid.
func SessionAuth(mgr *sessionpkg.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := resolveSession(c, mgr); err != nil {
			if apperr.KindOf(err) == apperr.KindInternal {
				response.InternalError(c)
				return
			}
			ClearSessionCookie(c)
			response.Unauthorized(c)
			return
		}
		c.Next()
	}
}

// OptionalSession resolves the session if present but never blocks.
func OptionalSession(mgr *sessionpkg.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = resolveSession(c, mgr)
		c.Next()
	}
}

// RequireAdmin rejects non-admin identities. Must run after
// SessionAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := CurrentIdentity(c)
		if id == nil || id.Role != models.RoleAdmin {
			response.Forbidden(c)
			return
		}
		c.Next()
	}
}

func resolveSession(c *gin.Context, mgr *sessionpkg.Manager) error {
	sid, err := c.Cookie(SessionCookie)
	if err != nil || sid == "" {
		return sessionpkg.ErrInvalid
	}
	payload, cur, err := mgr.LoadAndValidate(c.Request.Context(), sid)
	if err != nil {
		return err
	}
	if cur != sid {
		SetSessionCookie(c, cur, sessionpkg.DefaultIdleTTL)
	}
	c.Set(ContextKeyPayload, payload)
	c.Set(ContextKeySID, cur)
	return nil
}

// CurrentPayload returns the resolved session payload, or nil.
func CurrentPayload(c *gin.Context) *sessionpkg.Payload {
	v, _ := c.Get(ContextKeyPayload)
	p, _ := v.(*sessionpkg.Payload)
	return p
}

// CurrentIdentity returns the authenticated identity, or nil.
func CurrentIdentity(c *gin.Context) *sessionpkg.Identity {
	if p := CurrentPayload(c); p != nil {
		return &p.Identity
	}
	return nil
}

// CurrentSessionID returns the session identifier after rotation.
func CurrentSessionID(c *gin.Context) string {
	v, _ := c.Get(ContextKeySID)
	id, _ := v.(string)
	return id
}

// SetSessionCookie writes the session cookie.
func SetSessionCookie(c *gin.Context, sid string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, sid, int(ttl.Seconds()), "/", "", false, true)
}

// ClearSessionCookie drops the session cookie.
func ClearSessionCookie(c *gin.Context) {
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
}
