package browser

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mailwarden/core/internal/middleware"
	"github.com/mailwarden/core/internal/pkg/response"
	sessionpkg "github.com/mailwarden/core/internal/pkg/session"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, optionalMW, loginMW gin.HandlerFunc) {
	a := rg.Group("/auth")
	a.POST("/login", loginMW, h.login)
	a.POST("/logout", optionalMW, h.logout)
	a.GET("/logout", optionalMW, h.logout)
	a.GET("/session", optionalMW, h.session)
}

// login accepts the rendered form post (or JSON from the same page).
// Every failure collapses to one generic answer so the response never
// reveals whether the email exists.
func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBind(&dto); err != nil {
		h.reject(c)
		return
	}
	sid, _, err := h.svc.Login(c.Request.Context(), dto.Email, dto.Password, c.ClientIP())
	if err != nil {
		h.reject(c)
		return
	}
	middleware.SetSessionCookie(c, sid, sessionpkg.DefaultIdleTTL)
	if wantsJSON(c) {
		response.OK(c, gin.H{"success": true})
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) logout(c *gin.Context) {
	if sid := middleware.CurrentSessionID(c); sid != "" {
		_ = h.svc.Logout(c.Request.Context(), sid)
	}
	middleware.ClearSessionCookie(c)
	if wantsJSON(c) {
		response.OK(c, gin.H{"success": true})
		return
	}
	c.Redirect(http.StatusFound, "/login")
}

// session exposes the resolved identity to the page-rendering layer.
func (h *Handler) session(c *gin.Context) {
	payload := middleware.CurrentPayload(c)
	if payload == nil {
		response.OK(c, nil)
		return
	}
	response.OK(c, gin.H{
		"user":       payload.Identity,
		"csrf_token": payload.CSRFToken,
		"created_at": payload.CreatedAt,
	})
}

func (h *Handler) reject(c *gin.Context) {
	if wantsJSON(c) {
		response.UnauthorizedMsg(c, "invalid email or password")
		return
	}
	c.Redirect(http.StatusFound, "/login?error=1")
}

func wantsJSON(c *gin.Context) bool {
	if strings.Contains(c.ContentType(), "json") {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}
