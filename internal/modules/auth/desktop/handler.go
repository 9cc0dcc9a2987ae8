package desktop

import (
	"github.com/gin-gonic/gin"
	"github.com/mailwarden/core/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// RegisterRoutes mounts the desktop JSON API. The bearer token travels
// in the request body, not in a cookie, so the CSRF guard does not
// apply here.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, loginMW gin.HandlerFunc) {
	api := rg.Group("/auth/api")
	api.POST("/login", loginMW, h.login)
	api.POST("/verify-token", h.verifyToken)
	api.POST("/logout", h.logout)
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "username, password and device_id are required")
		return
	}
	tok, acc, err := h.svc.Login(c.Request.Context(), dto.Username, dto.Password, dto.DeviceID, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, loginResponse{Token: tok, User: viewOf(acc)})
}

func (h *Handler) verifyToken(c *gin.Context) {
	var dto TokenDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "token is required")
		return
	}
	acc, err := h.svc.Verify(c.Request.Context(), dto.Token, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, verifyResponse{User: viewOf(acc)})
}

func (h *Handler) logout(c *gin.Context) {
	var dto TokenDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "token is required")
		return
	}
	if err := h.svc.Logout(c.Request.Context(), dto.Token); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"success": true})
}
