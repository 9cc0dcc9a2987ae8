package admin

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mailwarden/core/internal/middleware"
	"github.com/mailwarden/core/internal/models"
	"github.com/mailwarden/core/internal/modules/account"
	"github.com/mailwarden/core/internal/pkg/cron"
	"github.com/mailwarden/core/internal/pkg/entitlement"
	"github.com/mailwarden/core/internal/pkg/pagination"
	"github.com/mailwarden/core/internal/pkg/response"
)

type Handler struct {
	svc       *Service
	directory *account.Service
	ent       *entitlement.Checker
	sched     *cron.Scheduler
}

func NewHandler(svc *Service, directory *account.Service, ent *entitlement.Checker, sched *cron.Scheduler) *Handler {
	return &Handler{svc: svc, directory: directory, ent: ent, sched: sched}
}

// RegisterRoutes mounts the admin console API. Every route requires an
// authenticated admin session plus the anti-forgery token on
// mutations.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/admin", authMW, middleware.RequireAdmin(), middleware.CSRF())

	g.GET("/accounts", h.listAccounts)
	g.POST("/accounts", h.createAccount)
	g.GET("/accounts/:id", h.getAccount)
	g.PATCH("/accounts/:id", h.updateAccount)
	g.DELETE("/accounts/:id", h.deleteAccount)
	g.POST("/accounts/bulk-activate", h.bulkActivate)
	g.POST("/accounts/bulk-deactivate", h.bulkDeactivate)
	g.POST("/accounts/bulk-delete", h.bulkDelete)
	g.POST("/accounts/:id/reset-device", h.resetDevice)
	g.POST("/accounts/:id/package", h.assignPackage)

	g.GET("/packages", h.listPackages)
	g.POST("/packages", h.createPackage)
	g.PATCH("/packages/:id", h.updatePackage)
	g.DELETE("/packages/:id", h.deletePackage)

	g.GET("/cron", h.listCron)
	g.POST("/cron/:name/run", h.runCron)
}

func (h *Handler) listAccounts(c *gin.Context) {
	q := pagination.FromContext(c)
	query := h.directory.DB().WithContext(c.Request.Context()).
		Model(&models.AccountModel{}).
		Preload("Package").
		Order("created_at DESC")
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + search + "%"
		query = query.Where("username LIKE ? OR email LIKE ?", like, like)
	}

	var accounts []models.AccountModel
	page, err := pagination.Paginate(query, q, &accounts)
	if err != nil {
		response.InternalError(c)
		return
	}
	views := make([]accountView, len(accounts))
	for i := range accounts {
		views[i] = h.viewOf(&accounts[i])
	}
	response.Paged(c, views, page)
}

func (h *Handler) getAccount(c *gin.Context) {
	acc, err := h.directory.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if acc == nil {
		response.NotFoundMsg(c, "account not found")
		return
	}
	response.OK(c, h.viewOf(acc))
}

func (h *Handler) createAccount(c *gin.Context) {
	var dto CreateAccountDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	acc, err := h.svc.CreateAccount(c.Request.Context(), h.actorID(c), &dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, h.viewOf(acc))
}

func (h *Handler) updateAccount(c *gin.Context) {
	var dto UpdateAccountDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	acc, err := h.svc.UpdateAccount(c.Request.Context(), h.actorID(c), c.Param("id"), &dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, h.viewOf(acc))
}

func (h *Handler) deleteAccount(c *gin.Context) {
	if _, err := h.svc.BulkDelete(c.Request.Context(), h.actorID(c), []string{c.Param("id")}); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) bulkActivate(c *gin.Context)   { h.bulkSetActive(c, true) }
func (h *Handler) bulkDeactivate(c *gin.Context) { h.bulkSetActive(c, false) }

func (h *Handler) bulkSetActive(c *gin.Context, active bool) {
	var dto BulkIDsDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	n, err := h.svc.BulkSetActive(c.Request.Context(), h.actorID(c), dto.IDs, active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"affected": n})
}

func (h *Handler) bulkDelete(c *gin.Context) {
	var dto BulkIDsDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	n, err := h.svc.BulkDelete(c.Request.Context(), h.actorID(c), dto.IDs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"affected": n})
}

func (h *Handler) resetDevice(c *gin.Context) {
	if err := h.svc.ResetDevice(c.Request.Context(), h.actorID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"success": true})
}

func (h *Handler) assignPackage(c *gin.Context) {
	var dto AssignPackageDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	acc, err := h.svc.AssignPackage(c.Request.Context(), h.actorID(c), c.Param("id"), &dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, h.viewOf(acc))
}

func (h *Handler) listPackages(c *gin.Context) {
	pkgs, err := h.directory.ListPackages(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, pkgs)
}

func (h *Handler) createPackage(c *gin.Context) {
	var dto PackageDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	pkg, err := h.svc.CreatePackage(c.Request.Context(), h.actorID(c), &dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, pkg)
}

func (h *Handler) updatePackage(c *gin.Context) {
	var dto UpdatePackageDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	pkg, err := h.svc.UpdatePackage(c.Request.Context(), h.actorID(c), c.Param("id"), &dto)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, pkg)
}

func (h *Handler) deletePackage(c *gin.Context) {
	if err := h.svc.DeletePackage(c.Request.Context(), h.actorID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) listCron(c *gin.Context) {
	if h.sched == nil {
		response.OK(c, []cron.ListItem{})
		return
	}
	response.OK(c, h.sched.List())
}

func (h *Handler) runCron(c *gin.Context) {
	name := c.Param("name")
	// The triggered run must outlive the request, so it gets a fresh
	// context rather than the request's.
	if h.sched == nil || h.sched.Run(context.Background(), name) != nil {
		response.NotFoundMsg(c, "job not found")
		return
	}
	response.OK(c, gin.H{"triggered": name})
}

func (h *Handler) actorID(c *gin.Context) string {
	if id := middleware.CurrentIdentity(c); id != nil {
		return id.AccountID
	}
	return ""
}

func (h *Handler) viewOf(acc *models.AccountModel) accountView {
	return accountView{
		ID:              acc.ID,
		Username:        acc.Username,
		Email:           acc.Email,
		Role:            acc.Role,
		IsActive:        acc.IsActive,
		Package:         acc.Package,
		PackageStart:    acc.PackageStart,
		PackageEnd:      acc.PackageEnd,
		BoundDevice:     acc.BoundDevice,
		DaysUntilExpiry: h.ent.DaysUntilExpiry(acc),
		LastLoginAt:     acc.LastLoginAt,
		LastLoginIP:     acc.LastLoginIP,
		Created:         acc.CreatedAt,
	}
}
