package app

import (
	"github.com/gin-gonic/gin"
	"github.com/mailwarden/core/internal/middleware"
	"github.com/mailwarden/core/internal/modules/account"
	"github.com/mailwarden/core/internal/modules/admin"
	"github.com/mailwarden/core/internal/modules/auth/browser"
	"github.com/mailwarden/core/internal/modules/auth/desktop"
	"github.com/mailwarden/core/internal/modules/system/health"
	"github.com/mailwarden/core/internal/pkg/audit"
	"github.com/mailwarden/core/internal/pkg/clock"
	"github.com/mailwarden/core/internal/pkg/entitlement"
	pkgredis "github.com/mailwarden/core/internal/pkg/redis"
	"github.com/mailwarden/core/internal/pkg/response"
	"github.com/mailwarden/core/internal/pkg/session"
	"github.com/mailwarden/core/internal/pkg/token"
)

// registerRoutes constructs the service graph and mounts every module.
func (a *App) registerRoutes(rc *pkgredis.Client) {
	clk := clock.System()
	aud := audit.New(a.logger)
	ent := entitlement.NewChecker(clk)
	directory := account.NewService(a.db)

	sessions := session.NewManager(rc, directory.Revalidator(ent), aud, clk,
		a.sessionIdleTTL(), a.sessionRotateEvery())
	tokens := token.NewManager(rc, clk, a.desktopTokenTTL())

	a.directory = directory
	a.sessions = sessions

	browserHandler := browser.NewHandler(browser.NewService(directory, sessions, ent, aud))
	desktopHandler := desktop.NewHandler(desktop.NewService(directory, tokens, ent, aud))
	adminHandler := admin.NewHandler(admin.NewService(directory, tokens, aud), directory, ent, a.sched)

	raw := rc.Raw()
	r := a.router
	r.Use(middleware.Idempotence(raw))

	root := r.Group("")
	loginMW := middleware.LoginRateLimit(raw)
	browserHandler.RegisterRoutes(root, middleware.OptionalSession(sessions), loginMW)
	desktopHandler.RegisterRoutes(root, loginMW)

	api := r.Group("/api")
	health.RegisterRoutes(api, a.db, rc)
	adminHandler.RegisterRoutes(api, middleware.SessionAuth(sessions))

	r.NoRoute(func(c *gin.Context) {
		response.NotFoundMsg(c, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})
}
