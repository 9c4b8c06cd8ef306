// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/avoronov/ticket-directory/internal/config"
	"github.com/avoronov/ticket-directory/internal/handler"
	"github.com/avoronov/ticket-directory/internal/middleware"
	"github.com/avoronov/ticket-directory/internal/model"
)

// RegisterRoutes registers the unauthenticated surface: health check
// and the register/login endpoints that bootstrap a session.
func RegisterRoutes(e *echo.Echo, a *handler.AuthHandler) {
	e.GET("/healthz", handler.Health)
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
}

// RegisterCommands registers the authenticated command endpoint and
// the admin console.  Every route in this group re-proves identity
// from the bearer token; the command endpoint is additionally rate
// limited per client.
func RegisterCommands(e *echo.Echo, cmd *handler.CommandHandler, adm *handler.AdminHandler, a *handler.AuthHandler, jwtSecret string, rl config.RateLimitConfig, rdb *redis.Client) {
	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleUser, model.RoleAdmin))
	auth.GET("/me", a.Me)
	auth.POST("/commands", cmd.Execute, middleware.NewTokenBucket(rl, rdb))

	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	admin.POST("/clear-all", adm.ClearAll)
}
