// Package router wires handlers, middleware and route groups together.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lunchroom/lunchroom/internal/auth"
	"github.com/lunchroom/lunchroom/internal/handler"
	"github.com/lunchroom/lunchroom/internal/middleware"
)

// RegisterCore registers the infrastructure endpoints.
func RegisterCore(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the session endpoints.  The whole /api/auth group
// sits behind the token-bucket limiter; /api/auth/me additionally requires a
// live session.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, tokens *auth.Manager, limiter echo.MiddlewareFunc) {
	g := e.Group("/api/auth", limiter)
	g.POST("/login", a.Login)
	g.POST("/register", a.Register)
	g.POST("/refresh", a.Refresh)
	g.POST("/reset-password", a.RequestReset)
	g.POST("/reset-password/confirm", a.ConfirmReset)
	g.POST("/logout", a.Logout)
	g.GET("/me", a.Me, middleware.SessionAuth(tokens))
}

// RegisterPublic registers the unauthenticated browse endpoints behind the
// redis response cache.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/api", cache)
	g.GET("/shops", p.ListShops)
	g.GET("/shops/:id", p.GetShop)
	g.GET("/shops/:id/menu", p.GetShopMenu)
}
