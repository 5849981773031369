package router

import (
	"github.com/labstack/echo/v4"

	"github.com/lunchroom/lunchroom/internal/auth"
	"github.com/lunchroom/lunchroom/internal/handler"
	"github.com/lunchroom/lunchroom/internal/middleware"
)

// RegisterMember registers the routes available to every authenticated user.
// SessionAuth runs first on the group, so a request without a valid session
// is rejected with 401 before any role or ownership check can produce 403.
func RegisterMember(e *echo.Echo, tokens *auth.Manager, ev *handler.EventHandler, ord *handler.OrderHandler) {
	g := e.Group("/api", middleware.SessionAuth(tokens))

	g.GET("/events", ev.List)
	g.GET("/events/:id", ev.Get)

	g.POST("/events/:id/orders", ord.Place)
	g.GET("/orders", ord.ListMine)
	g.GET("/orders/:id", ord.Get)
	g.DELETE("/orders/:id", ord.Cancel)
}
