package router

import (
	"github.com/labstack/echo/v4"

	"github.com/lunchroom/lunchroom/internal/auth"
	"github.com/lunchroom/lunchroom/internal/handler"
	"github.com/lunchroom/lunchroom/internal/middleware"
	"github.com/lunchroom/lunchroom/internal/model"
)

// RegisterStaff registers the MODERATOR/ADMIN curation routes and the
// ADMIN-only user management routes.
func RegisterStaff(e *echo.Echo, tokens *auth.Manager, sh *handler.ShopHandler, mn *handler.MenuHandler, ev *handler.EventHandler, adm *handler.UserAdminHandler) {
	mod := e.Group("/api",
		middleware.SessionAuth(tokens),
		middleware.RequireRole(model.RoleModerator, model.RoleAdmin))

	mod.POST("/shops", sh.Create)
	mod.PUT("/shops/:id", sh.Update)
	mod.PATCH("/shops/:id/active", sh.SetActive)
	mod.DELETE("/shops/:id", sh.Delete)

	mod.POST("/shops/:id/menus", mn.CreateMenu)
	mod.PUT("/menus/:id", mn.UpdateMenu)
	mod.DELETE("/menus/:id", mn.DeleteMenu)
	mod.POST("/menus/:id/categories", mn.CreateCategory)
	mod.DELETE("/categories/:id", mn.DeleteCategory)
	mod.POST("/categories/:id/items", mn.CreateItem)
	mod.PUT("/items/:id", mn.UpdateItem)
	mod.DELETE("/items/:id", mn.DeleteItem)

	mod.POST("/events", ev.Create)
	mod.PUT("/events/:id", ev.Update)
	mod.POST("/events/:id/close", ev.Close)
	mod.POST("/events/:id/cancel", ev.Cancel)
	mod.DELETE("/events/:id", ev.Delete)
	mod.GET("/events/:id/orders", ev.ListOrders)

	admin := e.Group("/api/users",
		middleware.SessionAuth(tokens),
		middleware.RequireRole(model.RoleAdmin))

	admin.GET("", adm.List)
	admin.GET("/:id", adm.Get)
	admin.PATCH("/:id", adm.Update)
	admin.DELETE("/:id", adm.Deactivate)
	admin.POST("/:id/restore", adm.Restore)
	admin.DELETE("/:id/purge", adm.Purge)
	admin.POST("/:id/password", adm.ForcePassword)
}
