package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/resort-booking/internal/handler"
	"github.com/iliyamo/resort-booking/internal/middleware"
	"github.com/iliyamo/resort-booking/internal/utils"
)

// RegisterAdmin registers staff endpoints under /api/admin.  Login is
// open; everything else requires a valid JWT carrying the ADMIN role.
// invalidate runs after catalog writes so cached listings are dropped.
func RegisterAdmin(api *echo.Group, h *handler.AdminHandler, jwtSecret string, invalidate echo.MiddlewareFunc) {
	api.POST("/admin/login", h.Login)

	g := api.Group(
		"/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RoleAdmin),
	)
	g.POST("/rooms", h.CreateRoom, invalidate)
	g.PUT("/rooms/:id", h.UpdateRoom, invalidate)
	g.GET("/bookings", h.ListBookings)
	g.GET("/bookings/export", h.ExportBookings)
}
