package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/handler"
	"github.com/iliyamo/bus-seat-reservation/internal/middleware"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// RegisterAdmin registers bus management endpoints under /admin.
// All routes require a valid JWT and the ADMIN role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	// ---- Buses ----
	g.POST("/buses/", h.CreateBus)
	g.GET("/buses/:bus_id/bookings/", h.BusBookings)

	// ---- Layout ----
	g.POST("/buses/:bus_id/layout/", h.RegenerateLayout)
	g.POST("/buses/:bus_id/finalize/", h.FinalizeLayout)
}
