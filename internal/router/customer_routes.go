package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/handler"
	"github.com/iliyamo/bus-seat-reservation/internal/middleware"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// RegisterCustomer registers the booking endpoints.  All routes require a
// valid JWT; admins may book too.  The mutating routes also pass through
// limit, which runs after authentication so it can key on the user.
//
// The routes share the root prefix with public ones, so middleware is
// attached per route rather than through a group.
func RegisterCustomer(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	auth := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCustomer, model.RoleAdmin),
	}
	mutating := auth
	if limit != nil {
		mutating = append(append([]echo.MiddlewareFunc{}, auth...), limit)
	}
	e.POST("/bookings/", h.Book, mutating...)
	e.POST("/bookings/cancel/:booking_id/", h.Cancel, mutating...)
	e.GET("/my-bookings/", h.MyBookings, auth...)
}
