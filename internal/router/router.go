package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/bus-seat-reservation/internal/handler"
	"github.com/iliyamo/bus-seat-reservation/internal/middleware"
)

// New returns an Echo instance with the global middleware chain.  Paths
// are registered with a trailing slash; requests without one are
// rewritten before routing.
func New(log *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Pre(echomw.AddTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	return e
}

// RegisterRoutes registers the probes used by load balancers.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz/", handler.Health)
	if db != nil {
		e.GET("/readyz/", handler.Ready(db))
	}
}

// RegisterAuth registers account routes.  Register, login and refresh are
// open; get_user requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	e.POST("/register/", a.Register)
	e.POST("/login/", a.Login)
	e.POST("/token/refresh/", a.Refresh)
	e.GET("/get_user/", a.GetUser, middleware.JWTAuth(jwtSecret))
}

// RegisterPublic registers the unauthenticated catalogue and the live seat
// map channel.
func RegisterPublic(e *echo.Echo, b *handler.BusHandler, ws *handler.WSHandler) {
	e.GET("/buses/", b.ListBuses)
	e.GET("/buses/:bus_id/", b.GetBus)
	e.GET("/buses/:bus_id/seats/", b.GetSeats)
	if ws != nil {
		e.GET("/ws/bus/:bus_id/", ws.SeatUpdates)
	}
}
