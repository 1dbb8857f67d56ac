package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/bus-seat-reservation/internal/repository"
	"github.com/iliyamo/bus-seat-reservation/internal/reservation"
	"github.com/iliyamo/bus-seat-reservation/internal/view"
)

// BusHandler serves the public catalogue: buses, their availability and
// their seat maps.  No authentication is required.
type BusHandler struct {
	Buses *repository.BusRepo
	Avail *reservation.Availability
	Log   *zap.Logger
}

func NewBusHandler(buses *repository.BusRepo, avail *reservation.Availability, log *zap.Logger) *BusHandler {
	if buses == nil || avail == nil {
		panic("nil dependency passed to NewBusHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BusHandler{Buses: buses, Avail: avail, Log: log}
}

// ListBuses returns every bus with its available seat count.
func (h *BusHandler) ListBuses(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	buses, err := h.Buses.List(ctx)
	if err != nil {
		h.Log.Error("list buses", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	counts, err := h.Avail.AvailableCounts(ctx, buses)
	if err != nil {
		h.Log.Error("available counts", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, view.NewBuses(buses, counts))
}

// GetBus returns a single bus or 404.
func (h *BusHandler) GetBus(c echo.Context) error {
	id, ok := pathID(c, "bus_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	bus, err := h.Buses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservation.ErrBusNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Bus not found"})
		}
		h.Log.Error("get bus", zap.Uint64("bus_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	available, err := h.Avail.AvailableCount(ctx, *bus)
	if err != nil {
		h.Log.Error("available count", zap.Uint64("bus_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, view.NewBus(*bus, available))
}

// GetSeats returns the seat map of a bus: every seat with its booked flag
// and fare.
func (h *BusHandler) GetSeats(c echo.Context) error {
	id, ok := pathID(c, "bus_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	seats, err := h.Avail.SeatMap(ctx, id)
	if err != nil {
		if errors.Is(err, reservation.ErrBusNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Bus not found"})
		}
		h.Log.Error("seat map", zap.Uint64("bus_id", id), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Error fetching seats"})
	}
	return c.JSON(http.StatusOK, view.NewSeats(seats))
}
