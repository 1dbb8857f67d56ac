package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
	"github.com/iliyamo/bus-seat-reservation/internal/reservation"
	"github.com/iliyamo/bus-seat-reservation/internal/view"
)

// AdminHandler manages buses and their layouts.  Routes are restricted to
// the ADMIN role by the router.
type AdminHandler struct {
	Buses    *repository.BusRepo
	Bookings *repository.BookingRepo
	Users    *repository.UserRepo
	Notifier reservation.Notifier
	Log      *zap.Logger
}

func NewAdminHandler(buses *repository.BusRepo, bookings *repository.BookingRepo, users *repository.UserRepo, n reservation.Notifier, log *zap.Logger) *AdminHandler {
	if buses == nil || bookings == nil || users == nil || n == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminHandler{Buses: buses, Bookings: bookings, Users: users, Notifier: n, Log: log}
}

type createBusReq struct {
	BusNumber      string          `json:"bus_number"`
	Source         string          `json:"source"`
	Destination    string          `json:"destination"`
	DepartureTime  time.Time       `json:"departure_time"`
	ArrivalTime    time.Time       `json:"arrival_time"`
	TotalRows      int             `json:"total_rows"`
	HasSleeper     bool            `json:"has_sleeper"`
	SeaterFare     decimal.Decimal `json:"seater_fare"`
	LowerBerthFare decimal.Decimal `json:"lower_berth_fare"`
	UpperBerthFare decimal.Decimal `json:"upper_berth_fare"`
}

func (r createBusReq) toModel() model.Bus {
	return model.Bus{
		BusNumber:      r.BusNumber,
		Source:         r.Source,
		Destination:    r.Destination,
		DepartureTime:  r.DepartureTime.UTC(),
		ArrivalTime:    r.ArrivalTime.UTC(),
		TotalRows:      r.TotalRows,
		HasSleeper:     r.HasSleeper,
		SeaterFare:     r.SeaterFare,
		LowerBerthFare: r.LowerBerthFare,
		UpperBerthFare: r.UpperBerthFare,
	}
}

// CreateBus validates and creates a bus together with its seat layout.
func (h *AdminHandler) CreateBus(c echo.Context) error {
	var req createBusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	bus := req.toModel()
	if err := bus.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	seats, err := h.Buses.CreateWithLayout(ctx, &bus)
	if err != nil {
		h.Log.Error("create bus", zap.String("bus_number", bus.BusNumber), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create bus failed"})
	}
	h.Log.Info("bus created", zap.Uint64("bus_id", bus.ID), zap.Int("seats", len(seats)))
	return c.JSON(http.StatusCreated, view.NewBus(bus, len(seats)))
}

// RegenerateLayout replaces the seats of a bus that has never been booked.
func (h *AdminHandler) RegenerateLayout(c echo.Context) error {
	id, ok := pathID(c, "bus_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	seats, err := h.Buses.RegenerateLayout(ctx, id)
	switch {
	case errors.Is(err, reservation.ErrBusNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Bus not found"})
	case errors.Is(err, repository.ErrLayoutFinalized):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, reservation.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case err != nil:
		h.Log.Error("regenerate layout", zap.Uint64("bus_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "regenerate layout failed"})
	}
	h.Notifier.Notify(id)
	return c.JSON(http.StatusOK, echo.Map{"bus": id, "seats_created": len(seats)})
}

// FinalizeLayout freezes the seat layout of a bus.
func (h *AdminHandler) FinalizeLayout(c echo.Context) error {
	id, ok := pathID(c, "bus_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	if err := h.Buses.FinalizeLayout(ctx, id); err != nil {
		if errors.Is(err, reservation.ErrBusNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Bus not found"})
		}
		h.Log.Error("finalize layout", zap.Uint64("bus_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "finalize layout failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bus": id, "layout_finalized": true})
}

// BusBookings lists every booking on a bus with its owner.
func (h *AdminHandler) BusBookings(c echo.Context) error {
	id, ok := pathID(c, "bus_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bus id"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	if _, err := h.Buses.GetByID(ctx, id); err != nil {
		if errors.Is(err, reservation.ErrBusNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Bus not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	bookings, err := h.Bookings.ListByBus(ctx, id)
	if err != nil {
		h.Log.Error("list bus bookings", zap.Uint64("bus_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	ids := make([]uint64, 0, len(bookings))
	seen := make(map[uint64]struct{}, len(bookings))
	for _, b := range bookings {
		if _, ok := seen[b.UserID]; !ok {
			seen[b.UserID] = struct{}{}
			ids = append(ids, b.UserID)
		}
	}
	users, err := h.Users.GetByIDs(ctx, ids)
	if err != nil {
		h.Log.Error("load booking owners", zap.Uint64("bus_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, view.NewBookings(bookings, users))
}
