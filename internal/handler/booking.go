package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/bus-seat-reservation/internal/middleware"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
	"github.com/iliyamo/bus-seat-reservation/internal/view"
)

// Reserver is the booking engine used by BookingHandler.
type Reserver interface {
	Reserve(ctx context.Context, userID, busID uint64, seatIDs []uint64) (*model.Booking, error)
	Cancel(ctx context.Context, userID, bookingID uint64) (*model.Booking, error)
}

// BookingHandler exposes the customer booking endpoints.  Every route
// requires an authenticated user.
type BookingHandler struct {
	Svc      Reserver
	Bookings *repository.BookingRepo
	Users    *repository.UserRepo
	Log      *zap.Logger
}

func NewBookingHandler(svc Reserver, bookings *repository.BookingRepo, users *repository.UserRepo, log *zap.Logger) *BookingHandler {
	if svc == nil || bookings == nil || users == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BookingHandler{Svc: svc, Bookings: bookings, Users: users, Log: log}
}

type bookReq struct {
	Bus     uint64   `json:"bus"`
	SeatIDs []uint64 `json:"seat_ids"`
}

// owner loads the user for booking representations.  A failed lookup
// degrades to an id-only user rather than failing the request.
func (h *BookingHandler) owner(ctx context.Context, uid uint64) model.User {
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		h.Log.Warn("load booking owner", zap.Uint64("user_id", uid), zap.Error(err))
		return model.User{ID: uid}
	}
	return u
}

// Book reserves seats on a bus for the caller.
func (h *BookingHandler) Book(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Bus == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "bus is required"})
	}
	if len(req.SeatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_ids must contain at least one seat id"})
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	booking, err := h.Svc.Reserve(ctx, uid, req.Bus, req.SeatIDs)
	if err != nil {
		return reserveError(c, err)
	}
	return c.JSON(http.StatusCreated, view.NewBooking(*booking, h.owner(ctx, uid)))
}

// Cancel cancels one of the caller's bookings.
func (h *BookingHandler) Cancel(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "booking_id")
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Booking not found"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	if _, err := h.Svc.Cancel(ctx, uid, id); err != nil {
		status, msg := cancelStatus(err)
		if status >= http.StatusInternalServerError {
			h.Log.Error("cancel booking", zap.Uint64("booking_id", id), zap.Error(err))
		}
		return c.JSON(status, echo.Map{"error": msg})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Booking cancelled successfully"})
}

// MyBookings lists the caller's bookings, cancelled ones included.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	bookings, err := h.Bookings.ListByUser(ctx, uid)
	if err != nil {
		h.Log.Error("list bookings", zap.Uint64("user_id", uid), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	users := map[uint64]model.User{uid: h.owner(ctx, uid)}
	return c.JSON(http.StatusOK, view.NewBookings(bookings, users))
}
