package handler // handler defines http handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/reservation"
)

// requestTimeout bounds the database work of a single request.
const requestTimeout = 5 * time.Second

func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// reserveError renders a failed reservation.  Lock contention is the only
// retryable failure; everything else is a 400 carrying the message.
func reserveError(c echo.Context, err error) error {
	var booked *reservation.SeatBookedError
	switch {
	case errors.As(err, &booked):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":       err.Error(),
			"seat_id":     booked.SeatID,
			"seat_number": booked.SeatNumber,
		})
	case errors.Is(err, reservation.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, reservation.ErrBusNotFound):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Bus not found"})
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
}

// cancelStatus maps a cancellation failure to a status and message.
func cancelStatus(err error) (int, string) {
	switch {
	case errors.Is(err, reservation.ErrBookingNotFound):
		return http.StatusNotFound, "Booking not found"
	case errors.Is(err, reservation.ErrAlreadyCancelled):
		return http.StatusBadRequest, "Booking is already cancelled"
	case errors.Is(err, reservation.ErrConflict):
		return http.StatusConflict, err.Error()
	}
	return http.StatusInternalServerError, "cancel failed"
}
