package reservation

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the reservation and cancellation engines.
// Handlers map them to HTTP status codes with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrBusNotFound     = fmt.Errorf("bus %w", ErrNotFound)
	ErrSeatNotFound    = fmt.Errorf("seat %w", ErrNotFound)
	ErrBookingNotFound = fmt.Errorf("booking %w", ErrNotFound)

	ErrValidation        = errors.New("validation error")
	ErrSeatAlreadyBooked = errors.New("seat already booked")
	ErrAlreadyCancelled  = errors.New("booking is already cancelled")

	// ErrConflict reports lock contention (lock wait timeout or deadlock).
	// The request can be retried.
	ErrConflict = errors.New("conflict: seats are being booked concurrently, please retry")
)

// SeatNotFoundError names a requested seat id that does not belong to the
// bus being booked.
type SeatNotFoundError struct {
	SeatID uint64
}

func (e *SeatNotFoundError) Error() string {
	return fmt.Sprintf("Seat ID %d not found", e.SeatID)
}

func (e *SeatNotFoundError) Unwrap() error { return ErrSeatNotFound }

// SeatBookedError names the seat that is already held by a CONFIRMED
// booking so clients can refresh their seat map.
type SeatBookedError struct {
	SeatID     uint64
	SeatNumber int
}

func (e *SeatBookedError) Error() string {
	return fmt.Sprintf("Seat %d is already booked", e.SeatNumber)
}

func (e *SeatBookedError) Unwrap() error { return ErrSeatAlreadyBooked }
