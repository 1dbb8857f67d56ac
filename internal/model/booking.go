package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	// BookingPending is declared for a future hold-then-confirm flow; no
	// code path creates it today.
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// Booking records a user's claim on one or more seats of a bus.  It is
// created directly in CONFIRMED state and may move to CANCELLED exactly
// once.  TotalFare is fixed at booking time.
//
// Fields:
//
//	ID          – primary key identifier.
//	UserID      – user who made the booking.
//	BusID       – bus being booked.
//	BookingDate – creation timestamp, immutable.
//	Status      – PENDING, CONFIRMED or CANCELLED.
//	TotalFare   – sum of the seat fares at booking time.
//	Seats       – seats claimed by this booking (booked_seats rows).
type Booking struct {
	ID          uint64          // bookings.id
	UserID      uint64          // bookings.user_id
	BusID       uint64          // bookings.bus_id
	BookingDate time.Time       // bookings.booking_date
	Status      BookingStatus   // bookings.status
	TotalFare   decimal.Decimal // bookings.total_fare
	Seats       []BookedSeat
}

// BookedSeat links a booking to a seat.  Cancellation does not remove
// these rows; occupancy is derived from the status of the owning booking.
type BookedSeat struct {
	ID         uint64   // booked_seats.id
	BookingID  uint64   // booked_seats.booking_id
	SeatID     uint64   // booked_seats.seat_id
	SeatNumber int      // seats.seat_number (joined)
	SeatType   SeatType // seats.seat_type (joined)
}
