// Package reservation implements seat booking and cancellation for buses,
// the seat availability calculation and the contracts the engines need from
// persistence and notification.
//
// Every mutation runs inside a single Tx.  Seats are locked before their
// occupancy is checked, so two transactions booking an overlapping seat set
// are linearized by the store: the second one observes the committed
// booking of the first and fails with ErrSeatAlreadyBooked.  Notification
// and event publishing happen strictly after a successful commit.
package reservation

import (
	"context"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/queue"
)

// Store opens transactions against the reservation store.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is a single atomic unit of work.  Implementations must hold the
// locks taken by LockSeats and LockBooking until Commit or Rollback and
// report lock timeouts and deadlocks as ErrConflict.
type Tx interface {
	Commit() error
	Rollback() error

	// BusByID returns ErrBusNotFound when the bus does not exist.
	BusByID(ctx context.Context, busID uint64) (*model.Bus, error)
	// LockSeats locks and returns the seats among seatIDs that belong to
	// busID.  Ids that do not resolve are simply absent from the result.
	LockSeats(ctx context.Context, busID uint64, seatIDs []uint64) ([]model.Seat, error)
	// ConfirmedSeats returns the seats among seatIDs currently held by a
	// CONFIRMED booking.
	ConfirmedSeats(ctx context.Context, seatIDs []uint64) ([]model.Seat, error)
	// InsertBooking persists b and fills in its ID and BookingDate.
	InsertBooking(ctx context.Context, b *model.Booking) error
	// InsertBookedSeats links every seat to the booking.
	InsertBookedSeats(ctx context.Context, bookingID uint64, seats []model.Seat) ([]model.BookedSeat, error)
	// LockBooking locks the booking owned by userID, returning
	// ErrBookingNotFound when it does not exist or belongs to someone else.
	LockBooking(ctx context.Context, bookingID, userID uint64) (*model.Booking, error)
	BookedSeats(ctx context.Context, bookingID uint64) ([]model.BookedSeat, error)
	SetBookingStatus(ctx context.Context, bookingID uint64, status model.BookingStatus) error
}

// Notifier is told which bus changed after a booking mutation commits.
// Notify must not block on subscriber delivery.
type Notifier interface {
	Notify(busID uint64)
}

// EventPublisher forwards booking events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// SeatReader is the read-only view of persisted seats used by the
// availability calculator.  It always reads committed state; there is no
// caching layer.
type SeatReader interface {
	BusByID(ctx context.Context, busID uint64) (*model.Bus, error)
	// SeatsWithStatus lists the bus seats ordered by seat number with
	// IsBooked set from CONFIRMED bookings.
	SeatsWithStatus(ctx context.Context, busID uint64) ([]model.SeatStatus, error)
	// ConfirmedCounts returns, per bus id, the number of seats held by
	// CONFIRMED bookings.  Buses without bookings may be absent.
	ConfirmedCounts(ctx context.Context, busIDs []uint64) (map[uint64]int, error)
}
