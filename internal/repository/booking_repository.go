package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

const bookingColumns = `id, user_id, bus_id, booking_date, status, total_fare`

// BookingRepo lists bookings for the read endpoints.  Writes go through
// Store so they share the reservation locks.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo constructs a BookingRepo.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// ListByUser returns the user's bookings newest first, seats included.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? ORDER BY booking_date DESC, id DESC`, userID)
}

// ListByBus returns every booking made on a bus newest first.
func (r *BookingRepo) ListByBus(ctx context.Context, busID uint64) ([]model.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE bus_id = ? ORDER BY booking_date DESC, id DESC`, busID)
}

func (r *BookingRepo) list(ctx context.Context, q string, arg uint64) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	bookings := make([]model.Booking, 0)
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.UserID, &b.BusID, &b.BookingDate, &b.Status, &b.TotalFare); err != nil {
			rows.Close()
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if len(bookings) == 0 {
		return bookings, nil
	}

	// Load all seats in one round trip and attach them in memory.
	ids := make([]uint64, len(bookings))
	index := make(map[uint64]int, len(bookings))
	for i, b := range bookings {
		ids[i] = b.ID
		index[b.ID] = i
	}
	in, args := placeholders(ids)
	seatRows, err := r.db.QueryContext(ctx,
		`SELECT bs.id, bs.booking_id, bs.seat_id, s.seat_number, s.seat_type
		 FROM booked_seats bs JOIN seats s ON s.id = bs.seat_id
		 WHERE bs.booking_id IN (`+in+`)
		 ORDER BY bs.booking_id, s.seat_number`, args...)
	if err != nil {
		return nil, err
	}
	seats, err := scanBookedSeats(seatRows)
	if err != nil {
		return nil, err
	}
	for _, s := range seats {
		i := index[s.BookingID]
		bookings[i].Seats = append(bookings[i].Seats, s)
	}
	return bookings, nil
}

func scanBookedSeats(rows *sql.Rows) ([]model.BookedSeat, error) {
	defer rows.Close()
	out := make([]model.BookedSeat, 0)
	for rows.Next() {
		var s model.BookedSeat
		if err := rows.Scan(&s.ID, &s.BookingID, &s.SeatID, &s.SeatNumber, &s.SeatType); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
