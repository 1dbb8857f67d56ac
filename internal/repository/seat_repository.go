package repository // repository defines data access for seats

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

const seatColumns = `s.id, s.bus_id, s.seat_number, s.seat_type, s.row_index, s.column_label`

// SeatRepo reads seats together with their booking state.  It implements
// reservation.SeatReader and always reads committed rows.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

// BusByID returns the bus or reservation.ErrBusNotFound.
func (r *SeatRepo) BusByID(ctx context.Context, busID uint64) (*model.Bus, error) {
	return getBus(ctx, r.db, busID)
}

// SeatsWithStatus lists every seat of the bus ordered by seat number.  A
// seat is booked when a CONFIRMED booking references it.
func (r *SeatRepo) SeatsWithStatus(ctx context.Context, busID uint64) ([]model.SeatStatus, error) {
	const q = `SELECT ` + seatColumns + `,
	                  EXISTS (SELECT 1 FROM booked_seats bs
	                          JOIN bookings b ON b.id = bs.booking_id
	                          WHERE bs.seat_id = s.id AND b.status = 'CONFIRMED') AS is_booked
	           FROM seats s
	           WHERE s.bus_id = ?
	           ORDER BY s.seat_number`
	rows, err := r.db.QueryContext(ctx, q, busID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.SeatStatus, 0)
	for rows.Next() {
		var st model.SeatStatus
		if err := rows.Scan(&st.ID, &st.BusID, &st.SeatNumber, &st.SeatType, &st.Row, &st.Column, &st.IsBooked); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ConfirmedCounts returns the number of seats held by CONFIRMED bookings
// for each of the given buses.  Buses without such seats are absent.
func (r *SeatRepo) ConfirmedCounts(ctx context.Context, busIDs []uint64) (map[uint64]int, error) {
	counts := make(map[uint64]int, len(busIDs))
	if len(busIDs) == 0 {
		return counts, nil
	}
	in, args := placeholders(busIDs)
	q := `SELECT s.bus_id, COUNT(*)
	      FROM booked_seats bs
	      JOIN bookings b ON b.id = bs.booking_id
	      JOIN seats s ON s.id = bs.seat_id
	      WHERE b.status = 'CONFIRMED' AND s.bus_id IN (` + in + `)
	      GROUP BY s.bus_id`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			busID uint64
			n     int
		)
		if err := rows.Scan(&busID, &n); err != nil {
			return nil, err
		}
		counts[busID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

// scanSeats reads rows selected with seatColumns.
func scanSeats(rows *sql.Rows) ([]model.Seat, error) {
	defer rows.Close()
	out := make([]model.Seat, 0)
	for rows.Next() {
		var s model.Seat
		if err := rows.Scan(&s.ID, &s.BusID, &s.SeatNumber, &s.SeatType, &s.Row, &s.Column); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// createSeatsBulkTx inserts the seats in a single statement inside tx.
func createSeatsBulkTx(ctx context.Context, q queryer, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(`INSERT INTO seats (bus_id, seat_number, seat_type, row_index, column_label) VALUES `)
	args := make([]any, 0, len(seats)*5)
	for i, s := range seats {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?, ?, ?, ?)")
		args = append(args, s.BusID, s.SeatNumber, string(s.SeatType), s.Row, s.Column)
	}
	_, err := q.ExecContext(ctx, b.String(), args...)
	return err
}
