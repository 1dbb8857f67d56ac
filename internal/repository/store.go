package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/reservation"
)

// Store opens reservation transactions on MySQL.  Transactions run at
// READ COMMITTED so that the occupancy check after acquiring seat locks
// sees bookings committed while the transaction was waiting.
type Store struct {
	db       *sql.DB
	lockWait time.Duration
}

// NewStore returns a Store.  lockWait bounds how long a transaction waits
// for a row lock before failing with reservation.ErrConflict; zero keeps
// the server default.
func NewStore(db *sql.DB, lockWait time.Duration) *Store {
	return &Store{db: db, lockWait: lockWait}
}

// Begin starts a transaction.
func (s *Store) Begin(ctx context.Context) (reservation.Tx, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	if s.lockWait > 0 {
		secs := int(s.lockWait.Round(time.Second) / time.Second)
		if secs < 1 {
			secs = 1
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET SESSION innodb_lock_wait_timeout = %d", secs)); err != nil {
			_ = tx.Rollback()
			return nil, err
		}
	}
	return &storeTx{tx: tx}, nil
}

type storeTx struct {
	tx *sql.Tx
}

func (t *storeTx) Commit() error   { return translateLockErr(t.tx.Commit()) }
func (t *storeTx) Rollback() error { return t.tx.Rollback() }

func (t *storeTx) BusByID(ctx context.Context, busID uint64) (*model.Bus, error) {
	return getBus(ctx, t.tx, busID)
}

// LockSeats takes exclusive row locks in ascending id order so that
// overlapping requests cannot deadlock on each other.
func (t *storeTx) LockSeats(ctx context.Context, busID uint64, seatIDs []uint64) ([]model.Seat, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	in, args := placeholders(seatIDs)
	q := `SELECT ` + seatColumns + ` FROM seats s
	      WHERE s.bus_id = ? AND s.id IN (` + in + `)
	      ORDER BY s.id
	      FOR UPDATE`
	rows, err := t.tx.QueryContext(ctx, q, append([]any{busID}, args...)...)
	if err != nil {
		return nil, translateLockErr(err)
	}
	seats, err := scanSeats(rows)
	return seats, translateLockErr(err)
}

func (t *storeTx) ConfirmedSeats(ctx context.Context, seatIDs []uint64) ([]model.Seat, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	in, args := placeholders(seatIDs)
	q := `SELECT DISTINCT ` + seatColumns + `
	      FROM booked_seats bs
	      JOIN bookings b ON b.id = bs.booking_id
	      JOIN seats s ON s.id = bs.seat_id
	      WHERE b.status = 'CONFIRMED' AND bs.seat_id IN (` + in + `)
	      ORDER BY s.id`
	rows, err := t.tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, translateLockErr(err)
	}
	return scanSeats(rows)
}

func (t *storeTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	if b.BookingDate.IsZero() {
		b.BookingDate = time.Now().UTC().Truncate(time.Second)
	}
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO bookings (user_id, bus_id, booking_date, status, total_fare) VALUES (?, ?, ?, ?, ?)`,
		b.UserID, b.BusID, b.BookingDate, string(b.Status), b.TotalFare.StringFixed(2))
	if err != nil {
		return translateLockErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// InsertBookedSeats writes all links in one statement and reads them back;
// auto-increment ids of a multi-row insert are not guaranteed contiguous.
func (t *storeTx) InsertBookedSeats(ctx context.Context, bookingID uint64, seats []model.Seat) ([]model.BookedSeat, error) {
	if len(seats) == 0 {
		return []model.BookedSeat{}, nil
	}
	q := `INSERT INTO booked_seats (booking_id, seat_id) VALUES `
	args := make([]any, 0, len(seats)*2)
	for i, s := range seats {
		if i > 0 {
			q += ","
		}
		q += "(?, ?)"
		args = append(args, bookingID, s.ID)
	}
	if _, err := t.tx.ExecContext(ctx, q, args...); err != nil {
		return nil, translateLockErr(err)
	}
	return t.BookedSeats(ctx, bookingID)
}

func (t *storeTx) LockBooking(ctx context.Context, bookingID, userID uint64) (*model.Booking, error) {
	var b model.Booking
	err := t.tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ? AND user_id = ? FOR UPDATE`,
		bookingID, userID,
	).Scan(&b.ID, &b.UserID, &b.BusID, &b.BookingDate, &b.Status, &b.TotalFare)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reservation.ErrBookingNotFound
		}
		return nil, translateLockErr(err)
	}
	return &b, nil
}

func (t *storeTx) BookedSeats(ctx context.Context, bookingID uint64) ([]model.BookedSeat, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT bs.id, bs.booking_id, bs.seat_id, s.seat_number, s.seat_type
		 FROM booked_seats bs JOIN seats s ON s.id = bs.seat_id
		 WHERE bs.booking_id = ?
		 ORDER BY s.seat_number`, bookingID)
	if err != nil {
		return nil, translateLockErr(err)
	}
	return scanBookedSeats(rows)
}

func (t *storeTx) SetBookingStatus(ctx context.Context, bookingID uint64, status model.BookingStatus) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ?`, string(status), bookingID)
	return translateLockErr(err)
}
