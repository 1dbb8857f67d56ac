package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/bus-seat-reservation/internal/layout"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/reservation"
)

const busColumns = `id, bus_number, source, destination, departure_time, arrival_time,
       total_rows, has_sleeper, seater_fare, lower_berth_fare, upper_berth_fare,
       layout_finalized, created_at`

// BusRepo provides access to buses and owns seat layout generation.  A
// bus and its seats are always written in the same transaction.
type BusRepo struct {
	db *sql.DB
}

// NewBusRepo returns a new BusRepo bound to the given database.
func NewBusRepo(db *sql.DB) *BusRepo { return &BusRepo{db: db} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBus(row rowScanner) (model.Bus, error) {
	var b model.Bus
	err := row.Scan(
		&b.ID, &b.BusNumber, &b.Source, &b.Destination, &b.DepartureTime, &b.ArrivalTime,
		&b.TotalRows, &b.HasSleeper, &b.SeaterFare, &b.LowerBerthFare, &b.UpperBerthFare,
		&b.LayoutFinalized, &b.CreatedAt,
	)
	return b, err
}

// getBus loads a bus through q, returning reservation.ErrBusNotFound when
// no row matches.
func getBus(ctx context.Context, q queryer, id uint64) (*model.Bus, error) {
	b, err := scanBus(q.QueryRowContext(ctx, `SELECT `+busColumns+` FROM buses WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reservation.ErrBusNotFound
		}
		return nil, translateLockErr(err)
	}
	return &b, nil
}

// GetByID returns the bus with the given id or reservation.ErrBusNotFound.
func (r *BusRepo) GetByID(ctx context.Context, id uint64) (*model.Bus, error) {
	return getBus(ctx, r.db, id)
}

// List returns all buses ordered by departure time.
func (r *BusRepo) List(ctx context.Context) ([]model.Bus, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+busColumns+` FROM buses ORDER BY departure_time, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	buses := make([]model.Bus, 0)
	for rows.Next() {
		b, err := scanBus(rows)
		if err != nil {
			return nil, err
		}
		buses = append(buses, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return buses, nil
}

// CreateWithLayout inserts the bus and its generated seats in a single
// transaction.  On success b.ID is populated and the generated seats are
// returned.
func (r *BusRepo) CreateWithLayout(ctx context.Context, b *model.Bus) ([]model.Seat, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `INSERT INTO buses (bus_number, source, destination, departure_time, arrival_time,
	                              total_rows, has_sleeper, seater_fare, lower_berth_fare, upper_berth_fare)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		b.BusNumber, b.Source, b.Destination, b.DepartureTime.UTC(), b.ArrivalTime.UTC(),
		b.TotalRows, b.HasSleeper, b.SeaterFare, b.LowerBerthFare, b.UpperBerthFare,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	b.ID = uint64(id)

	seats := layout.Generate(b.ID, b.TotalRows, b.HasSleeper)
	if err := createSeatsBulkTx(ctx, tx, seats); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return seats, nil
}

// RegenerateLayout replaces every seat of the bus with a freshly generated
// layout.  Regeneration would cascade-delete booked seats, so it is refused
// with ErrLayoutFinalized once the layout is finalized or any booking for
// the bus exists; in the latter case the layout is finalized as a side
// effect.  All seat rows are locked before bookings are inspected so an
// in-flight reservation either commits first (and is seen) or waits and
// then finds its seats gone.
func (r *BusRepo) RegenerateLayout(ctx context.Context, busID uint64) ([]model.Seat, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var (
		finalized bool
		totalRows int
		sleeper   bool
	)
	err = tx.QueryRowContext(ctx,
		`SELECT layout_finalized, total_rows, has_sleeper FROM buses WHERE id = ? FOR UPDATE`, busID,
	).Scan(&finalized, &totalRows, &sleeper)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reservation.ErrBusNotFound
		}
		return nil, translateLockErr(err)
	}
	if finalized {
		return nil, ErrLayoutFinalized
	}

	lockRows, err := tx.QueryContext(ctx, `SELECT id FROM seats WHERE bus_id = ? FOR UPDATE`, busID)
	if err != nil {
		return nil, translateLockErr(err)
	}
	for lockRows.Next() {
	}
	if err := lockRows.Close(); err != nil {
		return nil, translateLockErr(err)
	}
	if err := lockRows.Err(); err != nil {
		return nil, translateLockErr(err)
	}

	var booked bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM bookings WHERE bus_id = ?)`, busID,
	).Scan(&booked); err != nil {
		return nil, err
	}
	if booked {
		if _, err := tx.ExecContext(ctx, `UPDATE buses SET layout_finalized = 1 WHERE id = ?`, busID); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		committed = true
		return nil, ErrLayoutFinalized
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM seats WHERE bus_id = ?`, busID); err != nil {
		return nil, err
	}
	seats := layout.Generate(busID, totalRows, sleeper)
	if err := createSeatsBulkTx(ctx, tx, seats); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return seats, nil
}

// FinalizeLayout marks the layout of a bus as final.  It is idempotent.
func (r *BusRepo) FinalizeLayout(ctx context.Context, busID uint64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE buses SET layout_finalized = 1 WHERE id = ?`, busID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 affected rows when the value is unchanged, so
		// tell "already final" apart from "missing".
		if _, err := r.GetByID(ctx, busID); err != nil {
			return err
		}
	}
	return nil
}
