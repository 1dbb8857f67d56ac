package reservation

import (
	"context"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// Availability derives seat occupancy from persisted bookings.  A seat is
// booked iff a booked_seats row links it to a CONFIRMED booking.
type Availability struct {
	seats SeatReader
}

func NewAvailability(seats SeatReader) *Availability {
	return &Availability{seats: seats}
}

// SeatMap returns every seat of the bus with its booked flag and fare.
func (a *Availability) SeatMap(ctx context.Context, busID uint64) ([]model.SeatStatus, error) {
	bus, err := a.seats.BusByID(ctx, busID)
	if err != nil {
		return nil, err
	}
	seats, err := a.seats.SeatsWithStatus(ctx, busID)
	if err != nil {
		return nil, err
	}
	for i := range seats {
		seats[i].Fare = bus.FareFor(seats[i].SeatType)
	}
	return seats, nil
}

// AvailableCounts returns total_seats − confirmed booked seats for each bus.
func (a *Availability) AvailableCounts(ctx context.Context, buses []model.Bus) (map[uint64]int, error) {
	ids := make([]uint64, 0, len(buses))
	for _, b := range buses {
		ids = append(ids, b.ID)
	}
	confirmed, err := a.seats.ConfirmedCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uint64]int, len(buses))
	for _, b := range buses {
		out[b.ID] = b.TotalSeats() - confirmed[b.ID]
	}
	return out, nil
}

// AvailableCount is AvailableCounts for a single bus.
func (a *Availability) AvailableCount(ctx context.Context, bus model.Bus) (int, error) {
	counts, err := a.AvailableCounts(ctx, []model.Bus{bus})
	if err != nil {
		return 0, err
	}
	return counts[bus.ID], nil
}
