package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/queue"
)

const eventPublishTimeout = 5 * time.Second

// Service runs the reservation and cancellation engines.  The notifier is
// injected once at process start; events may be nil when no broker is
// configured.
type Service struct {
	store    Store
	notifier Notifier
	events   EventPublisher
	log      *zap.Logger
}

// NewService constructs a Service.  store and notifier must be non-nil.
func NewService(store Store, notifier Notifier, events EventPublisher, log *zap.Logger) *Service {
	if store == nil || notifier == nil {
		panic("nil dependency passed to reservation.NewService")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, notifier: notifier, events: events, log: log}
}

// Reserve books the given seats of a bus for a user.  Either a CONFIRMED
// booking holding every requested seat is committed, or nothing is
// persisted.  Duplicate seat ids are collapsed.
func (s *Service) Reserve(ctx context.Context, userID, busID uint64, seatIDs []uint64) (*model.Booking, error) {
	ids := uniqueIDs(seatIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: seat_ids must contain at least one seat id", ErrValidation)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin reservation: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	bus, err := tx.BusByID(ctx, busID)
	if err != nil {
		return nil, err
	}
	locked, err := tx.LockSeats(ctx, busID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]model.Seat, len(locked))
	for _, seat := range locked {
		byID[seat.ID] = seat
	}
	seats := make([]model.Seat, 0, len(ids))
	total := decimal.Zero
	for _, id := range ids {
		seat, ok := byID[id]
		if !ok {
			return nil, &SeatNotFoundError{SeatID: id}
		}
		seats = append(seats, seat)
		total = total.Add(bus.FareFor(seat.SeatType))
	}

	taken, err := tx.ConfirmedSeats(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(taken) > 0 {
		takenIDs := make(map[uint64]struct{}, len(taken))
		for _, t := range taken {
			takenIDs[t.ID] = struct{}{}
		}
		for _, seat := range seats {
			if _, ok := takenIDs[seat.ID]; ok {
				return nil, &SeatBookedError{SeatID: seat.ID, SeatNumber: seat.SeatNumber}
			}
		}
	}

	booking := &model.Booking{
		UserID:    userID,
		BusID:     busID,
		Status:    model.BookingConfirmed,
		TotalFare: total,
	}
	if err := tx.InsertBooking(ctx, booking); err != nil {
		return nil, err
	}
	booked, err := tx.InsertBookedSeats(ctx, booking.ID, seats)
	if err != nil {
		return nil, err
	}
	booking.Seats = booked

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reservation: %w", err)
	}
	committed = true

	s.log.Info("booking confirmed",
		zap.Uint64("booking_id", booking.ID),
		zap.Uint64("user_id", userID),
		zap.Uint64("bus_id", busID),
		zap.Int("seats", len(seats)),
		zap.String("total_fare", total.StringFixed(2)),
	)
	s.afterCommit(bus, booking, queue.EventBookingConfirmed)
	return booking, nil
}

// Cancel moves a CONFIRMED booking owned by userID to CANCELLED.  The
// booked seat rows are kept; they stop counting as occupied.  Cancelling
// twice fails with ErrAlreadyCancelled and changes nothing.
func (s *Service) Cancel(ctx context.Context, userID, bookingID uint64) (*model.Booking, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin cancellation: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	booking, err := tx.LockBooking(ctx, bookingID, userID)
	if err != nil {
		return nil, err
	}
	if booking.Status == model.BookingCancelled {
		return nil, ErrAlreadyCancelled
	}
	if err := tx.SetBookingStatus(ctx, booking.ID, model.BookingCancelled); err != nil {
		return nil, err
	}
	booking.Status = model.BookingCancelled
	if booking.Seats, err = tx.BookedSeats(ctx, booking.ID); err != nil {
		return nil, err
	}
	bus, err := tx.BusByID(ctx, booking.BusID)
	if err != nil && !errors.Is(err, ErrBusNotFound) {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit cancellation: %w", err)
	}
	committed = true

	s.log.Info("booking cancelled",
		zap.Uint64("booking_id", booking.ID),
		zap.Uint64("user_id", userID),
		zap.Uint64("bus_id", booking.BusID),
	)
	if bus == nil {
		bus = &model.Bus{ID: booking.BusID}
	}
	s.afterCommit(bus, booking, queue.EventBookingCancelled)
	return booking, nil
}

// afterCommit signals subscribers of the bus and publishes the booking
// event.  Neither may fail the request that triggered it.
func (s *Service) afterCommit(bus *model.Bus, b *model.Booking, eventType string) {
	s.notifier.Notify(b.BusID)
	if s.events == nil {
		return
	}
	ev := queue.NewBookingEvent(eventType, b.ID, b.UserID, b.BusID, bus.BusNumber, seatNumbers(b.Seats), b.TotalFare.StringFixed(2))
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
		defer cancel()
		if err := s.events.Publish(ctx, ev); err != nil {
			s.log.Warn("publish booking event failed",
				zap.String("event", eventType),
				zap.Uint64("booking_id", b.ID),
				zap.Error(err),
			)
		}
	}()
}

func seatNumbers(seats []model.BookedSeat) []int {
	out := make([]int, 0, len(seats))
	for _, s := range seats {
		out = append(out, s.SeatNumber)
	}
	return out
}

// uniqueIDs drops repeated ids while keeping request order.  Zero is kept
// so it fails lookup like any other unknown id.
func uniqueIDs(ids []uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	seen := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
