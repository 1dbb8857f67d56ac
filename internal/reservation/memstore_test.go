package reservation

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/bus-seat-reservation/internal/layout"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/queue"
)

// memStore is an in-memory Store and SeatReader.  Seat and booking locks
// are real mutexes held until commit or rollback, mirroring row locks.
type memStore struct {
	mu           sync.Mutex
	buses        map[uint64]model.Bus
	seats        map[uint64]model.Seat
	bookings     map[uint64]model.Booking
	booked       []model.BookedSeat
	seatLocks    map[uint64]*sync.Mutex
	bookingLocks map[uint64]*sync.Mutex
	nextID       uint64
	failCommit   bool
}

func newMemStore() *memStore {
	return &memStore{
		buses:        map[uint64]model.Bus{},
		seats:        map[uint64]model.Seat{},
		bookings:     map[uint64]model.Booking{},
		seatLocks:    map[uint64]*sync.Mutex{},
		bookingLocks: map[uint64]*sync.Mutex{},
	}
}

func (s *memStore) id() uint64 {
	s.nextID++
	return s.nextID
}

// addBus stores the bus with its generated layout and returns it with
// seat ids assigned.
func (s *memStore) addBus(rows int, sleeper bool, seater, lower, upper string) (model.Bus, []model.Seat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dep := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	b := model.Bus{
		ID: s.id(), BusNumber: "BUS", Source: "A", Destination: "B",
		DepartureTime: dep, ArrivalTime: dep.Add(6 * time.Hour),
		TotalRows: rows, HasSleeper: sleeper,
		SeaterFare:     decimal.RequireFromString(seater),
		LowerBerthFare: decimal.RequireFromString(lower),
		UpperBerthFare: decimal.RequireFromString(upper),
	}
	s.buses[b.ID] = b
	seats := layout.Generate(b.ID, rows, sleeper)
	for i := range seats {
		seats[i].ID = s.id()
		s.seats[seats[i].ID] = seats[i]
	}
	return b, seats
}

func (s *memStore) confirmedHolders(seatID uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, bs := range s.booked {
		if bs.SeatID == seatID && s.bookings[bs.BookingID].Status == model.BookingConfirmed {
			n++
		}
	}
	return n
}

func (s *memStore) bookingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

func (s *memStore) lockFor(m map[uint64]*sync.Mutex, id uint64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := m[id]
	if !ok {
		l = &sync.Mutex{}
		m[id] = l
	}
	return l
}

func (s *memStore) Begin(context.Context) (Tx, error) {
	return &memTx{s: s, status: map[uint64]model.BookingStatus{}}, nil
}

// SeatReader

func (s *memStore) BusByID(_ context.Context, busID uint64) (*model.Bus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buses[busID]
	if !ok {
		return nil, ErrBusNotFound
	}
	return &b, nil
}

func (s *memStore) SeatsWithStatus(_ context.Context, busID uint64) ([]model.SeatStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	taken := map[uint64]bool{}
	for _, bs := range s.booked {
		if s.bookings[bs.BookingID].Status == model.BookingConfirmed {
			taken[bs.SeatID] = true
		}
	}
	out := []model.SeatStatus{}
	for _, seat := range s.seats {
		if seat.BusID == busID {
			out = append(out, model.SeatStatus{Seat: seat, IsBooked: taken[seat.ID]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatNumber < out[j].SeatNumber })
	return out, nil
}

func (s *memStore) ConfirmedCounts(_ context.Context, busIDs []uint64) (map[uint64]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := map[uint64]bool{}
	for _, id := range busIDs {
		want[id] = true
	}
	out := map[uint64]int{}
	for _, bs := range s.booked {
		seat := s.seats[bs.SeatID]
		if want[seat.BusID] && s.bookings[bs.BookingID].Status == model.BookingConfirmed {
			out[seat.BusID]++
		}
	}
	return out, nil
}

type memTx struct {
	s        *memStore
	held     []*sync.Mutex
	bookings []model.Booking
	booked   []model.BookedSeat
	status   map[uint64]model.BookingStatus
	done     bool
}

func (t *memTx) release() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i].Unlock()
	}
	t.held = nil
	t.done = true
}

func (t *memTx) Commit() error {
	if t.done {
		return errors.New("tx already finished")
	}
	defer t.release()
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.failCommit {
		return errors.New("commit failed")
	}
	for _, b := range t.bookings {
		t.s.bookings[b.ID] = b
	}
	t.s.booked = append(t.s.booked, t.booked...)
	for id, st := range t.status {
		b := t.s.bookings[id]
		b.Status = st
		t.s.bookings[id] = b
	}
	return nil
}

func (t *memTx) Rollback() error {
	if !t.done {
		t.release()
	}
	return nil
}

func (t *memTx) BusByID(ctx context.Context, busID uint64) (*model.Bus, error) {
	return t.s.BusByID(ctx, busID)
}

func (t *memTx) LockSeats(_ context.Context, busID uint64, seatIDs []uint64) ([]model.Seat, error) {
	ids := append([]uint64(nil), seatIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := []model.Seat{}
	for _, id := range ids {
		t.s.mu.Lock()
		seat, ok := t.s.seats[id]
		t.s.mu.Unlock()
		if !ok || seat.BusID != busID {
			continue
		}
		l := t.s.lockFor(t.s.seatLocks, id)
		l.Lock()
		t.held = append(t.held, l)
		out = append(out, seat)
	}
	return out, nil
}

func (t *memTx) ConfirmedSeats(_ context.Context, seatIDs []uint64) ([]model.Seat, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	want := map[uint64]bool{}
	for _, id := range seatIDs {
		want[id] = true
	}
	out := []model.Seat{}
	for _, bs := range t.s.booked {
		if want[bs.SeatID] && t.s.bookings[bs.BookingID].Status == model.BookingConfirmed {
			out = append(out, t.s.seats[bs.SeatID])
		}
	}
	return out, nil
}

func (t *memTx) InsertBooking(_ context.Context, b *model.Booking) error {
	t.s.mu.Lock()
	b.ID = t.s.id()
	t.s.mu.Unlock()
	b.BookingDate = time.Now().UTC()
	t.bookings = append(t.bookings, *b)
	return nil
}

func (t *memTx) InsertBookedSeats(_ context.Context, bookingID uint64, seats []model.Seat) ([]model.BookedSeat, error) {
	out := make([]model.BookedSeat, 0, len(seats))
	for _, seat := range seats {
		t.s.mu.Lock()
		id := t.s.id()
		t.s.mu.Unlock()
		out = append(out, model.BookedSeat{ID: id, BookingID: bookingID, SeatID: seat.ID, SeatNumber: seat.SeatNumber, SeatType: seat.SeatType})
	}
	t.booked = append(t.booked, out...)
	return out, nil
}

func (t *memTx) LockBooking(_ context.Context, bookingID, userID uint64) (*model.Booking, error) {
	l := t.s.lockFor(t.s.bookingLocks, bookingID)
	l.Lock()
	t.held = append(t.held, l)
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	b, ok := t.s.bookings[bookingID]
	if !ok || b.UserID != userID {
		return nil, ErrBookingNotFound
	}
	return &b, nil
}

func (t *memTx) BookedSeats(_ context.Context, bookingID uint64) ([]model.BookedSeat, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	out := []model.BookedSeat{}
	for _, bs := range append(append([]model.BookedSeat(nil), t.s.booked...), t.booked...) {
		if bs.BookingID == bookingID {
			out = append(out, bs)
		}
	}
	return out, nil
}

func (t *memTx) SetBookingStatus(_ context.Context, bookingID uint64, status model.BookingStatus) error {
	t.status[bookingID] = status
	return nil
}

// countingNotifier records Notify calls per bus.
type countingNotifier struct {
	mu     sync.Mutex
	counts map[uint64]int
}

func newCountingNotifier() *countingNotifier {
	return &countingNotifier{counts: map[uint64]int{}}
}

func (n *countingNotifier) Notify(busID uint64) {
	n.mu.Lock()
	n.counts[busID]++
	n.mu.Unlock()
}

func (n *countingNotifier) count(busID uint64) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.counts[busID]
}

// chanPublisher forwards published events to a channel.
type chanPublisher chan queue.BookingEvent

func (c chanPublisher) Publish(_ context.Context, ev queue.BookingEvent) error {
	c <- ev
	return nil
}
