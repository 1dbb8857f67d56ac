// Package view maps persisted entities to their JSON representations.
// Money is always rendered as a string with two decimals.
package view

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// MessageSeatStatus is the type tag of live seat map messages.
const MessageSeatStatus = "seat_status"

type Bus struct {
	ID                  uint64    `json:"id"`
	BusNumber           string    `json:"bus_number"`
	Source              string    `json:"source"`
	Destination         string    `json:"destination"`
	DepartureTime       time.Time `json:"departure_time"`
	ArrivalTime         time.Time `json:"arrival_time"`
	TotalRows           int       `json:"total_rows"`
	HasSleeper          bool      `json:"has_sleeper"`
	SeaterFare          string    `json:"seater_fare"`
	LowerBerthFare      string    `json:"lower_berth_fare"`
	UpperBerthFare      string    `json:"upper_berth_fare"`
	AvailableSeatsCount int       `json:"available_seats_count"`
}

type Seat struct {
	ID         uint64 `json:"id"`
	SeatNumber int    `json:"seat_number"`
	SeatType   string `json:"seat_type"`
	Row        int    `json:"row"`
	Column     string `json:"column"`
	IsBooked   bool   `json:"is_booked"`
	Fare       string `json:"fare"`
}

type User struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type BookedSeat struct {
	ID         uint64 `json:"id"`
	SeatNumber int    `json:"seat_number"`
	SeatType   string `json:"seat_type"`
}

type Booking struct {
	ID          uint64       `json:"id"`
	User        User         `json:"user"`
	Bus         uint64       `json:"bus"`
	BookingDate time.Time    `json:"booking_date"`
	Status      string       `json:"status"`
	TotalFare   string       `json:"total_fare"`
	BookedSeats []BookedSeat `json:"booked_seats"`
}

// SeatStatusMessage is pushed to live subscribers: always a full snapshot.
type SeatStatusMessage struct {
	Type  string `json:"type"`
	Seats []Seat `json:"seats"`
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func NewBus(b model.Bus, available int) Bus {
	return Bus{
		ID:                  b.ID,
		BusNumber:           b.BusNumber,
		Source:              b.Source,
		Destination:         b.Destination,
		DepartureTime:       b.DepartureTime.UTC(),
		ArrivalTime:         b.ArrivalTime.UTC(),
		TotalRows:           b.TotalRows,
		HasSleeper:          b.HasSleeper,
		SeaterFare:          money(b.SeaterFare),
		LowerBerthFare:      money(b.LowerBerthFare),
		UpperBerthFare:      money(b.UpperBerthFare),
		AvailableSeatsCount: available,
	}
}

// NewBuses maps buses using the available counts keyed by bus id.
func NewBuses(buses []model.Bus, available map[uint64]int) []Bus {
	out := make([]Bus, 0, len(buses))
	for _, b := range buses {
		out = append(out, NewBus(b, available[b.ID]))
	}
	return out
}

func NewSeat(s model.SeatStatus) Seat {
	return Seat{
		ID:         s.ID,
		SeatNumber: s.SeatNumber,
		SeatType:   string(s.SeatType),
		Row:        s.Row,
		Column:     s.Column,
		IsBooked:   s.IsBooked,
		Fare:       money(s.Fare),
	}
}

func NewSeats(seats []model.SeatStatus) []Seat {
	out := make([]Seat, 0, len(seats))
	for _, s := range seats {
		out = append(out, NewSeat(s))
	}
	return out
}

func NewUser(u model.User) User {
	return User{ID: u.ID, Username: u.Username, Email: u.Email}
}

func NewBooking(b model.Booking, owner model.User) Booking {
	seats := make([]BookedSeat, 0, len(b.Seats))
	for _, s := range b.Seats {
		seats = append(seats, BookedSeat{ID: s.ID, SeatNumber: s.SeatNumber, SeatType: string(s.SeatType)})
	}
	return Booking{
		ID:          b.ID,
		User:        NewUser(owner),
		Bus:         b.BusID,
		BookingDate: b.BookingDate.UTC(),
		Status:      string(b.Status),
		TotalFare:   money(b.TotalFare),
		BookedSeats: seats,
	}
}

// NewBookings maps bookings whose owners are looked up in users.
func NewBookings(bookings []model.Booking, users map[uint64]model.User) []Booking {
	out := make([]Booking, 0, len(bookings))
	for _, b := range bookings {
		u, ok := users[b.UserID]
		if !ok {
			u = model.User{ID: b.UserID}
		}
		out = append(out, NewBooking(b, u))
	}
	return out
}

func NewSeatStatusMessage(seats []model.SeatStatus) SeatStatusMessage {
	return SeatStatusMessage{Type: MessageSeatStatus, Seats: NewSeats(seats)}
}
