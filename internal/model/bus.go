package model

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Bus represents a scheduled coach between two cities.  The layout
// parameters (TotalRows, HasSleeper) drive seat generation when the bus
// is created and are treated as immutable afterwards.
//
// Fields:
//
//	ID              – primary key identifier.
//	BusNumber       – operator facing registration / service number.
//	Source          – departure city.
//	Destination     – arrival city.
//	DepartureTime   – scheduled departure (UTC).
//	ArrivalTime     – scheduled arrival (UTC), strictly after DepartureTime.
//	TotalRows       – number of seat rows (>= 1).
//	HasSleeper      – sleeper coach (LOWER/UPPER berths) or seater coach.
//	SeaterFare      – fare for SEATER seats.
//	LowerBerthFare  – fare for LOWER berths.
//	UpperBerthFare  – fare for UPPER berths.
//	LayoutFinalized – once true the seat layout can no longer be regenerated.
type Bus struct {
	ID              uint64          // buses.id
	BusNumber       string          // buses.bus_number
	Source          string          // buses.source
	Destination     string          // buses.destination
	DepartureTime   time.Time       // buses.departure_time
	ArrivalTime     time.Time       // buses.arrival_time
	TotalRows       int             // buses.total_rows
	HasSleeper      bool            // buses.has_sleeper
	SeaterFare      decimal.Decimal // buses.seater_fare
	LowerBerthFare  decimal.Decimal // buses.lower_berth_fare
	UpperBerthFare  decimal.Decimal // buses.upper_berth_fare
	LayoutFinalized bool            // buses.layout_finalized
	CreatedAt       time.Time       // buses.created_at
}

// Seats per row for each coach type.
const (
	SleeperSeatsPerRow = 2
	SeaterSeatsPerRow  = 3
)

// TotalSeats returns the number of seats the layout of the bus produces.
func (b Bus) TotalSeats() int {
	if b.HasSleeper {
		return b.TotalRows * SleeperSeatsPerRow
	}
	return b.TotalRows * SeaterSeatsPerRow
}

// FareFor returns the bus fare that applies to a seat of the given type.
func (b Bus) FareFor(t SeatType) decimal.Decimal {
	switch t {
	case SeatLower:
		return b.LowerBerthFare
	case SeatUpper:
		return b.UpperBerthFare
	default:
		return b.SeaterFare
	}
}

// Validate checks the invariants a bus must satisfy before it is persisted.
func (b Bus) Validate() error {
	switch {
	case strings.TrimSpace(b.BusNumber) == "":
		return errors.New("bus_number is required")
	case strings.TrimSpace(b.Source) == "" || strings.TrimSpace(b.Destination) == "":
		return errors.New("source and destination are required")
	case !b.ArrivalTime.After(b.DepartureTime):
		return errors.New("arrival_time must be after departure_time")
	case b.TotalRows < 1:
		return errors.New("total_rows must be at least 1")
	case b.SeaterFare.IsNegative() || b.LowerBerthFare.IsNegative() || b.UpperBerthFare.IsNegative():
		return errors.New("fares must not be negative")
	}
	return nil
}
