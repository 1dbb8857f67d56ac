package model

import "github.com/shopspring/decimal"

// SeatType classifies a seat.  Sleeper coaches carry LOWER and UPPER
// berths, seater coaches only SEATER seats.
type SeatType string

const (
	SeatSeater SeatType = "SEATER"
	SeatLower  SeatType = "LOWER"
	SeatUpper  SeatType = "UPPER"
)

// Seat describes an individually bookable seat on a bus.  Seats are
// created in bulk right after their bus and are never updated; they are
// removed only when the bus is deleted or its layout regenerated.
//
// Fields:
//
//	ID         – primary key identifier.
//	BusID      – bus to which this seat belongs.
//	SeatNumber – sequential number, unique within the bus (1-based).
//	SeatType   – SEATER, LOWER or UPPER.
//	Row        – row index (1-based).
//	Column     – column label: A, B, C for seaters, L or U for berths.
type Seat struct {
	ID         uint64   // seats.id
	BusID      uint64   // seats.bus_id
	SeatNumber int      // seats.seat_number
	SeatType   SeatType // seats.seat_type
	Row        int      // seats.row_index
	Column     string   // seats.column_label
}

// SeatStatus is a seat together with the values derived from the
// current booking state: whether a CONFIRMED booking holds it and the
// fare its bus charges for it.
type SeatStatus struct {
	Seat
	IsBooked bool
	Fare     decimal.Decimal
}
