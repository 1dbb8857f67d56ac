// Package layout derives the seat map of a bus from its configuration.
package layout

import "github.com/iliyamo/bus-seat-reservation/internal/model"

var seaterColumns = []string{"A", "B", "C"}

// Generate enumerates the seats of a bus with the given number of rows.
// Sleeper coaches get a LOWER (column L) and an UPPER (column U) berth per
// row; seater coaches get three SEATER seats in columns A, B and C.  Seat
// numbers are sequential from 1 in row order.  The returned seats carry
// the given bus id and no seat id.
func Generate(busID uint64, totalRows int, sleeper bool) []model.Seat {
	if totalRows < 1 {
		return nil
	}
	perRow := model.SeaterSeatsPerRow
	if sleeper {
		perRow = model.SleeperSeatsPerRow
	}
	seats := make([]model.Seat, 0, totalRows*perRow)
	number := 1
	add := func(row int, t model.SeatType, col string) {
		seats = append(seats, model.Seat{
			BusID:      busID,
			SeatNumber: number,
			SeatType:   t,
			Row:        row,
			Column:     col,
		})
		number++
	}
	for row := 1; row <= totalRows; row++ {
		if sleeper {
			add(row, model.SeatLower, "L")
			add(row, model.SeatUpper, "U")
			continue
		}
		for _, col := range seaterColumns {
			add(row, model.SeatSeater, col)
		}
	}
	return seats
}
