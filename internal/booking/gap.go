package booking

import (
	"sort"

	"github.com/burakelik/cinema-ticketing/internal/domain"
)

// singleSeatGaps returns the ids of seats that would end up as isolated
// single free seats if the tentative pick were applied. rowSeats must hold
// the full geometry of every affected row.
//
// A position counts as a wall when its seat is blocked, sold or actively
// locked by another session (occupied), part of the pick, missing from the
// row's numbering (an aisle), or one step beyond the row's min/max seat
// number. A free seat walled on both sides is a violation.
func singleSeatGaps(rowSeats []domain.Seat, occupied, picked map[int]bool) []int {
	rows := make(map[string][]domain.Seat)
	for _, seat := range rowSeats {
		rows[seat.Row] = append(rows[seat.Row], seat)
	}

	var gaps []int

	for _, seats := range rows {
		byNumber := make(map[int]domain.Seat, len(seats))
		minNum, maxNum := seats[0].Number, seats[0].Number

		for _, seat := range seats {
			byNumber[seat.Number] = seat

			if seat.Number < minNum {
				minNum = seat.Number
			}
			if seat.Number > maxNum {
				maxNum = seat.Number
			}
		}

		wall := func(n int) bool {
			if n < minNum || n > maxNum {
				return true
			}

			seat, ok := byNumber[n]
			if !ok {
				return true
			}

			return seat.Blocked() || occupied[seat.ID] || picked[seat.ID]
		}

		for n := minNum; n <= maxNum; n++ {
			seat, ok := byNumber[n]
			if !ok {
				continue
			}

			if seat.Blocked() || occupied[seat.ID] || picked[seat.ID] {
				continue
			}

			if wall(n-1) && wall(n+1) {
				gaps = append(gaps, seat.ID)
			}
		}
	}

	sort.Ints(gaps)

	return gaps
}
