package app

import (
	"net/http"
	"time"

	"github.com/burakelik/cinema-ticketing/internal/domain"
	"github.com/shopspring/decimal"
)

type SeatMapResponse struct {
	ShowtimeId int             `json:"showtimeId"`
	ScreenId   int             `json:"screenId"`
	StartTime  time.Time       `json:"startTime"`
	BasePrice  decimal.Decimal `json:"basePrice"`
	SeatRows   []SeatRow       `json:"seatRows"`
}

type SeatRow struct {
	Row   string     `json:"row"`
	Seats []SeatCell `json:"seats"`
}

type SeatCell struct {
	Id         int             `json:"id"`
	Number     int             `json:"number"`
	Type       string          `json:"type"`
	Status     string          `json:"status"`
	ExtraPrice decimal.Decimal `json:"extraPrice"`
}

func (app *Application) GetSeatMapByShowtime(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	showtimeID, err := app.readIntParam(r, "showtimeId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	showtime, err := app.metadata.GetShowtime(r.Context(), showtimeID)
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	seats, err := app.metadata.GetSeatsByScreen(r.Context(), showtime.ScreenID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if len(seats) == 0 {
		logger.Warn("seat map not found for showtime", "showtime_id", showtimeID)
		app.notFoundResponse(w, r)
		return
	}

	statuses, err := app.seatStatuses(r, showtimeID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := SeatMapResponse{
		ShowtimeId: showtimeID,
		ScreenId:   showtime.ScreenID,
		StartTime:  showtime.StartTime,
		BasePrice:  showtime.BasePrice,
		SeatRows:   toSeatRows(seats, statuses),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// seatStatuses derives the per-seat cell status for a showtime. Blocked beats
// sold, sold beats locked, and everything else is available.
func (app *Application) seatStatuses(r *http.Request, showtimeID int) (map[int]domain.CellStatus, error) {
	statuses := make(map[int]domain.CellStatus)

	locks, err := app.store.SeatLocksByShowtime(r.Context(), showtimeID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for _, lock := range locks {
		if !lock.ExpiredAt(now) {
			statuses[lock.SeatID] = domain.CellLocked
		}
	}

	soldSeatIds, err := app.tickets.SoldSeatIDs(r.Context(), showtimeID, nil)
	if err != nil {
		return nil, err
	}

	for _, seatId := range soldSeatIds {
		statuses[seatId] = domain.CellSold
	}

	return statuses, nil
}

func toSeatRows(seats []domain.Seat, statuses map[int]domain.CellStatus) []SeatRow {
	// Seats are pre-sorted by Row,Number (ascending).
	// This allows us to process them in a single pass without additional sorting or mapping.

	var seatRows []SeatRow
	currentRow := SeatRow{Row: seats[0].Row}

	for _, v := range seats {
		if v.Row != currentRow.Row {
			seatRows = append(seatRows, currentRow)
			currentRow = SeatRow{Row: v.Row}
		}

		status, ok := statuses[v.ID]
		if !ok {
			status = domain.CellAvailable
		}
		if v.Blocked() {
			status = domain.CellBlocked
		}

		currentRow.Seats = append(currentRow.Seats, SeatCell{
			Id:         v.ID,
			Number:     v.Number,
			Type:       v.Type,
			Status:     string(status),
			ExtraPrice: v.ExtraPrice,
		})
	}

	seatRows = append(seatRows, currentRow)

	return seatRows
}
