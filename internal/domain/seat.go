package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type SeatStatus string

const (
	SeatStatusAvailable SeatStatus = "Available"
	SeatStatusBlocked   SeatStatus = "Blocked"
)

// Seat geometry is owned by the cinema administration side of the system and
// is read-only for this core.
type Seat struct {
	ID         int
	ScreenID   int
	Row        string
	Number     int
	Type       string
	Status     SeatStatus
	ExtraPrice decimal.Decimal
}

func (s Seat) Blocked() bool {
	return s.Status == SeatStatusBlocked
}

type Showtime struct {
	ID        int
	ScreenID  int
	StartTime time.Time
	BasePrice decimal.Decimal
}

// Bookable reports whether the showtime is still open for new seat picks.
func (s *Showtime) Bookable(now time.Time) bool {
	return s.StartTime.After(now)
}

// CellStatus is the derived, non-persisted state of one seat cell for one
// showtime, in precedence order: Blocked beats Sold beats Locked.
type CellStatus string

const (
	CellAvailable CellStatus = "AVAILABLE"
	CellLocked    CellStatus = "LOCKED"
	CellSold      CellStatus = "SOLD"
	CellBlocked   CellStatus = "BLOCKED"
)

// MetadataReader exposes the seat/showtime metadata store. Implementations
// never see writes from this core.
type MetadataReader interface {
	GetShowtime(ctx context.Context, showtimeID int) (*Showtime, error)
	GetSeatsByIDs(ctx context.Context, seatIDs []int) ([]Seat, error)
	GetSeatsByScreenAndRows(ctx context.Context, screenID int, rows []string) ([]Seat, error)
	GetSeatsByScreen(ctx context.Context, screenID int) ([]Seat, error)
}

// TicketReader reports which seats of a showtime are sold, i.e. carry a
// valid or used ticket. A nil or empty seatIDs slice means all seats.
type TicketReader interface {
	SoldSeatIDs(ctx context.Context, showtimeID int, seatIDs []int) ([]int, error)
}
