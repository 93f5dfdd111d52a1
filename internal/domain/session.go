package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SessionState string

const (
	SessionStateDraft          SessionState = "DRAFT"
	SessionStatePendingPayment SessionState = "PENDING_PAYMENT"
	SessionStateCompleted      SessionState = "COMPLETED"
	SessionStateCanceled       SessionState = "CANCELED"
)

// BookingSession is the server-side cart tracking a user's in-progress
// seat/combo selection before payment. Seat locks are always scoped to one
// session, and the session's seat-id list must equal the set of lock rows
// the session holds for its showtime. That equality is maintained by the
// lock engine inside a single transaction, never by the caller.
type BookingSession struct {
	ID         uuid.UUID
	UserID     *int
	ShowtimeID int
	State      SessionState
	SeatIDs    []int
	Combos     []ComboItem
	TotalPrice decimal.Decimal
	ExpiresAt  time.Time
	Version    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ComboItem is a concession combo attached to the session's item list.
// Combo pricing lives outside this core; only the selection is tracked here.
type ComboItem struct {
	ComboID  int
	Quantity int
}

func (s *BookingSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

func (s *BookingSession) HoldsSeat(seatID int) bool {
	for _, id := range s.SeatIDs {
		if id == seatID {
			return true
		}
	}

	return false
}
