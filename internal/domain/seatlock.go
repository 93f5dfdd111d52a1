package domain

import (
	"time"

	"github.com/google/uuid"
)

// SeatLock is a temporary, expiring reservation of one seat for one showtime
// by one booking session. At most one row exists per (showtime, seat); a row
// whose LockedUntil has passed is logically expired and may be reclaimed by
// any session as if it did not exist, whether or not the sweeper has
// physically deleted it yet.
type SeatLock struct {
	ShowtimeID  int
	SeatID      int
	SessionID   uuid.UUID
	LockedUntil time.Time
	CreatedAt   time.Time
}

func (l SeatLock) ExpiredAt(now time.Time) bool {
	return !l.LockedUntil.After(now)
}

func (l SeatLock) HeldBy(sessionID uuid.UUID, now time.Time) bool {
	return l.SessionID == sessionID && !l.ExpiredAt(now)
}
