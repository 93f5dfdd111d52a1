package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BookingStore is the transactional store for booking sessions and seat
// locks. WithTx runs fn inside a single serializable transaction; the lock
// engine performs every read-then-decide-then-write step through the
// transaction handle so that a seat-lock row and the owning session's item
// list can never diverge.
type BookingStore interface {
	CreateSession(ctx context.Context, session *BookingSession) error
	GetSession(ctx context.Context, sessionID uuid.UUID) (*BookingSession, error)
	SeatLocksByShowtime(ctx context.Context, showtimeID int) ([]SeatLock, error)
	WithTx(ctx context.Context, fn func(tx BookingTx) error) error
}

// BookingTx is the set of reads and writes available inside one serializable
// transaction. Implementations must translate store-level conflicts
// (serialization failures, deadlocks, unique-constraint violations on the
// lock key) into ErrSeatConflict so callers see a single Conflict outcome.
type BookingTx interface {
	GetSessionForUpdate(ctx context.Context, sessionID uuid.UUID) (*BookingSession, error)
	SeatLocksByShowtime(ctx context.Context, showtimeID int) ([]SeatLock, error)
	SoldSeatIDs(ctx context.Context, showtimeID int, seatIDs []int) ([]int, error)

	// UpsertSeatLocks inserts a lock row per seat, extending rows already
	// owned by sessionID and reclaiming rows whose expiry has passed. It
	// fails with ErrSeatConflict when any seat is actively held by another
	// session.
	UpsertSeatLocks(ctx context.Context, showtimeID int, seatIDs []int, sessionID uuid.UUID, until time.Time) error

	// DeleteSeatLocks removes the lock rows in seatIDs owned by sessionID
	// and returns the seat ids actually deleted. Ids not owned or not
	// present are silently ignored.
	DeleteSeatLocks(ctx context.Context, showtimeID int, seatIDs []int, sessionID uuid.UUID) ([]int, error)

	AddSessionSeats(ctx context.Context, sessionID uuid.UUID, seatIDs []int) error
	RemoveSessionSeats(ctx context.Context, sessionID uuid.UUID, seatIDs []int) error
	ReplaceSessionCombos(ctx context.Context, sessionID uuid.UUID, combos []ComboItem) error

	// UpdateSession persists state, total price and expiry from the given
	// session, increments the version counter and refreshes the session's
	// Version and UpdatedAt fields in place.
	UpdateSession(ctx context.Context, session *BookingSession) error
}

// SweepStore is the narrow store surface the expiration sweeper needs. Each
// method is a single bulk statement so a sweep step is atomic on its own.
type SweepStore interface {
	DeleteExpiredSeatLocks(ctx context.Context, before time.Time) (int64, error)
	CancelExpiredDraftSessions(ctx context.Context, before time.Time) (int64, error)
	PurgeCanceledSessions(ctx context.Context, before time.Time) (int64, error)
}
