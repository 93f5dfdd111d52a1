package domain

import (
	"context"
	"time"
)

type SeatEventType string

const (
	SeatEventLocked   SeatEventType = "LOCKED"
	SeatEventReleased SeatEventType = "RELEASED"
)

// SeatEvent notifies live seat-map viewers of a Locked/Released transition.
// Delivery is best-effort; the durable lock state is the source of truth.
type SeatEvent struct {
	ShowtimeID  int           `json:"showtimeId"`
	SeatID      int           `json:"seatId"`
	Type        SeatEventType `json:"type"`
	LockedUntil *time.Time    `json:"lockedUntil,omitempty"`
}

type SeatEventPublisher interface {
	Publish(ctx context.Context, event SeatEvent) error
}
