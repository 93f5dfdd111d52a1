package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound   = errors.New("record not found")
	ErrSessionNotFound  = errors.New("booking session not found or has expired")
	ErrShowtimeNotFound = errors.New("showtime not found")
	ErrSeatNotFound     = errors.New("one or more selected seats do not exist")

	ErrNoSeatsRequested    = errors.New("at least one seat must be selected")
	ErrSessionNotDraft     = errors.New("booking session is no longer editable")
	ErrSessionExpired      = errors.New("booking session has expired, please start over")
	ErrSeatNotOnScreen     = errors.New("seat does not belong to the showtime's screen")
	ErrSeatBlocked         = errors.New("seat is not sellable")
	ErrSeatCapExceeded     = errors.New("maximum number of seats per booking exceeded")
	ErrSeatGap             = errors.New("selection would leave a single empty seat stranded in a row")
	ErrShowtimeNotBookable = errors.New("showtime is no longer open for booking")

	ErrSeatConflict    = errors.New("seat(s) are already taken")
	ErrSeatLockExpired = errors.New("your seat selections have expired, please select your seats again")
)

// SeatConflictError reports which specific seats lost a contention check so
// that clients can deselect only those seats and retry the rest.
type SeatConflictError struct {
	SeatIDs []int
}

func (e *SeatConflictError) Error() string {
	if len(e.SeatIDs) == 0 {
		return ErrSeatConflict.Error()
	}

	return fmt.Sprintf("seat(s) already taken: %v", e.SeatIDs)
}

func (e *SeatConflictError) Is(target error) bool {
	return target == ErrSeatConflict
}

// IsNotFound reports whether err is terminal for the request because a
// referenced session, showtime or seat does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrShowtimeNotFound) ||
		errors.Is(err, ErrSeatNotFound)
}

// IsValidation reports whether err is a caller-correctable input or state
// problem. Retrying with the same input will never succeed.
func IsValidation(err error) bool {
	return errors.Is(err, ErrNoSeatsRequested) ||
		errors.Is(err, ErrSessionNotDraft) ||
		errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrSeatNotOnScreen) ||
		errors.Is(err, ErrSeatBlocked) ||
		errors.Is(err, ErrSeatCapExceeded) ||
		errors.Is(err, ErrSeatGap) ||
		errors.Is(err, ErrShowtimeNotBookable)
}

// IsConflict reports whether err is contention with another actor. A retry
// may legitimately succeed, e.g. after the other session's lock expires.
func IsConflict(err error) bool {
	return errors.Is(err, ErrSeatConflict) || errors.Is(err, ErrSeatLockExpired)
}
