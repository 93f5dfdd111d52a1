package app

import (
	"context"

	"github.com/burakelik/cinema-ticketing/internal/booking"
	"github.com/burakelik/cinema-ticketing/internal/domain"
	"github.com/google/uuid"
)

type MockBookingService struct {
	CreateSessionFunc func(ctx context.Context, showtimeID int, userID *int) (*domain.BookingSession, error)
	LockFunc          func(ctx context.Context, sessionID uuid.UUID, seatIDs []int) (*booking.Result, error)
	ReleaseFunc       func(ctx context.Context, sessionID uuid.UUID, seatIDs []int) (*booking.Result, error)
	ReplaceFunc       func(ctx context.Context, sessionID uuid.UUID, newSeatIDs []int) (*booking.Result, error)
	ValidateFunc      func(ctx context.Context, sessionID uuid.UUID) (*booking.Result, error)
	CheckoutFunc      func(ctx context.Context, sessionID uuid.UUID) (*booking.Result, error)
	SetCombosFunc     func(ctx context.Context, sessionID uuid.UUID, combos []domain.ComboItem) (*booking.Result, error)
}

func (m *MockBookingService) CreateSession(ctx context.Context, showtimeID int, userID *int) (*domain.BookingSession, error) {
	return m.CreateSessionFunc(ctx, showtimeID, userID)
}

func (m *MockBookingService) Lock(ctx context.Context, sessionID uuid.UUID, seatIDs []int) (*booking.Result, error) {
	return m.LockFunc(ctx, sessionID, seatIDs)
}

func (m *MockBookingService) Release(ctx context.Context, sessionID uuid.UUID, seatIDs []int) (*booking.Result, error) {
	return m.ReleaseFunc(ctx, sessionID, seatIDs)
}

func (m *MockBookingService) Replace(ctx context.Context, sessionID uuid.UUID, newSeatIDs []int) (*booking.Result, error) {
	return m.ReplaceFunc(ctx, sessionID, newSeatIDs)
}

func (m *MockBookingService) Validate(ctx context.Context, sessionID uuid.UUID) (*booking.Result, error) {
	return m.ValidateFunc(ctx, sessionID)
}

func (m *MockBookingService) Checkout(ctx context.Context, sessionID uuid.UUID) (*booking.Result, error) {
	return m.CheckoutFunc(ctx, sessionID)
}

func (m *MockBookingService) SetCombos(ctx context.Context, sessionID uuid.UUID, combos []domain.ComboItem) (*booking.Result, error) {
	return m.SetCombosFunc(ctx, sessionID, combos)
}
