package mocks

import (
	"context"

	"github.com/burakelik/cinema-ticketing/internal/domain"
	"github.com/google/uuid"
)

type MockBookingStore struct {
	domain.BookingStore
	CreateSessionFunc       func(ctx context.Context, session *domain.BookingSession) error
	GetSessionFunc          func(ctx context.Context, sessionID uuid.UUID) (*domain.BookingSession, error)
	SeatLocksByShowtimeFunc func(ctx context.Context, showtimeID int) ([]domain.SeatLock, error)
}

func (m *MockBookingStore) CreateSession(ctx context.Context, session *domain.BookingSession) error {
	return m.CreateSessionFunc(ctx, session)
}

func (m *MockBookingStore) GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.BookingSession, error) {
	return m.GetSessionFunc(ctx, sessionID)
}

func (m *MockBookingStore) SeatLocksByShowtime(ctx context.Context, showtimeID int) ([]domain.SeatLock, error) {
	return m.SeatLocksByShowtimeFunc(ctx, showtimeID)
}
