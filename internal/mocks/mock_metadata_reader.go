package mocks

import (
	"context"

	"github.com/burakelik/cinema-ticketing/internal/domain"
)

type MockMetadataReader struct {
	domain.MetadataReader
	GetShowtimeFunc             func(ctx context.Context, showtimeID int) (*domain.Showtime, error)
	GetSeatsByIDsFunc           func(ctx context.Context, seatIDs []int) ([]domain.Seat, error)
	GetSeatsByScreenAndRowsFunc func(ctx context.Context, screenID int, rows []string) ([]domain.Seat, error)
	GetSeatsByScreenFunc        func(ctx context.Context, screenID int) ([]domain.Seat, error)
}

func (m *MockMetadataReader) GetShowtime(ctx context.Context, showtimeID int) (*domain.Showtime, error) {
	return m.GetShowtimeFunc(ctx, showtimeID)
}

func (m *MockMetadataReader) GetSeatsByIDs(ctx context.Context, seatIDs []int) ([]domain.Seat, error) {
	return m.GetSeatsByIDsFunc(ctx, seatIDs)
}

func (m *MockMetadataReader) GetSeatsByScreenAndRows(ctx context.Context, screenID int, rows []string) ([]domain.Seat, error) {
	return m.GetSeatsByScreenAndRowsFunc(ctx, screenID, rows)
}

func (m *MockMetadataReader) GetSeatsByScreen(ctx context.Context, screenID int) ([]domain.Seat, error) {
	return m.GetSeatsByScreenFunc(ctx, screenID)
}
