package mocks

import (
	"context"

	"github.com/burakelik/cinema-ticketing/internal/domain"
)

type MockTicketReader struct {
	domain.TicketReader
	SoldSeatIDsFunc func(ctx context.Context, showtimeID int, seatIDs []int) ([]int, error)
}

func (m *MockTicketReader) SoldSeatIDs(ctx context.Context, showtimeID int, seatIDs []int) ([]int, error) {
	return m.SoldSeatIDsFunc(ctx, showtimeID, seatIDs)
}
