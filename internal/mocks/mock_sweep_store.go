package mocks

import (
	"context"
	"time"

	"github.com/burakelik/cinema-ticketing/internal/domain"
)

type MockSweepStore struct {
	domain.SweepStore
	DeleteExpiredSeatLocksFunc     func(ctx context.Context, before time.Time) (int64, error)
	CancelExpiredDraftSessionsFunc func(ctx context.Context, before time.Time) (int64, error)
	PurgeCanceledSessionsFunc      func(ctx context.Context, before time.Time) (int64, error)
}

func (m *MockSweepStore) DeleteExpiredSeatLocks(ctx context.Context, before time.Time) (int64, error) {
	return m.DeleteExpiredSeatLocksFunc(ctx, before)
}

func (m *MockSweepStore) CancelExpiredDraftSessions(ctx context.Context, before time.Time) (int64, error) {
	return m.CancelExpiredDraftSessionsFunc(ctx, before)
}

func (m *MockSweepStore) PurgeCanceledSessions(ctx context.Context, before time.Time) (int64, error) {
	return m.PurgeCanceledSessionsFunc(ctx, before)
}
