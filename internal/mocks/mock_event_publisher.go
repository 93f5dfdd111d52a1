package mocks

import (
	"context"
	"sync"

	"github.com/burakelik/cinema-ticketing/internal/domain"
)

// MockSeatEventPublisher records published events. If PublishFunc is set it is
// consulted first, which lets tests inject failures.
type MockSeatEventPublisher struct {
	PublishFunc func(ctx context.Context, event domain.SeatEvent) error

	mu     sync.Mutex
	events []domain.SeatEvent
}

func (m *MockSeatEventPublisher) Publish(ctx context.Context, event domain.SeatEvent) error {
	if m.PublishFunc != nil {
		if err := m.PublishFunc(ctx, event); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)

	return nil
}

func (m *MockSeatEventPublisher) Events() []domain.SeatEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	events := make([]domain.SeatEvent, len(m.events))
	copy(events, m.events)

	return events
}
