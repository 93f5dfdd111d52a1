package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/burakelik/cinema-ticketing/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisSeatEventPublisher fans seat Locked/Released transitions out over a
// per-showtime pub/sub channel. Live seat-map viewers subscribe through the
// SSE endpoint; delivery is best-effort by design, the seat-lock table stays
// the source of truth.
type RedisSeatEventPublisher struct {
	client redis.UniversalClient
}

func NewRedisSeatEventPublisher(client redis.UniversalClient) *RedisSeatEventPublisher {
	return &RedisSeatEventPublisher{
		client: client,
	}
}

func (p *RedisSeatEventPublisher) Publish(ctx context.Context, event domain.SeatEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.client.Publish(ctx, SeatEventChannel(event.ShowtimeID), payload).Err()
}

func SeatEventChannel(showtimeID int) string {
	return fmt.Sprintf("seat_events:%d", showtimeID)
}
