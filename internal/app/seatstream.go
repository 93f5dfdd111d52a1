package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/burakelik/cinema-ticketing/internal/events"
)

// StreamSeatEvents pushes live seat lock/release events for a showtime to the
// client over Server-Sent Events. Events originate from the booking engine
// and fan out through Redis pub/sub, so every API instance sees them.
func (app *Application) StreamSeatEvents(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	showtimeID, err := app.readIntParam(r, "showtimeId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		app.serverErrorResponse(w, r, fmt.Errorf("streaming unsupported by response writer"))
		return
	}

	sub := app.redis.Subscribe(r.Context(), events.SeatEventChannel(showtimeID))
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	ch := sub.Channel()

	for {
		select {
		case <-r.Context().Done():
			return

		case <-heartbeat.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()

		case msg, open := <-ch:
			if !open {
				logger.Warn("seat event subscription closed", "showtime_id", showtimeID)
				return
			}

			fmt.Fprintf(w, "event: seat\ndata: %s\n\n", msg.Payload)
			flusher.Flush()
		}
	}
}
