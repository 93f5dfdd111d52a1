package app

import (
	"context"

	"github.com/google/uuid"
)

type sessionKey string

const (
	SessionKeyUserId          = sessionKey("userID")
	SessionKeyGuest           = sessionKey("guest")
	SessionKeyBookingSessions = sessionKey("bookingSessionIDs")
)

func (s sessionKey) String() string {
	return string(s)
}

// contextGetUserId returns the authenticated user's id, or nil for guests.
func (app *Application) contextGetUserId(ctx context.Context) *int {
	userId := app.sessionManager.GetInt(ctx, SessionKeyUserId.String())
	if userId == 0 {
		return nil
	}

	return &userId
}

// rememberBookingSession records a booking session id in the user's HTTP
// session, which is what ties a browser to the booking sessions it created.
func (app *Application) rememberBookingSession(ctx context.Context, id uuid.UUID) {
	ids, _ := app.sessionManager.Get(ctx, SessionKeyBookingSessions.String()).([]string)
	app.sessionManager.Put(ctx, SessionKeyBookingSessions.String(), append(ids, id.String()))
}

func (app *Application) ownsBookingSession(ctx context.Context, id uuid.UUID) bool {
	ids, _ := app.sessionManager.Get(ctx, SessionKeyBookingSessions.String()).([]string)

	for _, v := range ids {
		if v == id.String() {
			return true
		}
	}

	return false
}

func (app *Application) ownedBookingSessions(ctx context.Context) []uuid.UUID {
	ids, _ := app.sessionManager.Get(ctx, SessionKeyBookingSessions.String()).([]string)

	sessionIds := make([]uuid.UUID, 0, len(ids))
	for _, v := range ids {
		if id, err := uuid.Parse(v); err == nil {
			sessionIds = append(sessionIds, id)
		}
	}

	return sessionIds
}
