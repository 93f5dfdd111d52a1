package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/burakelik/cinema-ticketing/internal/booking"
	"github.com/burakelik/cinema-ticketing/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookingService is the surface of the booking engine the handlers depend on.
type BookingService interface {
	CreateSession(ctx context.Context, showtimeID int, userID *int) (*domain.BookingSession, error)
	Lock(ctx context.Context, sessionID uuid.UUID, seatIDs []int) (*booking.Result, error)
	Release(ctx context.Context, sessionID uuid.UUID, seatIDs []int) (*booking.Result, error)
	Replace(ctx context.Context, sessionID uuid.UUID, newSeatIDs []int) (*booking.Result, error)
	Validate(ctx context.Context, sessionID uuid.UUID) (*booking.Result, error)
	Checkout(ctx context.Context, sessionID uuid.UUID) (*booking.Result, error)
	SetCombos(ctx context.Context, sessionID uuid.UUID, combos []domain.ComboItem) (*booking.Result, error)
}

type SeatSelectionRequest struct {
	SeatIds []int `json:"seatIds" validate:"required,min=1,max=8,unique,dive,gt=0"`
}

// ReplaceSeatsRequest allows an empty list, which releases every held seat.
type ReplaceSeatsRequest struct {
	SeatIds []int `json:"seatIds" validate:"max=8,unique,dive,gt=0"`
}

type ComboSelectionRequest struct {
	Combos []ComboInput `json:"combos" validate:"dive"`
}

type ComboInput struct {
	ComboId  int `json:"comboId" validate:"gt=0"`
	Quantity int `json:"quantity" validate:"gt=0"`
}

type BookingSessionResponse struct {
	BookingSession BookingSession `json:"bookingSession"`
}

type BookingSession struct {
	Id         string          `json:"id"`
	ShowtimeId int             `json:"showtimeId"`
	State      string          `json:"state"`
	SeatIds    []int           `json:"seatIds"`
	Combos     []Combo         `json:"combos"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	ExpiresAt  time.Time       `json:"expiresAt"`
	Version    int             `json:"version"`
}

type Combo struct {
	ComboId  int `json:"comboId"`
	Quantity int `json:"quantity"`
}

type SeatActionResponse struct {
	SessionId       string     `json:"sessionId"`
	ShowtimeId      int        `json:"showtimeId"`
	State           string     `json:"state"`
	AffectedSeatIds []int      `json:"affectedSeatIds"`
	LockedUntil     *time.Time `json:"lockedUntil,omitempty"`
	SeatIds         []int      `json:"seatIds"`
	Version         int        `json:"version"`
}

func (app *Application) CreateBookingSessionHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	showtimeID, err := app.readIntParam(r, "showtimeId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	for _, id := range app.ownedBookingSessions(r.Context()) {
		session, err := app.store.GetSession(r.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				continue
			}
			app.serverErrorResponse(w, r, err)
			return
		}

		if session.ShowtimeID == showtimeID && session.State == domain.SessionStateDraft && !session.Expired(time.Now()) {
			logger.Warn("booking session creation rejected: an active session already exists for this showtime",
				"booking_session_id", session.ID)
			app.badRequestResponse(w, r, fmt.Errorf("an active booking session already exists for this showtime"))
			return
		}
	}

	session, err := app.bookings.CreateSession(r.Context(), showtimeID, app.contextGetUserId(r.Context()))
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	app.rememberBookingSession(r.Context(), session.ID)

	resp := BookingSessionResponse{
		BookingSession: toApiBookingSession(session),
	}

	err = app.writeJSON(w, http.StatusCreated, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetBookingSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := app.bookingSessionFromRequest(w, r)
	if !ok {
		return
	}

	session, err := app.store.GetSession(r.Context(), sessionID)
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	resp := BookingSessionResponse{
		BookingSession: toApiBookingSession(session),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) LockSeatsHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := app.bookingSessionFromRequest(w, r)
	if !ok {
		return
	}

	var input SeatSelectionRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	result, err := app.bookings.Lock(r.Context(), sessionID, input.SeatIds)
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toSeatActionResponse(result), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ReleaseSeatsHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := app.bookingSessionFromRequest(w, r)
	if !ok {
		return
	}

	var input SeatSelectionRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	result, err := app.bookings.Release(r.Context(), sessionID, input.SeatIds)
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toSeatActionResponse(result), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ReplaceSeatsHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := app.bookingSessionFromRequest(w, r)
	if !ok {
		return
	}

	var input ReplaceSeatsRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	result, err := app.bookings.Replace(r.Context(), sessionID, input.SeatIds)
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toSeatActionResponse(result), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) SetCombosHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := app.bookingSessionFromRequest(w, r)
	if !ok {
		return
	}

	var input ComboSelectionRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	combos := make([]domain.ComboItem, len(input.Combos))
	for i, v := range input.Combos {
		combos[i] = domain.ComboItem{ComboID: v.ComboId, Quantity: v.Quantity}
	}

	result, err := app.bookings.SetCombos(r.Context(), sessionID, combos)
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toSeatActionResponse(result), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ValidateBookingSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := app.bookingSessionFromRequest(w, r)
	if !ok {
		return
	}

	result, err := app.bookings.Validate(r.Context(), sessionID)
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toSeatActionResponse(result), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) CheckoutHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := app.bookingSessionFromRequest(w, r)
	if !ok {
		return
	}

	result, err := app.bookings.Checkout(r.Context(), sessionID)
	if err != nil {
		app.bookingErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toSeatActionResponse(result), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// bookingSessionFromRequest parses the booking session id from the URL and
// verifies the caller's HTTP session owns it. Unknown and foreign ids both
// come back as 404 so ids cannot be probed.
func (app *Application) bookingSessionFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	sessionID, err := app.readUUIDParam(r, "bookingSessionId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return uuid.Nil, false
	}

	if !app.ownsBookingSession(r.Context(), sessionID) {
		app.notFoundResponse(w, r)
		return uuid.Nil, false
	}

	return sessionID, true
}

func toApiBookingSession(session *domain.BookingSession) BookingSession {
	combos := make([]Combo, len(session.Combos))
	for i, v := range session.Combos {
		combos[i] = Combo{ComboId: v.ComboID, Quantity: v.Quantity}
	}

	seatIds := session.SeatIDs
	if seatIds == nil {
		seatIds = []int{}
	}

	return BookingSession{
		Id:         session.ID.String(),
		ShowtimeId: session.ShowtimeID,
		State:      string(session.State),
		SeatIds:    seatIds,
		Combos:     combos,
		TotalPrice: session.TotalPrice,
		ExpiresAt:  session.ExpiresAt,
		Version:    session.Version,
	}
}

func toSeatActionResponse(result *booking.Result) SeatActionResponse {
	affected := result.AffectedSeatIDs
	if affected == nil {
		affected = []int{}
	}

	seatIds := result.SeatIDs
	if seatIds == nil {
		seatIds = []int{}
	}

	return SeatActionResponse{
		SessionId:       result.SessionID.String(),
		ShowtimeId:      result.ShowtimeID,
		State:           string(result.State),
		AffectedSeatIds: affected,
		LockedUntil:     result.LockedUntil,
		SeatIds:         seatIds,
		Version:         result.Version,
	}
}
