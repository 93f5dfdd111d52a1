package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/burakelik/cinema-ticketing/internal/domain"
	appvalidator "github.com/burakelik/cinema-ticketing/internal/validator"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

type ErrorResponse struct {
	Message         string    `json:"message"`
	RequestId       string    `json:"requestId,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	ConflictSeatIds []int     `json:"conflictSeatIds,omitempty"`
}

type ValidationErrorResponse struct {
	Message          string            `json:"message"`
	RequestId        string            `json:"requestId,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
	ValidationErrors []ValidationError `json:"validationErrors"`
}

type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

func (app *Application) logError(r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.contextGetLogger(r).Error(err.Error(), "method", method, "uri", uri)
}

// The errorResponse() method is a generic helper for sending JSON-formatted error
// messages to the client with a given status code.
func (app *Application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	resp := ErrorResponse{
		Message:   message,
		RequestId: middleware.GetReqID(r.Context()),
		Timestamp: time.Now(),
	}

	err := app.writeJSON(w, status, resp, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(500)
	}
}

func (app *Application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)

	message := "The server encountered a problem and could not process your request"
	app.errorResponse(w, r, http.StatusInternalServerError, message)
}

func (app *Application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	message := "The requested resource not found"
	app.errorResponse(w, r, http.StatusNotFound, message)
}

func (app *Application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (app *Application) unprocessableEntityResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
}

func (app *Application) editConflictResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusConflict, err.Error())
}

func (app *Application) seatConflictResponse(w http.ResponseWriter, r *http.Request, seatIds []int) {
	resp := ErrorResponse{
		Message:         "Some of the selected seats are no longer available",
		RequestId:       middleware.GetReqID(r.Context()),
		Timestamp:       time.Now(),
		ConflictSeatIds: seatIds,
	}

	err := app.writeJSON(w, http.StatusConflict, resp, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(500)
	}
}

func (app *Application) failedValidationResponse(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		app.serverErrorResponse(w, r, err)
		return
	}

	fieldErrors := make([]ValidationError, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		fieldErrors = append(fieldErrors, ValidationError{
			Field: fieldError.Field(),
			Issue: appvalidator.ValidationMessage(fieldError),
		})
	}

	resp := ValidationErrorResponse{
		Message:          "One or more fields failed validation",
		RequestId:        middleware.GetReqID(r.Context()),
		Timestamp:        time.Now(),
		ValidationErrors: fieldErrors,
	}

	writeErr := app.writeJSON(w, http.StatusUnprocessableEntity, resp, nil)
	if writeErr != nil {
		app.logError(r, writeErr)
		w.WriteHeader(500)
	}
}

// bookingErrorResponse maps errors coming out of the booking engine onto HTTP
// status codes.
func (app *Application) bookingErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var seatConflict *domain.SeatConflictError

	switch {
	case errors.As(err, &seatConflict):
		app.seatConflictResponse(w, r, seatConflict.SeatIDs)
	case domain.IsConflict(err):
		app.editConflictResponse(w, r, err)
	case domain.IsNotFound(err):
		app.notFoundResponse(w, r)
	case domain.IsValidation(err):
		app.unprocessableEntityResponse(w, r, err)
	default:
		app.serverErrorResponse(w, r, err)
	}
}
