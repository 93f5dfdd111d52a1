package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/burakelik/cinema-ticketing/internal/validator"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func newTestApplication(opts ...func(*Application)) *Application {
	app := &Application{
		config:         Config{Env: "test"},
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		validator:      validator.NewValidator(),
		sessionManager: scs.New(),
	}

	for _, opt := range opts {
		opt(app)
	}

	return app
}

// executeRequest builds a request with the given body and chi URL params and
// an scs session context, so handlers can be exercised directly.
func executeRequest(t *testing.T, app *Application, method, url string, body any, params map[string]string) (*httptest.ResponseRecorder, *http.Request) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(jsonData)
	}

	r := httptest.NewRequest(method, url, reader)
	r.Header.Set("Content-Type", "application/json")

	routeCtx := chi.NewRouteContext()
	for key, value := range params {
		routeCtx.URLParams.Add(key, value)
	}

	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, routeCtx)

	sessionCtx, err := app.sessionManager.Load(ctx, "")
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}

	return httptest.NewRecorder(), r.WithContext(sessionCtx)
}

// ownBookingSession marks the booking session as owned by the request's HTTP
// session.
func ownBookingSession(app *Application, r *http.Request, id uuid.UUID) {
	app.rememberBookingSession(r.Context(), id)
}

func decodeResponse[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	return v
}

func checkErrorResponse(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantErrMessage string) {
	t.Helper()

	if wantStatus >= 200 && wantStatus < 300 {
		return
	}

	switch wantStatus {
	case http.StatusUnprocessableEntity:
		var validationResp ValidationErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&validationResp); err != nil {
			// not a field-validation response, fall back to the plain shape
			return
		}

		if len(validationResp.ValidationErrors) == 0 {
			return
		}

		errorSet := make(map[string]bool)
		for _, vErr := range validationResp.ValidationErrors {
			errorSet[vErr.Issue] = true
		}

		if wantErrMessage != "" && !errorSet[wantErrMessage] {
			t.Errorf("Expected validation error message '%s' not found in response", wantErrMessage)
		}

	default:
		var errorResp ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&errorResp); err != nil {
			t.Fatalf("Failed to decode error response: %v", err)
		}

		if wantErrMessage != "" && errorResp.Message != wantErrMessage {
			t.Errorf("Error message = %v, want %v", errorResp.Message, wantErrMessage)
		}
	}
}
