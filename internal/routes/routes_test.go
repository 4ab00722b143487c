package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhil/eaven-routing/internal/handlers"
	"github.com/nikhil/eaven-routing/internal/logger"
	"github.com/nikhil/eaven-routing/internal/middleware"
	ticketmodels "github.com/nikhil/eaven-routing/internal/models/tickets"
	"github.com/nikhil/eaven-routing/internal/realtime"
)

func testRouter(ping func(context.Context) error) http.Handler {
	log := logger.NewNop()
	return RegisterAllRoutes(Deps{
		JWTSecret: "secret",
		Tickets:   handlers.NewTicketHandler(nil, nil, log),
		WebSocket: handlers.NewWebSocketHandler(realtime.NewHub(log), log),
		Ping:      ping,
	})
}

func TestHealthz(t *testing.T) {
	tests := []struct {
		name       string
		ping       func(context.Context) error
		wantStatus int
		wantBody   string
	}{
		{name: "no probe", wantStatus: http.StatusOK, wantBody: `{"status":"ok"}`},
		{name: "database up", ping: func(context.Context) error { return nil }, wantStatus: http.StatusOK, wantBody: `{"status":"ok"}`},
		{
			name:       "database down",
			ping:       func(context.Context) error { return errors.New("dial tcp: refused") },
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"status":"unavailable"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			testRouter(tt.ping).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
		})
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/tickets"},
		{http.MethodGet, "/tickets/unassigned"},
		{http.MethodGet, "/ws"},
	}

	router := testRouter(nil)
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{}`)))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

type emptyQueue struct{}

func (emptyQueue) Create(context.Context, *ticketmodels.Ticket) error { return nil }

func (emptyQueue) ListUnassigned(context.Context, int64, int64, int, int) ([]ticketmodels.Ticket, error) {
	return []ticketmodels.Ticket{}, nil
}

func TestTicketRoutesRespondWithJSON(t *testing.T) {
	log := logger.NewNop()
	router := RegisterAllRoutes(Deps{
		JWTSecret: "secret",
		Tickets:   handlers.NewTicketHandler(emptyQueue{}, nil, log),
		WebSocket: handlers.NewWebSocketHandler(realtime.NewHub(log), log),
	})

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 101, "client_id": 70, "workspace_id": 7,
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/tickets/unassigned", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"tickets": [], "page": 1, "per_page": 20}`, rec.Body.String())
}
