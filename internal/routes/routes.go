package routes

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/eaven-routing/internal/handlers"
	"github.com/nikhil/eaven-routing/internal/middleware"
)

// Deps carries the handlers and settings the route modules mount
type Deps struct {
	JWTSecret string
	Tickets   *handlers.TicketHandler
	WebSocket *handlers.WebSocketHandler
	// Ping reports whether the service's storage is reachable
	Ping func(ctx context.Context) error
}

// List of all route registration functions
var routeModules = []func(*mux.Router, Deps){
	healthRoutes,
	ticketRoutes,
	webSocketRoutes,
}

// RegisterAllRoutes builds the router with every route module mounted
func RegisterAllRoutes(deps Deps) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.RequestIDMiddleware)

	for _, register := range routeModules {
		register(router, deps)
	}

	return router
}

func healthRoutes(router *mux.Router, deps Deps) {
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if deps.Ping != nil {
			if err := deps.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)
}
