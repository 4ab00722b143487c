package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/eaven-routing/internal/middleware"
)

// webSocketRoutes authenticates through the token query parameter
func webSocketRoutes(router *mux.Router, deps Deps) {
	wsAuth := middleware.WebSocketAuthMiddleware(deps.JWTSecret)
	router.Handle("/ws", wsAuth(http.HandlerFunc(deps.WebSocket.HandleWebSocket))).Methods(http.MethodGet)
}
