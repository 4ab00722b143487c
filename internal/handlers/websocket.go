package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/nikhil/eaven-routing/internal/logger"
	"github.com/nikhil/eaven-routing/internal/middleware"
	"github.com/nikhil/eaven-routing/internal/realtime"
	"github.com/nikhil/eaven-routing/internal/service/routing"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler subscribes agents to their client's ticket notifications
type WebSocketHandler struct {
	hub *realtime.Hub
	log *logger.Logger
}

func NewWebSocketHandler(hub *realtime.Hub, log *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, log: log.Named("websocket-handler")}
}

// HandleWebSocket upgrades the connection and subscribes it to
// notifications:client:{clientID} for the authenticated caller
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.CurrentIdentity(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Error upgrading connection", "error", err, "user_id", identity.UserID)
		return
	}

	client := h.hub.NewClient(conn, routing.NotificationChannel(identity.ClientID), identity.UserID)
	if !h.hub.Register(client) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
