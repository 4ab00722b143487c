package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nikhil/eaven-routing/internal/logger"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Subscribers only send control frames
	maxMessageSize = 512

	sendBuffer = 256
)

// ErrHubStopped is returned by Publish once the hub's Run loop has exited
var ErrHubStopped = errors.New("realtime hub stopped")

type topicMessage struct {
	topic string
	body  []byte
}

// Hub keeps websocket subscribers grouped by channel name and fans published
// events out to them. Run must be running for Publish to deliver.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan topicMessage
	done       chan struct{}

	mu     sync.RWMutex
	topics map[string]map[*Client]struct{}

	stamp stamper
	log   *logger.Logger
}

// Client is one websocket subscription to a single channel
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	topic string

	UserID int64
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan topicMessage, sendBuffer),
		done:       make(chan struct{}),
		topics:     make(map[string]map[*Client]struct{}),
		stamp:      defaultStamper(),
		log:        log.Named("realtime-hub"),
	}
}

// NewClient creates a subscriber for topic. conn may be nil in tests that
// read from Messages directly.
func (h *Hub) NewClient(conn *websocket.Conn, topic string, userID int64) *Client {
	return &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		topic:  topic,
		UserID: userID,
	}
}

// Run owns subscription changes and delivery until ctx is done. All
// subscriber send channels are closed on exit.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for topic, clients := range h.topics {
			for c := range clients {
				close(c.send)
			}
			delete(h.topics, topic)
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.topics[client.topic]; !ok {
				h.topics[client.topic] = make(map[*Client]struct{})
			}
			h.topics[client.topic][client] = struct{}{}
			h.mu.Unlock()
			h.log.Debug("Subscriber joined", "channel", client.topic, "user_id", client.UserID)

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.topics[msg.topic] {
				select {
				case client.send <- msg.body:
				default:
					// Slow subscriber; drop it rather than block everyone else
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held
func (h *Hub) remove(client *Client) {
	clients, ok := h.topics[client.topic]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.topics, client.topic)
	}
}

// Register subscribes a client. It returns false if the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client and closes its send channel
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish implements Publisher for in-process websocket subscribers
func (h *Hub) Publish(ctx context.Context, channel, event string, payload any) error {
	_, body, err := h.stamp.encode(channel, event, payload)
	if err != nil {
		return err
	}
	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}
	select {
	case h.broadcast <- topicMessage{topic: channel, body: body}:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribers reports how many clients are subscribed to channel
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[channel])
}

// Messages exposes the client's outbound queue
func (c *Client) Messages() <-chan []byte {
	return c.send
}

// ReadPump keeps the connection alive and unregisters the client when the
// peer goes away. Subscribers have nothing to say, so payloads are discarded.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("Subscriber closed unexpectedly", "channel", c.topic, "error", err)
			}
			return
		}
	}
}

// WritePump pumps messages from the hub to the websocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
