package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/radiocaption/domain/entities"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Subscribers only send small control messages.
	maxMessageSize = 4 * 1024

	// Outbound messages buffered per client before it is dropped as too slow.
	sendBuffer = 256

	// Messages buffered between publishers and the hub loop.
	broadcastBuffer = 1024
)

var upgrader = websocket.Upgrader{
	// Captions are public and read-only.
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Gauge receives the current subscriber count
type Gauge interface {
	Set(float64)
}

type envelope struct {
	sessionID string
	payload   []byte
}

// Hub maintains the set of caption subscribers and fans messages out to them.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Outbound messages from publishers.
	broadcast chan envelope

	// Closed when Run returns.
	done chan struct{}

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	gauge  Gauge
	logger *zap.Logger
}

// NewHub creates a new WebSocket hub. gauge may be nil.
func NewHub(gauge Gauge, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan envelope, broadcastBuffer),
		done:       make(chan struct{}),
		gauge:      gauge,
		logger:     logger,
	}
}

// Run starts the hub's main loop and disconnects every client when ctx ends.
// Run must be called at most once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.updateGauge()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.updateGauge()
			h.logger.Info("Client registered", zap.String("remote", client.remote))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.updateGauge()
			h.logger.Info("Client unregistered", zap.String("remote", client.remote))

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.wants(msg.sessionID) {
					continue
				}
				select {
				case client.send <- msg.payload:
				default:
					// Too slow to keep up with live captions
					delete(h.clients, client)
					close(client.send)
					h.logger.Warn("Dropping slow client", zap.String("remote", client.remote))
				}
			}
			h.mu.Unlock()
			h.updateGauge()
		}
	}
}

// Done is closed once Run has returned
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// ClientCount returns the number of connected subscribers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PublishTranscript pushes a caption to subscribers of its session
func (h *Hub) PublishTranscript(e entities.TranscriptEvent) {
	h.publish(e.SessionID, NewTranscriptMessage(e))
}

// PublishSessionStatus pushes a session snapshot to its subscribers
func (h *Hub) PublishSessionStatus(s *entities.CaptionSession) {
	h.publish(s.ID, NewSessionStatusMessage(s))
}

// publish never blocks the caller; the relay must not wait on browsers
func (h *Hub) publish(sessionID string, msg interface{}) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to encode message", zap.Error(err))
		return
	}

	select {
	case h.broadcast <- envelope{sessionID: sessionID, payload: payload}:
	default:
		h.logger.Warn("Broadcast channel full, dropping message", zap.String("sessionID", sessionID))
	}
}

func (h *Hub) updateGauge() {
	if h.gauge != nil {
		h.gauge.Set(float64(h.ClientCount()))
	}
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan []byte

	// Remote address for logging
	remote string

	// Session filter, empty for all sessions
	sessionID string
	mu        sync.RWMutex

	validator *MessageValidator
	logger    *zap.Logger
}

func (c *Client) wants(sessionID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID == "" || c.sessionID == sessionID
}

// HandleWebSocket upgrades a caption subscriber. The optional session_id
// query parameter narrows the subscription.
func HandleWebSocket(hub *Hub, c echo.Context, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		remote:    c.RealIP(),
		sessionID: c.QueryParam("session_id"),
		validator: NewMessageValidator(),
		logger:    logger,
	}

	select {
	case hub.register <- client:
	case <-hub.done:
		logger.Info("Hub stopped, refusing subscriber", zap.String("remote", client.remote))
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return nil
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	return nil
}

// readPump handles control messages from the subscriber.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		if messageType != websocket.TextMessage {
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
			continue
		}
		c.processMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
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
				c.logger.Error("Failed to write message", zap.Error(err))
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

// processMessage processes control messages from the subscriber
func (c *Client) processMessage(message []byte) {
	msg, err := c.validator.ValidateMessage(message)
	if err != nil {
		c.reply(CreateErrorMessage("invalid_message", "message rejected", err.Error()))
		return
	}

	switch m := msg.(type) {
	case *SubscribeMessage:
		c.mu.Lock()
		c.sessionID = m.SessionID
		c.mu.Unlock()
		c.logger.Info("Client subscribed",
			zap.String("remote", c.remote),
			zap.String("sessionID", m.SessionID))
	case *PingMessage:
		c.reply(CreatePongMessage(m.Data))
	}
}

// reply queues a direct response without blocking the read loop
func (c *Client) reply(msg interface{}) {
	payload, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("Failed to encode reply", zap.Error(err))
		return
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- payload:
	default:
		c.logger.Warn("Send buffer full, dropping reply", zap.String("remote", c.remote))
	}
}
