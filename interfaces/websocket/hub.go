package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"mirror-backend/pkg/observability"
)

// Hub maintains the set of active connections and fans broadcasts out to
// all of them. Mirror is single-user, so there is no per-user routing: every
// connected client is another view of the same journal.
type Hub struct {
	connections map[*Client]bool
	mu          sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage

	ctx     context.Context
	cancel  context.CancelFunc
	logger  *zap.Logger
	metrics *observability.Collector
}

// BroadcastMessage is one event pushed to every connected client
type BroadcastMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.Logger, metrics *observability.Collector) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		connections: make(map[*Client]bool),
		register:    make(chan *Client, 16),
		unregister:  make(chan *Client, 16),
		broadcast:   make(chan *BroadcastMessage, 256),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
		metrics:     metrics,
	}
}

// Run starts the hub's main event loop
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("Hub shutting down")
			h.closeAllConnections()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastToAll(message)
		}
	}
}

// Stop gracefully shuts down the hub
func (h *Hub) Stop() {
	h.cancel()
}

// Broadcast queues a message for every connected client
func (h *Hub) Broadcast(messageType string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	message := &BroadcastMessage{
		Type:      messageType,
		Data:      jsonData,
		Timestamp: time.Now().Unix(),
	}

	select {
	case h.broadcast <- message:
		return nil
	default:
		return fmt.Errorf("broadcast channel full, message dropped")
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.connections[client] = true
	count := len(h.connections)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.WebSocketConnections.Inc()
	}
	h.logger.Info("Client registered",
		zap.String("connectionID", client.id),
		zap.Int("connections", count),
	)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.connections[client]; !ok {
		return
	}
	delete(h.connections, client)
	close(client.send)

	if h.metrics != nil {
		h.metrics.WebSocketConnections.Dec()
	}
	h.logger.Info("Client unregistered",
		zap.String("connectionID", client.id),
		zap.Int("connections", len(h.connections)),
	)
}

func (h *Hub) broadcastToAll(message *BroadcastMessage) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.connections))
	for client := range h.connections {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("Failed to marshal broadcast message",
			zap.Error(err),
			zap.String("messageType", message.Type),
		)
		return
	}

	for _, client := range clients {
		select {
		case client.send <- data:
			if h.metrics != nil {
				h.metrics.NotificationsSent.Inc()
			}
		default:
			// Send buffer full: the client stopped draining, drop it
			h.logger.Warn("Closing slow client", zap.String("connectionID", client.id))
			go func(c *Client) {
				c.hub.unregister <- c
				c.conn.Close()
			}(client)
		}
	}
}

func (h *Hub) closeAllConnections() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.connections {
		close(client.send)
		client.conn.Close()
		delete(h.connections, client)
	}
	h.logger.Info("All connections closed")
}

// ConnectionCount returns the number of active connections
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}
