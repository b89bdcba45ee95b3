// Package websocket provides the real-time channel for FlexBase.
// Uses github.com/coder/websocket - the context-aware WebSocket library for Go.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/flexbase/flexbase/internal/logger"
	"github.com/flexbase/flexbase/internal/metrics"
	"go.uber.org/zap"
)

// Publisher delivers events to personal channels and post rooms.
// Delivery is best-effort: nothing is queued for absent members.
type Publisher interface {
	PublishToUser(userID string, message *Message)
	PublishToPost(postID string, message *Message)
}

// Hub is the connection manager. It owns the mapping from users and posts
// to connected clients for the lifetime of the server; construct one and
// pass it to whatever publishes events.
type Hub struct {
	// Personal channels: user ID -> that user's connections
	clients map[string]map[*Client]struct{}

	// Post rooms: post ID -> clients currently viewing the post
	rooms map[string]map[*Client]struct{}

	allClients map[*Client]struct{}

	unregister chan *Client
	unicast    chan *targetedMessage
	roomcast   chan *targetedMessage

	mu sync.RWMutex

	metrics *Metrics

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped atomic.Bool

	handlers map[string]MessageHandler

	rateLimitConfig RateLimitConfig
}

var _ Publisher = (*Hub)(nil)

// Metrics tracks WebSocket statistics
type Metrics struct {
	TotalConnections   atomic.Int64
	ActiveConnections  atomic.Int64
	MessagesReceived   atomic.Int64
	MessagesSent       atomic.Int64
	Errors             atomic.Int64
	ConnectionsDropped atomic.Int64
}

// RateLimitConfig defines per-client inbound rate limiting
type RateLimitConfig struct {
	MaxMessagesPerSecond int
	BurstSize            int
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxMessagesPerSecond: 10,
		BurstSize:            20,
	}
}

type targetedMessage struct {
	target  string
	message *Message
}

// MessageHandler processes incoming messages of a specific type
type MessageHandler func(client *Client, message *Message) error

// NewHub creates a new Hub instance
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:         make(map[string]map[*Client]struct{}),
		rooms:           make(map[string]map[*Client]struct{}),
		allClients:      make(map[*Client]struct{}),
		unregister:      make(chan *Client, 256),
		unicast:         make(chan *targetedMessage, 256),
		roomcast:        make(chan *targetedMessage, 256),
		metrics:         &Metrics{},
		ctx:             ctx,
		cancel:          cancel,
		handlers:        make(map[string]MessageHandler),
		rateLimitConfig: DefaultRateLimitConfig(),
	}
}

// RegisterHandler registers a handler for a specific message type
func (h *Hub) RegisterHandler(msgType string, handler MessageHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[msgType] = handler
	logger.Log.Debug("Registered websocket handler", zap.String("type", msgType))
}

// GetHandler returns the handler for a message type
func (h *Hub) GetHandler(msgType string) (MessageHandler, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	handler, ok := h.handlers[msgType]
	return handler, ok
}

// Run starts the hub's main event loop
func (h *Hub) Run() {
	h.wg.Add(1)
	defer h.wg.Done()

	logger.Log.Info("WebSocket hub starting")

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case client := <-h.unregister:
			h.unregisterClient(client)

		case m := <-h.unicast:
			h.deliver(h.snapshot(h.clients, m.target), m.message)

		case m := <-h.roomcast:
			h.deliver(h.snapshot(h.rooms, m.target), m.message)
		}
	}
}

func (h *Hub) registerClient(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctx.Err() != nil {
		return false
	}

	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]struct{})
	}
	h.clients[client.UserID][client] = struct{}{}
	h.allClients[client] = struct{}{}

	h.metrics.TotalConnections.Add(1)
	active := h.metrics.ActiveConnections.Add(1)

	logger.Log.Info("Client connected",
		logger.WithUserID(client.UserID),
		zap.Int64("active", active),
	)
	return true
}

// unregisterClient removes a client from its personal channel and every
// room it joined, then closes its send buffer
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.allClients[client]; !ok {
		return
	}
	delete(h.allClients, client)

	if clients, ok := h.clients[client.UserID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, client.UserID)
		}
	}

	for postID := range client.rooms {
		h.leaveRoomLocked(client, postID)
	}

	client.closeSend()
	active := h.metrics.ActiveConnections.Add(-1)

	logger.Log.Info("Client disconnected",
		logger.WithUserID(client.UserID),
		zap.Int64("active", active),
	)
}

func (h *Hub) snapshot(index map[string]map[*Client]struct{}, key string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := index[key]
	out := make([]*Client, 0, len(members))
	for c := range members {
		out = append(out, c)
	}
	return out
}

// deliver writes message to each client without blocking. A client whose
// buffer is full is dropped; it will refetch state on reconnect.
func (h *Hub) deliver(clients []*Client, message *Message) {
	if len(clients) == 0 {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		logger.Log.Error("Failed to marshal websocket message",
			zap.String("type", message.Type),
			zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range clients {
		if _, ok := h.allClients[client]; !ok {
			continue
		}
		select {
		case client.send <- data:
			h.metrics.MessagesSent.Add(1)
			metrics.RecordWebSocketMessage("outbound", message.Type)
		default:
			h.metrics.ConnectionsDropped.Add(1)
			go h.Unregister(client)
		}
	}
}

// SendToUser queues message for every connection of userID
func (h *Hub) SendToUser(userID string, message *Message) {
	h.enqueue(h.unicast, userID, message)
}

// SendToRoom queues message for every client viewing postID
func (h *Hub) SendToRoom(postID string, message *Message) {
	h.enqueue(h.roomcast, postID, message)
}

// PublishToUser implements Publisher
func (h *Hub) PublishToUser(userID string, message *Message) {
	h.SendToUser(userID, message)
}

// PublishToPost implements Publisher
func (h *Hub) PublishToPost(postID string, message *Message) {
	h.SendToRoom(postID, message)
}

func (h *Hub) enqueue(ch chan *targetedMessage, target string, message *Message) {
	select {
	case ch <- &targetedMessage{target: target, message: message}:
	case <-h.ctx.Done():
	}
}

// Register adds a client to the hub. Registration completes before it
// returns, so the client can join rooms as soon as its pumps start. It
// reports false once the hub is shutting down.
func (h *Hub) Register(client *Client) bool {
	return h.registerClient(client)
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// JoinRoom subscribes client to postID's room. It reports false for a
// client the hub does not know, such as one already unregistered.
func (h *Hub) JoinRoom(client *Client, postID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.allClients[client]; !ok {
		return false
	}
	if h.rooms[postID] == nil {
		h.rooms[postID] = make(map[*Client]struct{})
	}
	h.rooms[postID][client] = struct{}{}
	client.rooms[postID] = struct{}{}
	return true
}

// LeaveRoom unsubscribes client from postID's room
func (h *Hub) LeaveRoom(client *Client, postID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveRoomLocked(client, postID)
}

func (h *Hub) leaveRoomLocked(client *Client, postID string) {
	if members, ok := h.rooms[postID]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, postID)
		}
	}
	delete(client.rooms, postID)
}

// RoomSize returns the number of clients viewing postID
func (h *Hub) RoomSize(postID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[postID])
}

// IsUserOnline checks if a user has any active connections
func (h *Hub) IsUserOnline(userID string) bool {
	return h.GetUserConnectionCount(userID) > 0
}

// GetUserConnectionCount returns the number of connections for a user
func (h *Hub) GetUserConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// GetOnlineUsers returns a list of all online user IDs
func (h *Hub) GetOnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]string, 0, len(h.clients))
	for userID := range h.clients {
		users = append(users, userID)
	}
	return users
}

// GetMetrics returns current WebSocket metrics
func (h *Hub) GetMetrics() MetricsSnapshot {
	h.mu.RLock()
	rooms := len(h.rooms)
	h.mu.RUnlock()

	return MetricsSnapshot{
		TotalConnections:   h.metrics.TotalConnections.Load(),
		ActiveConnections:  h.metrics.ActiveConnections.Load(),
		ActiveRooms:        int64(rooms),
		MessagesReceived:   h.metrics.MessagesReceived.Load(),
		MessagesSent:       h.metrics.MessagesSent.Load(),
		Errors:             h.metrics.Errors.Load(),
		ConnectionsDropped: h.metrics.ConnectionsDropped.Load(),
	}
}

// MetricsSnapshot is a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	TotalConnections   int64 `json:"total_connections"`
	ActiveConnections  int64 `json:"active_connections"`
	ActiveRooms        int64 `json:"active_rooms"`
	MessagesReceived   int64 `json:"messages_received"`
	MessagesSent       int64 `json:"messages_sent"`
	Errors             int64 `json:"errors"`
	ConnectionsDropped int64 `json:"connections_dropped"`
}

// String implements Stringer for MetricsSnapshot
func (m MetricsSnapshot) String() string {
	return fmt.Sprintf(
		"connections=%d/%d rooms=%d messages=rx:%d/tx:%d errors=%d dropped=%d",
		m.ActiveConnections, m.TotalConnections, m.ActiveRooms,
		m.MessagesReceived, m.MessagesSent,
		m.Errors, m.ConnectionsDropped,
	)
}

// Shutdown stops the event loop and closes every connection
func (h *Hub) Shutdown(ctx context.Context) error {
	if !h.stopped.CompareAndSwap(false, true) {
		return nil
	}
	logger.Log.Info("Initiating WebSocket hub shutdown")
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Log.Info("WebSocket hub shutdown complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	data, _ := json.Marshal(NewMessage(MessageTypeSystem, SystemPayload{Event: "server_shutdown"}))

	closed := len(h.allClients)
	for client := range h.allClients {
		select {
		case client.send <- data:
		default:
		}
		client.closeSend()
	}

	h.clients = make(map[string]map[*Client]struct{})
	h.rooms = make(map[string]map[*Client]struct{})
	h.allClients = make(map[*Client]struct{})

	logger.Log.Info("Closed websocket connections during shutdown", zap.Int("count", closed))
}

// SetRateLimitConfig updates the rate limiting configuration
func (h *Hub) SetRateLimitConfig(config RateLimitConfig) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rateLimitConfig = config
}

// GetRateLimitConfig returns the current rate limit configuration
func (h *Hub) GetRateLimitConfig() RateLimitConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rateLimitConfig
}
