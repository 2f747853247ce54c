// Package websocket is the real-time dispatcher: one websocket per client,
// a presence registry of who is online and a hub goroutine that owns every
// connection's send buffer.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chirpsocial/backend/internal/config"
	"github.com/chirpsocial/backend/internal/logger"
	"github.com/chirpsocial/backend/internal/metrics"
	"github.com/chirpsocial/backend/internal/realtime"
	"go.uber.org/zap"
)

// outbound is one serialized message waiting for the hub loop
type outbound struct {
	event   string
	data    []byte
	userID  string  // targeted at the user's current connection
	conn    *Client // or at one specific connection
	exclude string  // broadcast skips this connection id
}

// Hub maintains the set of active clients and routes messages to them. All
// sends and closes of a client's buffer happen on the Run goroutine.
type Hub struct {
	clients  map[*Client]struct{}
	presence *Registry

	register   chan *Client
	unregister chan *Client
	outbound   chan outbound

	cfg       config.RealtimeConfig
	rateLimit RateLimitConfig

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// RateLimitConfig bounds inbound client messages
type RateLimitConfig struct {
	MaxMessagesPerSecond int
	BurstSize            int
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{MaxMessagesPerSecond: 10, BurstSize: 20}
}

var _ realtime.Dispatcher = (*Hub)(nil)

// NewHub creates a new Hub instance
func NewHub(cfg config.RealtimeConfig) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 64 * 1024
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]struct{}),
		presence:   NewRegistry(),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		outbound:   make(chan outbound, 1024),
		cfg:        cfg,
		rateLimit:  DefaultRateLimitConfig(),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Presence exposes the registry for read-only queries
func (h *Hub) Presence() *Registry {
	return h.presence
}

// Run is the hub's event loop. It returns after Shutdown.
func (h *Hub) Run() {
	logger.Log.Info("🔌 WebSocket hub starting...")
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.outbound:
			h.deliver(msg)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.clients[client] = struct{}{}
	if prev := h.presence.Register(client.UserID, client); prev != nil {
		logger.Log.Debug("Connection replaced",
			logger.WithUserID(client.UserID),
			zap.String("previous_conn_id", prev.ID),
			logger.WithConnID(client.ID))
	}
	metrics.Get().WebSocketConnections.Inc()
	logger.Log.Info("✅ Client connected",
		logger.WithUserID(client.UserID),
		logger.WithConnID(client.ID),
		zap.Int("connections", len(h.clients)))
	h.publishOnline()
}

func (h *Hub) unregisterClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	metrics.Get().WebSocketConnections.Dec()
	logger.Log.Info("❌ Client disconnected",
		logger.WithUserID(client.UserID),
		logger.WithConnID(client.ID),
		zap.Int("connections", len(h.clients)))

	if h.presence.Remove(client) {
		h.publishOnline()
	}
}

// publishOnline broadcasts the registry snapshot. It runs on the hub
// goroutine right after the change, so every client sees whole snapshots
// in order.
func (h *Hub) publishOnline() {
	ids := h.presence.Snapshot()
	metrics.Get().OnlineUsers.Set(float64(len(ids)))

	data, err := json.Marshal(NewEvent(realtime.EventOnlineUsers, OnlineUsersPayload{UserIDs: ids}))
	if err != nil {
		logger.Log.Error("Failed to marshal online users", zap.Error(err))
		return
	}
	for client := range h.clients {
		h.trySend(client, string(realtime.EventOnlineUsers), data)
	}
}

func (h *Hub) deliver(msg outbound) {
	switch {
	case msg.conn != nil:
		if _, ok := h.clients[msg.conn]; ok {
			h.trySend(msg.conn, msg.event, msg.data)
		}
	case msg.userID != "":
		client, ok := h.presence.Lookup(msg.userID)
		if !ok {
			// went offline between NotifyUser and now
			metrics.Get().RealtimeEventsTotal.WithLabelValues(msg.event, "offline").Inc()
			return
		}
		h.trySend(client, msg.event, msg.data)
	default:
		for client := range h.clients {
			if msg.exclude != "" && client.ID == msg.exclude {
				continue
			}
			h.trySend(client, msg.event, msg.data)
		}
	}
}

// trySend never blocks the loop: a full buffer drops the message
func (h *Hub) trySend(client *Client, event string, data []byte) {
	select {
	case client.send <- data:
		metrics.Get().RealtimeEventsTotal.WithLabelValues(event, "sent").Inc()
	default:
		metrics.Get().RealtimeEventsTotal.WithLabelValues(event, "dropped").Inc()
		logger.Log.Debug("Send buffer full, dropping message",
			zap.String("event", event),
			logger.WithConnID(client.ID))
	}
}

func (h *Hub) enqueue(msg outbound) {
	select {
	case h.outbound <- msg:
	case <-h.ctx.Done():
	default:
		metrics.Get().RealtimeEventsTotal.WithLabelValues(msg.event, "dropped").Inc()
		logger.Log.Warn("Hub queue full, dropping message", zap.String("event", msg.event))
	}
}

func marshalEvent(event realtime.EventType, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(NewEvent(event, payload))
	if err != nil {
		logger.Log.Error("Failed to marshal realtime event", zap.String("event", string(event)), zap.Error(err))
	}
	return data, err
}

// NotifyUser pushes an event to the user's current connection. It reports
// false when the user is offline; the event is then discarded.
func (h *Hub) NotifyUser(userID string, event realtime.EventType, payload interface{}) bool {
	if _, ok := h.presence.Lookup(userID); !ok {
		metrics.Get().RealtimeEventsTotal.WithLabelValues(string(event), "offline").Inc()
		return false
	}
	data, err := marshalEvent(event, payload)
	if err != nil {
		return false
	}
	h.enqueue(outbound{event: string(event), data: data, userID: userID})
	return true
}

// Broadcast pushes an event to every connection except excludeConnID
func (h *Hub) Broadcast(event realtime.EventType, payload interface{}, excludeConnID string) {
	data, err := marshalEvent(event, payload)
	if err != nil {
		return
	}
	h.enqueue(outbound{event: string(event), data: data, exclude: excludeConnID})
}

// reply sends a control message to one connection
func (h *Hub) reply(client *Client, msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.enqueue(outbound{event: msg.Type, data: data, conn: client})
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// IsUserOnline checks if a user has a registered connection
func (h *Hub) IsUserOnline(userID string) bool {
	_, ok := h.presence.Lookup(userID)
	return ok
}

// Shutdown stops the loop and closes every connection's buffer
func (h *Hub) Shutdown(ctx context.Context) error {
	logger.Log.Info("🔌 Initiating WebSocket hub shutdown...")
	h.cancel()

	select {
	case <-h.done:
		logger.Log.Info("🔌 WebSocket hub shutdown complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}

func (h *Hub) shutdown() {
	data, _ := json.Marshal(NewMessage(MessageTypeSystem, SystemPayload{Event: "server_shutdown"}))
	for client := range h.clients {
		select {
		case client.send <- data:
		default:
		}
		close(client.send)
		h.presence.Remove(client)
	}
	logger.Log.Info("🔌 Closed connections during shutdown", zap.Int("count", len(h.clients)))
	h.clients = make(map[*Client]struct{})
	metrics.Get().WebSocketConnections.Set(0)
	metrics.Get().OnlineUsers.Set(0)
}
