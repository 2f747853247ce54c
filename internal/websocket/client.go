package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/chirpsocial/backend/internal/logger"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// Client is one websocket connection. ID is what the client echoes back in
// the X-Connection-ID header so its own writes are not broadcast back to it.
type Client struct {
	ID     string
	UserID string

	conn *websocket.Conn
	hub  *Hub

	// written and closed only by the hub loop
	send chan []byte

	ConnectedAt time.Time
	RemoteAddr  string
	UserAgent   string

	rateLimiter *RateLimiter

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// RateLimiter implements a simple token bucket rate limiter
type RateLimiter struct {
	tokens    float64
	maxTokens float64
	refill    float64
	lastTime  time.Time
	mu        sync.Mutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(maxPerSecond int, burst int) *RateLimiter {
	return &RateLimiter{
		tokens:    float64(burst),
		maxTokens: float64(burst),
		refill:    float64(maxPerSecond),
		lastTime:  time.Now(),
	}
}

// Allow checks if an action is allowed and consumes a token
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(r.lastTime).Seconds()
	r.lastTime = now

	r.tokens += elapsed * r.refill
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}
	if r.tokens >= 1 {
		r.tokens--
		return true
	}
	return false
}

// NewClient creates a client for an accepted connection
func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		ID:          uuid.NewString(),
		UserID:      userID,
		conn:        conn,
		hub:         hub,
		send:        make(chan []byte, hub.cfg.SendBuffer),
		ConnectedAt: time.Now().UTC(),
		rateLimiter: NewRateLimiter(hub.rateLimit.MaxMessagesPerSecond, hub.rateLimit.BurstSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ReadPump reads client messages until the connection fails, then
// unregisters. Clients only send pings; everything else is answered with
// an error.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)

	for {
		// a live client pings at least every two intervals
		readCtx, readCancel := context.WithTimeout(c.ctx, 2*c.hub.cfg.PingInterval)
		_, data, err := c.conn.Read(readCtx)
		readCancel()

		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				logger.Log.Debug("Client disconnected normally", logger.WithConnID(c.ID))
			} else if c.ctx.Err() == nil {
				logger.Log.Warn("Read error for client",
					logger.WithUserID(c.UserID),
					logger.WithConnID(c.ID),
					zap.Error(err))
			}
			return
		}

		if !c.rateLimiter.Allow() {
			c.hub.reply(c, NewErrorMessage("rate_limited", "Too many messages, please slow down"))
			continue
		}

		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			c.hub.reply(c, NewErrorMessage("invalid_json", "Failed to parse message"))
			continue
		}
		c.handleMessage(&message)
	}
}

// WritePump drains the send buffer onto the connection and keeps it alive
// with pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return

		case message, ok := <-c.send:
			if !ok {
				// hub closed the channel
				return
			}
			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				logger.Log.Debug("Write error for client", logger.WithConnID(c.ID), zap.Error(err))
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				logger.Log.Debug("Ping failed for client", logger.WithConnID(c.ID), zap.Error(err))
				return
			}
		}
	}
}

func (c *Client) handleMessage(message *Message) {
	switch message.Type {
	case MessageTypePing, "heartbeat":
		var ping PingPayload
		if err := message.ParsePayload(&ping); err != nil {
			ping.ClientTime = 0
		}
		serverTime := time.Now().UnixMilli()
		pong := NewMessage(MessageTypePong, PongPayload{
			ClientTime: ping.ClientTime,
			ServerTime: serverTime,
			Latency:    serverTime - ping.ClientTime,
		})
		pong.ReplyTo = message.ID
		c.hub.reply(c, pong)
	default:
		c.hub.reply(c, NewErrorMessage("unknown_type", "Unknown message type: "+message.Type))
	}
}

// Close closes the connection once
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		if c.conn != nil {
			c.conn.Close(websocket.StatusNormalClosure, "closing")
		}
	})
}
