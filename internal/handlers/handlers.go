package handlers

import (
	"github.com/chirpsocial/backend/internal/cache"
	"github.com/chirpsocial/backend/internal/container"
	"github.com/chirpsocial/backend/internal/conversations"
	"github.com/chirpsocial/backend/internal/graph"
	"github.com/chirpsocial/backend/internal/notifications"
	"github.com/chirpsocial/backend/internal/social"
	"github.com/chirpsocial/backend/internal/timeline"
	"github.com/chirpsocial/backend/internal/websocket"
	"gorm.io/gorm"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	db            *gorm.DB
	cache         *cache.RedisClient
	social        *social.Service
	graph         *graph.Store
	timeline      *timeline.Service
	notifications *notifications.Engine
	conversations *conversations.Index
	wsHandler     *websocket.Handler
}

// NewHandlers creates a new handlers instance from a wired container
func NewHandlers(c *container.Container) *Handlers {
	return &Handlers{
		db:            c.DB(),
		cache:         c.Cache(),
		social:        c.Social(),
		graph:         c.Graph(),
		timeline:      c.Timeline(),
		notifications: c.Notifications(),
		conversations: c.Conversations(),
	}
}

// SetWebSocketHandler sets the WebSocket handler for real-time events
func (h *Handlers) SetWebSocketHandler(ws *websocket.Handler) {
	h.wsHandler = ws
}
