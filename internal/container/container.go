// Package container wires the backend's services together. cmd/server and
// the handler tests both build their object graph through it.
package container

import (
	"context"
	"sync"

	"github.com/chirpsocial/backend/internal/auth"
	"github.com/chirpsocial/backend/internal/cache"
	"github.com/chirpsocial/backend/internal/conversations"
	"github.com/chirpsocial/backend/internal/graph"
	"github.com/chirpsocial/backend/internal/logger"
	"github.com/chirpsocial/backend/internal/notifications"
	"github.com/chirpsocial/backend/internal/realtime"
	"github.com/chirpsocial/backend/internal/social"
	"github.com/chirpsocial/backend/internal/timeline"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Container holds all application dependencies. Infrastructure is set
// first; Wire then builds the domain services on top of it.
type Container struct {
	// Core infrastructure
	db         *gorm.DB
	cache      *cache.RedisClient
	auth       *auth.Service
	dispatcher realtime.Dispatcher

	// Domain services
	graph         *graph.Store
	notifications *notifications.Engine
	conversations *conversations.Index
	timeline      *timeline.Service
	social        *social.Service

	// Lifecycle hooks
	cleanupFuncs []func(context.Context) error
	mu           sync.RWMutex
}

// New creates a new empty container.
// Infrastructure should be registered using the With* methods.
func New() *Container {
	return &Container{
		cleanupFuncs: make([]func(context.Context) error, 0),
	}
}

// WithDB registers the database connection
func (c *Container) WithDB(db *gorm.DB) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.db = db
	return c
}

// WithCache registers the Redis client. Optional.
func (c *Container) WithCache(client *cache.RedisClient) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = client
	return c
}

// WithAuthService registers the token service
func (c *Container) WithAuthService(service *auth.Service) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auth = service
	return c
}

// WithDispatcher registers the realtime dispatcher (the websocket hub in
// production, a recorder in tests). Optional; defaults to realtime.Nop.
func (c *Container) WithDispatcher(d realtime.Dispatcher) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dispatcher = d
	return c
}

// Validate checks that all required dependencies are registered.
func (c *Container) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	missingDeps := []string{}
	if c.db == nil {
		missingDeps = append(missingDeps, "database (DB)")
	}
	if c.auth == nil {
		missingDeps = append(missingDeps, "auth service")
	}
	if len(missingDeps) > 0 {
		return NewInitializationError("Missing required dependencies", missingDeps)
	}

	if c.cache == nil {
		logger.Log.Warn("Redis not configured, write rate limits are per-instance")
	}
	return nil
}

// Wire validates the infrastructure and builds the domain services
func (c *Container) Wire() error {
	if err := c.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dispatcher == nil {
		c.dispatcher = realtime.Nop{}
	}
	c.graph = graph.NewStore(c.db)
	c.notifications = notifications.NewEngine(c.db, c.dispatcher)
	c.conversations = conversations.NewIndex(c.db, c.dispatcher)
	c.timeline = timeline.NewService(c.db, c.graph)
	c.social = social.NewService(c.graph, c.notifications, c.dispatcher)

	logger.Log.Debug("Container wired", zap.Bool("redis", c.cache != nil))
	return nil
}

// DB returns the database connection
func (c *Container) DB() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// Cache returns the Redis client, or nil
func (c *Container) Cache() *cache.RedisClient {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache
}

// Auth returns the token service
func (c *Container) Auth() *auth.Service {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.auth
}

// Dispatcher returns the realtime dispatcher
func (c *Container) Dispatcher() realtime.Dispatcher {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dispatcher
}

// Graph returns the graph store
func (c *Container) Graph() *graph.Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.graph
}

// Notifications returns the fan-out engine
func (c *Container) Notifications() *notifications.Engine {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.notifications
}

// Conversations returns the conversation index
func (c *Container) Conversations() *conversations.Index {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conversations
}

// Timeline returns the timeline assembler
func (c *Container) Timeline() *timeline.Service {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timeline
}

// Social returns the orchestration service
func (c *Container) Social() *social.Service {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.social
}

// RegisterCleanup adds a function run by Cleanup. Functions run in reverse
// registration order.
func (c *Container) RegisterCleanup(fn func(context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}

// Cleanup runs every registered cleanup function and returns the first error
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	funcs := c.cleanupFuncs
	c.cleanupFuncs = nil
	c.mu.Unlock()

	var firstErr error
	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](ctx); err != nil {
			logger.Log.Error("Cleanup failed", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
