// Package container wires FlexBase's services together and owns their
// shutdown order.
package container

import (
	"context"
	"sync"

	"github.com/flexbase/flexbase/internal/auth"
	"github.com/flexbase/flexbase/internal/logger"
	"github.com/flexbase/flexbase/internal/repository"
	"github.com/flexbase/flexbase/internal/social"
	"github.com/flexbase/flexbase/internal/storage"
	"github.com/flexbase/flexbase/internal/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Container holds all application dependencies and provides type-safe access.
type Container struct {
	// Core infrastructure
	store    repository.Store
	redis    *redis.Client
	uploader storage.Uploader
	mediaDir string

	// Services
	auth   *auth.Service
	social *social.Service

	// Realtime
	hub       *websocket.Hub
	relay     *websocket.Relay
	wsHandler *websocket.Handler

	// Lifecycle hooks
	cleanupFuncs []func(context.Context) error
	mu           sync.RWMutex
}

// New creates a new empty container.
// Services should be registered using Set* methods.
func New() *Container {
	return &Container{
		cleanupFuncs: make([]func(context.Context) error, 0),
	}
}

// ============================================================================
// CORE INFRASTRUCTURE
// ============================================================================

// SetStore registers the persistence backend
func (c *Container) SetStore(store repository.Store) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = store
	return c
}

// Store returns the persistence backend
func (c *Container) Store() repository.Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store
}

// SetRedis registers the Redis client. nil means single-instance mode.
func (c *Container) SetRedis(client *redis.Client) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.redis = client
	return c
}

// Redis returns the Redis client, which may be nil
func (c *Container) Redis() *redis.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.redis
}

// SetUploader registers the media backend. mediaDir is the directory the
// server exposes under /media, empty for remote backends.
func (c *Container) SetUploader(uploader storage.Uploader, mediaDir string) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploader = uploader
	c.mediaDir = mediaDir
	return c
}

// Uploader returns the media backend
func (c *Container) Uploader() storage.Uploader {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.uploader
}

// MediaDir is the local media directory, if any
func (c *Container) MediaDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mediaDir
}

// ============================================================================
// SERVICES
// ============================================================================

// SetAuthService registers the auth service
func (c *Container) SetAuthService(service *auth.Service) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auth = service
	return c
}

// Auth returns the auth service
func (c *Container) Auth() *auth.Service {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.auth
}

// SetSocialService registers the social service
func (c *Container) SetSocialService(service *social.Service) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.social = service
	return c
}

// Social returns the social service
func (c *Container) Social() *social.Service {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.social
}

// ============================================================================
// REALTIME
// ============================================================================

// SetRealtime registers the hub, the relay publishing into it and the
// upgrade handler
func (c *Container) SetRealtime(hub *websocket.Hub, relay *websocket.Relay, handler *websocket.Handler) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hub = hub
	c.relay = relay
	c.wsHandler = handler
	return c
}

// Hub returns the websocket hub
func (c *Container) Hub() *websocket.Hub {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hub
}

// Relay returns the event publisher services write to
func (c *Container) Relay() *websocket.Relay {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.relay
}

// WebSocketHandler returns the upgrade handler
func (c *Container) WebSocketHandler() *websocket.Handler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.wsHandler
}

// ============================================================================
// LIFECYCLE
// ============================================================================

// OnCleanup registers a cleanup function to be called during shutdown.
// Cleanup functions are called in LIFO order (last registered, first cleaned up).
func (c *Container) OnCleanup(fn func(context.Context) error) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
	return c
}

// Cleanup runs the registered cleanup functions in reverse order. Failures
// are logged and the first one is returned after every function has run.
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	funcs := c.cleanupFuncs
	c.cleanupFuncs = nil
	c.mu.Unlock()

	var first error
	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](ctx); err != nil {
			logger.Log.Error("Cleanup function failed", zap.Int("index", i), zap.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// ============================================================================
// VALIDATION
// ============================================================================

// Validate checks that all required dependencies are registered.
// This should be called after initialization and before starting the server.
func (c *Container) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var missing []string
	if c.store == nil {
		missing = append(missing, "store")
	}
	if c.uploader == nil {
		missing = append(missing, "media uploader")
	}
	if c.auth == nil {
		missing = append(missing, "auth service")
	}
	if c.social == nil {
		missing = append(missing, "social service")
	}
	if c.hub == nil || c.relay == nil || c.wsHandler == nil {
		missing = append(missing, "realtime hub")
	}

	if len(missing) > 0 {
		return NewInitializationError("Missing required dependencies", missing)
	}

	if c.redis == nil {
		logger.Log.Warn("Redis not configured, realtime events stay on this instance")
	}
	return nil
}
