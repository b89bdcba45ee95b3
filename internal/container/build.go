package container

import (
	"context"
	"time"

	"github.com/flexbase/flexbase/internal/auth"
	"github.com/flexbase/flexbase/internal/cache"
	"github.com/flexbase/flexbase/internal/config"
	"github.com/flexbase/flexbase/internal/database"
	"github.com/flexbase/flexbase/internal/logger"
	"github.com/flexbase/flexbase/internal/metrics"
	"github.com/flexbase/flexbase/internal/repository"
	"github.com/flexbase/flexbase/internal/social"
	"github.com/flexbase/flexbase/internal/storage"
	"github.com/flexbase/flexbase/internal/websocket"
	"go.uber.org/zap"
)

// Build opens every backing service named by cfg and wires the application
// services on top. On error everything opened so far is closed again.
func Build(ctx context.Context, cfg *config.Config) (_ *Container, err error) {
	c := New()
	defer func() {
		if err != nil {
			_ = c.Cleanup(context.Background())
		}
	}()

	store, err := c.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.SetStore(store)

	rdb, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, &ServiceError{Service: "redis", Err: err}
	}
	if rdb != nil {
		c.OnCleanup(func(context.Context) error { return cache.Close(rdb) })
	}
	c.SetRedis(rdb)

	uploader, mediaDir, err := openUploader(ctx, cfg)
	if err != nil {
		return nil, &ServiceError{Service: "media storage", Err: err}
	}
	c.SetUploader(uploader, mediaDir)

	c.wire([]byte(cfg.JWTSecret), cfg.TokenTTL(), cfg.Origins())
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	if cfg.IsTest() {
		logger.Log.Info("Using in-memory store", zap.String("env", cfg.Env))
		return repository.NewMemoryStore(), nil
	}

	db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, &ServiceError{Service: "mongodb", Err: err}
	}
	c.OnCleanup(db.Close)

	if err := db.EnsureIndexes(ctx); err != nil {
		return nil, &ServiceError{Service: "mongodb indexes", Err: err}
	}
	return repository.NewMongoStore(db, cfg.MongoTransactions), nil
}

func openUploader(ctx context.Context, cfg *config.Config) (storage.Uploader, string, error) {
	if cfg.MediaBackend == config.MediaBackendS3 {
		u, err := storage.NewS3Uploader(ctx, storage.S3Options{
			Region:   cfg.AWSRegion,
			Bucket:   cfg.S3Bucket,
			BaseURL:  cfg.CDNBaseURL,
			Endpoint: cfg.S3Endpoint,
			MaxBytes: cfg.MaxUploadBytes(),
		})
		if err != nil {
			return nil, "", err
		}
		// Uploads fail loudly later; a cold bucket should not block startup
		if err := u.CheckBucketAccess(ctx); err != nil {
			logger.WarnWithFields("S3 bucket check failed", err)
		}
		return u, "", nil
	}

	u, err := storage.NewLocalUploader(cfg.MediaDir, cfg.MediaBaseURL, cfg.MaxUploadBytes())
	if err != nil {
		return nil, "", err
	}
	return u, u.Dir(), nil
}

// wire builds the services that sit on the registered store, Redis client
// and uploader
func (c *Container) wire(secret []byte, ttl time.Duration, origins []string) {
	store := c.Store()

	hub := websocket.NewHub()
	relay := websocket.NewRelay(c.Redis(), hub)

	authSvc := auth.NewService(store.Users(), secret, ttl)
	socialSvc := social.NewService(store, relay)
	socialSvc.SetMediaRemover(c.Uploader())

	wsHandler := websocket.NewHandler(hub, authSvc)
	wsHandler.RegisterDefaultHandlers()
	wsHandler.SetRoomAuthorizer(socialSvc.CanViewPost)
	wsHandler.SetAllowedOrigins(origins)

	c.SetAuthService(authSvc)
	c.SetSocialService(socialSvc)
	c.SetRealtime(hub, relay, wsHandler)
}

// Start runs the hub loop and the Redis subscription until ctx ends or
// Cleanup runs
func (c *Container) Start(ctx context.Context) error {
	hub := c.Hub()
	go hub.Run()
	c.OnCleanup(hub.Shutdown)

	metrics.RegisterRealtimeGauges(
		func() float64 { return float64(hub.GetMetrics().ActiveConnections) },
		func() float64 { return float64(hub.GetMetrics().ActiveRooms) },
	)

	if err := c.Relay().Start(ctx); err != nil {
		return &ServiceError{Service: "realtime relay", Err: err}
	}
	return nil
}
