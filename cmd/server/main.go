package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/flexbase/flexbase/internal/config"
	"github.com/flexbase/flexbase/internal/container"
	"github.com/flexbase/flexbase/internal/handlers"
	"github.com/flexbase/flexbase/internal/logger"
	"github.com/flexbase/flexbase/internal/metrics"
	"github.com/flexbase/flexbase/internal/middleware"
	"github.com/flexbase/flexbase/internal/telemetry"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Close() }()

	logger.Log.Info("=== FlexBase server starting ===",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.ServiceVersion))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.InitTracer(ctx, telemetry.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.ServiceVersion,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTelEndpoint,
		Enabled:        cfg.OTelEnabled,
		SamplingRate:   cfg.OTelSamplingRate,
	})
	if err != nil {
		logger.Log.Warn("Tracing disabled", zap.Error(err))
	}
	defer func() {
		if err := telemetry.Shutdown(tp, 5*time.Second); err != nil {
			logger.Log.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	metrics.Initialize()

	app, err := container.Build(ctx, cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize services", zap.Error(err))
	}
	if err := app.Start(ctx); err != nil {
		logger.Log.Fatal("Failed to start realtime services", zap.Error(err))
	}

	router, err := newRouter(cfg, app)
	if err != nil {
		logger.Log.Fatal("Failed to set up routes", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("FlexBase listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	// Closes websocket clients, then Redis and Mongo
	if err := app.Cleanup(shutdownCtx); err != nil {
		logger.Log.Warn("Cleanup finished with errors", zap.Error(err))
	}

	logger.Log.Info("Server exited")
}

func newRouter(cfg *config.Config, app *container.Container) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.GinLogger(),
		middleware.ErrorHandler(!cfg.IsProduction()),
		middleware.Recovery(),
		middleware.MetricsMiddleware(),
		middleware.TracingMiddleware(cfg.ServiceName),
		middleware.SpanAttributes(),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/ws", "/metrics"})),
		cors.New(corsConfig(cfg.Origins())),
	)

	apiLimit := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPM > 0 {
		apiLimit.Limit = cfg.RateLimitRPM
	}
	rdb := app.Redis()
	r.Use(limiter(rdb, apiLimit))

	h := handlers.NewHandlers(app.Auth(), app.Social(), app.Uploader(), app.Store())
	h.SetHub(app.Hub())
	h.SetSessionCookie(cfg.IsProduction(), cfg.TokenTTL())

	err := h.RegisterRoutes(r, handlers.RouteOptions{
		WebSocket:     app.WebSocketHandler().HandleWebSocket,
		MediaDir:      app.MediaDir(),
		MediaURL:      cfg.MediaBaseURL,
		AuthLimiter:   limiter(rdb, middleware.AuthRateLimitConfig()),
		UploadLimiter: limiter(rdb, middleware.UploadRateLimitConfig()),
	})
	return r, err
}

// limiter shares counts through Redis when it is configured
func limiter(rdb *redis.Client, rl middleware.RateLimitConfig) gin.HandlerFunc {
	if rdb != nil {
		return middleware.RedisRateLimiter(rdb, rl)
	}
	return middleware.NewRateLimiter(rl)
}

func corsConfig(origins []string) cors.Config {
	cc := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
		cc.AllowCredentials = true
	}
	cc.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cc.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"}
	cc.ExposeHeaders = []string{"X-Request-ID", "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"}
	cc.MaxAge = 12 * time.Hour
	return cc
}

