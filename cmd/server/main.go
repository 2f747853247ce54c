package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chirpsocial/backend/internal/auth"
	"github.com/chirpsocial/backend/internal/cache"
	"github.com/chirpsocial/backend/internal/config"
	"github.com/chirpsocial/backend/internal/container"
	"github.com/chirpsocial/backend/internal/database"
	"github.com/chirpsocial/backend/internal/handlers"
	"github.com/chirpsocial/backend/internal/logger"
	"github.com/chirpsocial/backend/internal/metrics"
	"github.com/chirpsocial/backend/internal/middleware"
	"github.com/chirpsocial/backend/internal/repository"
	"github.com/chirpsocial/backend/internal/telemetry"
	"github.com/chirpsocial/backend/internal/util"
	"github.com/chirpsocial/backend/internal/validation"
	"github.com/chirpsocial/backend/internal/websocket"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger is not up yet
		os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.Log.Level, cfg.Log.File); err != nil {
		os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Close()

	logger.Log.Info("=== Chirp server starting ===", zap.String("environment", cfg.Environment))
	metrics.Initialize()

	tp, err := telemetry.InitTracer(context.Background(), cfg.Tracing, cfg.Environment)
	if err != nil {
		logger.WarnWithFields("Tracing disabled", err)
	}

	if err := database.Initialize(cfg.Database, cfg.IsDevelopment()); err != nil {
		logger.FatalWithFields("Failed to initialize database", err)
	}
	if err := database.Migrate(database.DB); err != nil {
		logger.FatalWithFields("Failed to run migrations", err)
	}

	var redisClient *cache.RedisClient
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.WarnWithFields("Redis unavailable, continuing without it", err)
			redisClient = nil
		}
	}

	checks := map[string]validation.Check{
		"database": func(ctx context.Context) error {
			sqlDB, err := database.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"redis": func(ctx context.Context) error {
			if redisClient == nil {
				return errors.New("redis not connected")
			}
			return redisClient.Ping(ctx)
		},
	}
	if err := validation.NewServiceValidator(checks).ValidateServices(context.Background()); err != nil {
		logger.FatalWithFields("Required service unavailable", err)
	}

	authService := auth.NewService([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)

	hub := websocket.NewHub(cfg.Realtime)
	go hub.Run()

	app := container.New().
		WithDB(database.DB).
		WithCache(redisClient).
		WithAuthService(authService).
		WithDispatcher(hub)
	if err := app.Wire(); err != nil {
		logger.FatalWithFields("Failed to wire services", err)
	}
	app.RegisterCleanup(func(context.Context) error { return database.Close() })
	if redisClient != nil {
		app.RegisterCleanup(func(context.Context) error { return redisClient.Close() })
	}
	if tp != nil {
		app.RegisterCleanup(tp.Shutdown)
	}
	app.RegisterCleanup(hub.Shutdown)

	wsHandler := websocket.NewHandler(hub, authService, repository.NewUserRepository(database.DB), cfg.CORSOrigins)
	h := handlers.NewHandlers(app)
	h.SetWebSocketHandler(wsHandler)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.Tracing())
	r.Use(middleware.GinLogger())
	r.Use(middleware.MetricsMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization",
		middleware.RequestIDHeader, util.ConnectionIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader, "Retry-After"}
	r.Use(cors.New(corsConfig))
	// websocket upgrades must not be wrapped by the gzip writer
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/ws"})))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var counter middleware.WindowCounter
	if redisClient != nil {
		counter = redisClient
	}
	h.SetupRoutes(r, authService, middleware.WriteRateLimit(counter, middleware.WriteRateLimitConfig(cfg.WriteRateLimit)))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("🐦 Chirp backend starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.FatalWithFields("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.ErrorWithFields("Server forced to shutdown", err)
	}
	if err := app.Cleanup(ctx); err != nil {
		logger.ErrorWithFields("Cleanup incomplete", err)
	}

	logger.Log.Info("Server exited")
}
