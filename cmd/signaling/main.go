package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mossy-p/social-signaling/config"
	"github.com/mossy-p/social-signaling/internal/broker"
	"github.com/mossy-p/social-signaling/internal/directory"
	"github.com/mossy-p/social-signaling/internal/handlers"
	"github.com/mossy-p/social-signaling/internal/logger"
	"github.com/mossy-p/social-signaling/internal/middleware"
	"github.com/mossy-p/social-signaling/internal/presence"
	"github.com/mossy-p/social-signaling/internal/redis"
	"github.com/mossy-p/social-signaling/internal/signaling"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log := logger.New(cfg.LogLevel, cfg.Environment).With(zap.String("instance", cfg.InstanceID))
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hubOpts := signaling.Options{
		EventBuffer: cfg.EventBuffer,
		Log:         log.Named("hub"),
	}

	// Identity Directory
	var dir directory.Directory = directory.Noop{}
	if cfg.Mongo.Enabled() {
		mc, err := directory.Connect(ctx, cfg.Mongo)
		if err != nil {
			log.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		defer mc.Disconnect(context.Background())

		store := directory.NewMongo(mc.Database(cfg.Mongo.Database))
		dir = store
		hubOpts.Posts = store
		log.Info("MongoDB connection established", zap.String("database", cfg.Mongo.Database))
	} else {
		log.Warn("MONGO_URI not set, directory updates are disabled")
	}
	hubOpts.Directory = dir

	// Shared presence for multi-instance deployments
	if cfg.Redis.Enabled() {
		rc, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer rc.Close()
		log.Info("Redis connection established")

		var b broker.Broker
		switch cfg.Broker.Kind {
		case "redis":
			b = broker.NewRedis(rc, log.Named("broker"))
		case "nats":
			nb, err := broker.ConnectNATS(cfg.Broker.NATSURL, "signaling-"+cfg.InstanceID, log.Named("broker"))
			if err != nil {
				log.Fatal("Failed to connect to NATS", zap.Error(err))
			}
			b = nb
		default:
			log.Fatal("Shared presence requires BROKER=redis or BROKER=nats", zap.String("broker", cfg.Broker.Kind))
		}
		defer b.Close()

		store := presence.NewRedisStore(rc, cfg.Presence.TTL)
		hubOpts.Remote = signaling.NewRemote(cfg.InstanceID, store, b, log.Named("remote"))
	}

	hub := signaling.NewHub(hubOpts)
	hubDone := make(chan error, 1)
	go func() { hubDone <- hub.Run(ctx) }()

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Global CORS middleware (runs before routing)
	router.Use(handlers.OriginFilter(cfg.AllowedOrigins))

	router.GET("/health", handlers.Health(hub))

	apiGroup := router.Group("/api")
	{
		if cfg.Environment != "production" {
			apiGroup.POST("/auth/token", handlers.IssueToken(dir, cfg.JWTSecret, log))
		}

		apiGroup.GET("/presence/:userId", middleware.JWTAuth(cfg.JWTSecret), handlers.GetPresence(hub))
		apiGroup.POST("/calls", middleware.JWTAuth(cfg.JWTSecret), handlers.InitiateCall(hub))
	}

	wsAuth := middleware.OptionalJWTAuth(cfg.JWTSecret)
	if cfg.AuthRequired {
		wsAuth = middleware.JWTAuth(cfg.JWTSecret)
	}
	ws := handlers.NewSignalingHandler(hub, cfg.SendBuffer, log.Named("ws"))
	router.GET("/ws", wsAuth, ws.HandleSignaling)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("Starting signaling server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-hubDone:
		log.Error("hub exited", zap.Error(err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}
