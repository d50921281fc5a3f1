package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/gearguard/internal/auth"
	"github.com/ukydev/gearguard/internal/config"
	"github.com/ukydev/gearguard/internal/db"
	"github.com/ukydev/gearguard/internal/db/memory"
	"github.com/ukydev/gearguard/internal/events"
	"github.com/ukydev/gearguard/internal/handlers"
	"github.com/ukydev/gearguard/internal/maintenance"
	"github.com/ukydev/gearguard/internal/middleware"
	"github.com/ukydev/gearguard/internal/storage"
)

func setupLogging(cfg config.LogConfig) {
	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.WithField("level", cfg.Level).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

// openStore returns the configured store and a function releasing it.
func openStore(ctx context.Context, cfg *config.Config) (*db.Store, func(), error) {
	if cfg.StoreDriver == config.StoreMemory {
		log.Warn("Using in-memory store, data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	client, err := db.ConnectMongo(ctx, cfg.Mongo.URI)
	if err != nil {
		return nil, nil, err
	}
	database := client.Database(cfg.Mongo.Database)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	log.WithField("database", cfg.Mongo.Database).Info("Connected to MongoDB")

	closer := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			log.WithError(err).Warn("MongoDB disconnect failed")
		}
	}
	return db.NewMongoStore(database), closer, nil
}

func newPublisher(cfg config.EventsConfig) (events.Publisher, error) {
	switch cfg.Driver {
	case config.EventsMQTT:
		return events.NewMQTTPublisher(events.MQTTConfig{
			Broker:      cfg.MQTTBroker,
			ClientID:    cfg.MQTTClientID,
			TopicPrefix: cfg.MQTTTopicPrefix,
			QoS:         1,
		})
	case config.EventsAMQP:
		return events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	default:
		return events.Nop{}, nil
	}
}

func newBlobStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	if cfg.Driver == config.StorageMinIO {
		return storage.NewMinIOStore(ctx, storage.MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		})
	}
	return storage.NewLocalStore(cfg.UploadDir)
}

// newLimiter prefers a shared Redis window and falls back to a per-process
// one. It returns nil when rate limiting is disabled.
func newLimiter(ctx context.Context, cfg *config.Config) middleware.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	if client := config.NewRedisClient(ctx, cfg.Redis); client != nil {
		log.WithField("addr", cfg.Redis.Addr).Info("Rate limiting with Redis")
		return middleware.NewRedisLimiter(client, cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Prefix)
	}
	if cfg.Redis.Addr != "" {
		log.WithField("addr", cfg.Redis.Addr).Warn("Redis unreachable, rate limiting in memory")
	}
	return middleware.NewMemoryLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
}

func run(ctx context.Context, cfg *config.Config) error {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	publisher, err := newPublisher(cfg.Events)
	if err != nil {
		return fmt.Errorf("event publisher: %w", err)
	}
	defer publisher.Close()

	blobs, err := newBlobStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("attachment storage: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		log.Warn("JWT_SECRET is not set, using the built-in development secret")
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Auth:  auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry),
		Users: store.Users,
		Service: maintenance.NewService(store,
			maintenance.WithPublisher(publisher),
			maintenance.WithBlobStore(blobs),
		),
		Limiter:   newLimiter(ctx, cfg),
		MaxUpload: cfg.Storage.MaxUploadBytes,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}
	setupLogging(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
}
