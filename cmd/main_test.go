package main

import (
	"context"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/gearguard/internal/config"
	"github.com/ukydev/gearguard/internal/events"
	"github.com/ukydev/gearguard/internal/middleware"
	"github.com/ukydev/gearguard/internal/storage"
)

func TestSetupLogging(t *testing.T) {
	defer log.SetLevel(log.InfoLevel)
	defer log.SetFormatter(&log.TextFormatter{})

	setupLogging(config.LogConfig{Level: "debug", Format: "json"})
	assert.Equal(t, log.DebugLevel, log.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)

	setupLogging(config.LogConfig{Level: "chatty", Format: "text"})
	assert.Equal(t, log.InfoLevel, log.GetLevel())
	assert.IsType(t, &log.TextFormatter{}, log.StandardLogger().Formatter)
}

func TestOpenStore_Memory(t *testing.T) {
	store, closeStore, err := openStore(context.Background(), &config.Config{StoreDriver: config.StoreMemory})
	require.NoError(t, err)
	defer closeStore()
	assert.NotNil(t, store.Requests)
	assert.NotNil(t, store.Users)
}

func TestNewPublisher_None(t *testing.T) {
	p, err := newPublisher(config.EventsConfig{Driver: config.EventsNone})
	require.NoError(t, err)
	assert.IsType(t, events.Nop{}, p)
}

func TestNewBlobStore_Local(t *testing.T) {
	b, err := newBlobStore(context.Background(), config.StorageConfig{Driver: config.StorageLocal, UploadDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &storage.LocalStore{}, b)
}

func TestNewLimiter(t *testing.T) {
	cfg := &config.Config{RateLimit: config.RateLimitConfig{Enabled: false}}
	assert.Nil(t, newLimiter(context.Background(), cfg))

	cfg.RateLimit = config.RateLimitConfig{Enabled: true, Requests: 5, Window: time.Minute}
	assert.IsType(t, &middleware.MemoryLimiter{}, newLimiter(context.Background(), cfg))

	// Nothing listens on port 1, so the limiter falls back to memory.
	cfg.Redis.Addr = "127.0.0.1:1"
	assert.IsType(t, &middleware.MemoryLimiter{}, newLimiter(context.Background(), cfg))
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := &config.Config{
		Port:        "0",
		StoreDriver: config.StoreMemory,
		Auth:        config.AuthConfig{JWTSecret: "test", JWTExpiry: time.Hour},
		Events:      config.EventsConfig{Driver: config.EventsNone},
		Storage:     config.StorageConfig{Driver: config.StorageLocal, UploadDir: t.TempDir(), MaxUploadBytes: 1 << 20},
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
