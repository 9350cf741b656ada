package cache

import (
	"context"
	"testing"
	"time"

	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// unreachableRedis points at a port nothing listens on
var unreachableRedis = config.RedisConfig{Host: "127.0.0.1", Port: 1}

func TestIdempotencyStoreFactory_CreateStore(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled yields no store", func(t *testing.T) {
		f := NewIdempotencyStoreFactory(config.IdempotencyConfig{Enabled: false, Backend: BackendRedis}, unreachableRedis)
		store, err := f.CreateStore(ctx)
		require.NoError(t, err)
		assert.Nil(t, store)
	})

	t.Run("memory backend", func(t *testing.T) {
		f := NewIdempotencyStoreFactory(config.IdempotencyConfig{Enabled: true, Backend: BackendMemory}, unreachableRedis)
		store, err := f.CreateStore(ctx)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("unreachable redis falls back with a warning", func(t *testing.T) {
		core, recorded := observer.New(zapcore.WarnLevel)
		f := NewIdempotencyStoreFactory(
			config.IdempotencyConfig{Enabled: true, Backend: BackendRedis},
			unreachableRedis,
			WithLogger(zap.New(core)),
		)
		store, err := f.CreateStore(ctx)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
		assert.Equal(t, 1, recorded.Len())
	})

	t.Run("unreachable redis without fallback fails", func(t *testing.T) {
		f := NewIdempotencyStoreFactory(
			config.IdempotencyConfig{Enabled: true, Backend: BackendRedis},
			unreachableRedis,
			WithInMemoryFallback(false),
		)
		_, err := f.CreateStore(ctx)
		assert.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		f := NewIdempotencyStoreFactory(config.IdempotencyConfig{Enabled: true, Backend: "etcd"}, unreachableRedis)
		_, err := f.CreateStore(ctx)
		assert.ErrorContains(t, err, "etcd")
	})
}

func TestIdempotencyStoreFactory_SharedConfig(t *testing.T) {
	f := NewIdempotencyStoreFactory(config.IdempotencyConfig{Enabled: true, TTL: time.Hour}, unreachableRedis)
	cfg := f.SharedConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, time.Hour, cfg.TTL)

	f = NewIdempotencyStoreFactory(config.IdempotencyConfig{}, unreachableRedis)
	cfg = f.SharedConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.TTL)
}
