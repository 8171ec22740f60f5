package cache

import (
	"context"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/erp/channelsync/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLockFactory(t *testing.T) {
	ctx := context.Background()

	t.Run("disabled redis uses in-memory lock", func(t *testing.T) {
		lock, closeFn, err := NewRunLockFactory(config.RedisConfig{}).Create(ctx)
		require.NoError(t, err)
		assert.IsType(t, &InMemoryRunLock{}, lock)
		assert.NoError(t, closeFn())
	})

	t.Run("reachable redis", func(t *testing.T) {
		s := miniredis.RunT(t)
		port, err := strconv.Atoi(s.Port())
		require.NoError(t, err)
		host := s.Host()

		lock, closeFn, err := NewRunLockFactory(config.RedisConfig{Enabled: true, Host: host, Port: port}).Create(ctx)
		require.NoError(t, err)
		assert.IsType(t, &RedisRunLock{}, lock)
		assert.NoError(t, closeFn())
	})

	t.Run("unreachable redis without fallback", func(t *testing.T) {
		_, _, err := NewRunLockFactory(config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}).Create(ctx)
		assert.Error(t, err)
	})

	t.Run("unreachable redis with fallback", func(t *testing.T) {
		lock, _, err := NewRunLockFactory(
			config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1},
			WithInMemoryFallback(true),
		).Create(ctx)
		require.NoError(t, err)
		assert.IsType(t, &InMemoryRunLock{}, lock)
	})
}
