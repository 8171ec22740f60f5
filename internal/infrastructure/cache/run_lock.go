package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/channelsync/internal/domain/integration"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RunLockKeyPrefix namespaces run lock keys.
const RunLockKeyPrefix = "lock:channelsync:"

// releaseScript deletes the key only when it still holds our token, so an
// expired lease never releases a lock taken over by another run.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisRunLock implements integration.RunLock with SET NX PX leases, so
// only one instance runs a given job type at a time.
type RedisRunLock struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisRunLock creates a run lock over an existing Redis client.
// The caller retains ownership of the client.
func NewRedisRunLock(client *redis.Client, logger *zap.Logger) *RedisRunLock {
	return &RedisRunLock{client: client, logger: logger}
}

// Acquire takes the lease of a job type for ttl.
func (l *RedisRunLock) Acquire(ctx context.Context, job integration.JobType, ttl time.Duration) (integration.Lease, error) {
	key := RunLockKeyPrefix + job.String()
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock %s: %w", key, err)
	}
	if !ok {
		return nil, integration.ErrRunLockHeld
	}
	l.logger.Debug("Run lock acquired", zap.String("key", key), zap.Duration("ttl", ttl))
	return &redisLease{client: l.client, key: key, token: token}, nil
}

type redisLease struct {
	client *redis.Client
	key    string
	token  string
}

// Release frees the lease. It returns ErrRunLockExpired when the lease ran
// out before the run finished.
func (l *redisLease) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("release run lock %s: %w", l.key, err)
	}
	if n == 0 {
		return integration.ErrRunLockExpired
	}
	return nil
}

var _ integration.RunLock = (*RedisRunLock)(nil)
