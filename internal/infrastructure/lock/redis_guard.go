package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/riskibarqy/livescore-sync/internal/domain/runlock"
	"github.com/riskibarqy/livescore-sync/internal/platform/logging"
	"github.com/riskibarqy/livescore-sync/internal/usecase"
)

const keyPrefix = "livesync:lock:"

// Client is the subset of *redis.Client the guard needs.
type Client interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	PTTL(ctx context.Context, key string) *redis.DurationCmd
}

// RedisGuard claims the run with SET NX PX, so at most one cycle starts per
// MinInterval no matter how many triggers race.
type RedisGuard struct {
	client      Client
	name        string
	minInterval time.Duration
	logger      *logging.Logger
	now         func() time.Time
}

func NewRedisGuard(client Client, name string, minInterval time.Duration, logger *logging.Logger) *RedisGuard {
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(name) == "" {
		name = runlock.LiveScoresLock
	}
	if minInterval <= 0 {
		minInterval = 50 * time.Second
	}
	return &RedisGuard{
		client:      client,
		name:        name,
		minInterval: minInterval,
		logger:      logger.Named("runlock"),
		now:         time.Now,
	}
}

func (g *RedisGuard) key() string {
	return keyPrefix + g.name
}

func (g *RedisGuard) Acquire(ctx context.Context) (runlock.Result, error) {
	claimedAt := g.now().UTC().Format(time.RFC3339Nano)
	ok, err := g.client.SetNX(ctx, g.key(), claimedAt, g.minInterval).Result()
	if err != nil {
		return "", fmt.Errorf("claim redis run lock %s: %w", g.name, err)
	}
	if !ok {
		g.logger.InfoContext(ctx, "run lock held, skipping cycle", "lock", g.name, "backend", "redis")
		return runlock.ResultSkipped, nil
	}
	return runlock.ResultAcquired, nil
}

func (g *RedisGuard) Inspect(ctx context.Context) (usecase.LockStatus, error) {
	status := usecase.LockStatus{Name: g.name, Backend: "redis"}

	raw, err := g.client.Get(ctx, g.key()).Result()
	if errors.Is(err, redis.Nil) {
		return status, nil
	}
	if err != nil {
		return status, fmt.Errorf("read redis run lock %s: %w", g.name, err)
	}
	if at, parseErr := time.Parse(time.RFC3339Nano, raw); parseErr == nil {
		at = at.UTC()
		status.LastPollTime = &at
	}

	ttl, err := g.client.PTTL(ctx, g.key()).Result()
	if err != nil {
		return status, fmt.Errorf("read redis run lock ttl %s: %w", g.name, err)
	}
	if ttl > 0 {
		status.Held = true
		status.Remaining = ttl
	}
	return status, nil
}
