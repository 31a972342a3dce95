package cloud

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store"
)

const (
	keySnapshot = "warungpos:snapshot:%s"
	keySyncedAt = "warungpos:synced_at:%s"
)

// RedisClient mirrors snapshots as JSON documents in Redis.
type RedisClient struct {
	client *redis.Client
}

func NewRedisClient(addr string, password string, db int) *RedisClient {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisClient{client: client}
}

func (c *RedisClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisClient) Close() error {
	return c.client.Close()
}

func (c *RedisClient) Push(ctx context.Context, storeID string, snapshot *domain.Snapshot) (PushResult, error) {
	payload, err := store.Encode(snapshot)
	if err != nil {
		return PushResult{Success: false, Status: StatusOnline}, err
	}

	now := time.Now().UTC()
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, fmt.Sprintf(keySnapshot, storeID), payload, 0)
		pipe.Set(ctx, fmt.Sprintf(keySyncedAt, storeID), now.Format(time.RFC3339Nano), 0)
		return nil
	})
	if err != nil {
		return PushResult{Success: false, Status: c.ConnectionStatus(ctx)}, err
	}
	return PushResult{Success: true, Status: StatusOnline}, nil
}

func (c *RedisClient) Pull(ctx context.Context, storeID string) (PullResult, error) {
	val, err := c.client.Get(ctx, fmt.Sprintf(keySnapshot, storeID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return PullResult{Success: false}, nil
	}
	if err != nil {
		return PullResult{}, err
	}

	snapshot, err := store.Decode(val)
	if err != nil {
		return PullResult{}, err
	}
	return PullResult{Success: true, Data: snapshot, Timestamp: c.LastSyncTime(ctx, storeID)}, nil
}

func (c *RedisClient) LastSyncTime(ctx context.Context, storeID string) *time.Time {
	val, err := c.client.Get(ctx, fmt.Sprintf(keySyncedAt, storeID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Str("component", "cloud").Err(err).Str("store_id", storeID).Msg("read last sync time")
		}
		return nil
	}
	at, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return nil
	}
	return &at
}

func (c *RedisClient) ConnectionStatus(ctx context.Context) Status {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return StatusOffline
	}
	return StatusOnline
}
