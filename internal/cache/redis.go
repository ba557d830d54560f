package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/p2p-org/p2p-wallet-web-sub001/internal/models"
)

const (
	recentSwapsKey  = "swaps:recent"
	swapInfoKey     = "swapinfo:payload"
	swapChannel     = "swaps:executed"
	recentSwapsSize = 500
)

// RedisCache is the Redis-backed SwapCache implementation.
type RedisCache struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedisCache(addr string, logger *logrus.Logger) (*RedisCache, error) {
	if logger == nil {
		logger = logrus.New()
	}
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client, logger: logger}, nil
}

// NewRedisCacheFromClient wraps an existing connection, used by tests to
// point the cache at an isolated database.
func NewRedisCacheFromClient(client *redis.Client, logger *logrus.Logger) *RedisCache {
	if logger == nil {
		logger = logrus.New()
	}
	return &RedisCache{client: client, logger: logger}
}

// Client exposes the underlying connection for components sharing it.
func (r *RedisCache) Client() *redis.Client {
	return r.client
}

func (r *RedisCache) AddRecentSwap(ctx context.Context, swap *models.SwapRecord) error {
	data, err := json.Marshal(swap)
	if err != nil {
		return fmt.Errorf("marshal swap record: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, recentSwapsKey, data)
	pipe.LTrim(ctx, recentSwapsKey, 0, recentSwapsSize-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add recent swap: %w", err)
	}
	return nil
}

func (r *RedisCache) GetRecentSwaps(ctx context.Context, limit int64) ([]*models.SwapRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	vals, err := r.client.LRange(ctx, recentSwapsKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("get recent swaps: %w", err)
	}

	out := make([]*models.SwapRecord, 0, len(vals))
	for _, v := range vals {
		var rec models.SwapRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			r.logger.WithError(err).Warn("skipping malformed swap record in cache")
			continue
		}
		out = append(out, &rec)
	}
	return out, nil
}

func (r *RedisCache) PublishSwap(ctx context.Context, swap *models.SwapRecord) error {
	data, err := json.Marshal(swap)
	if err != nil {
		return fmt.Errorf("marshal swap record: %w", err)
	}
	if err := r.client.Publish(ctx, swapChannel, data).Err(); err != nil {
		return fmt.Errorf("publish swap: %w", err)
	}
	return nil
}

// SubscribeSwaps delivers swap records published on the shared channel
// until the context is cancelled.
func (r *RedisCache) SubscribeSwaps(ctx context.Context) (<-chan *models.SwapRecord, error) {
	pubsub := r.client.Subscribe(ctx, swapChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe swaps: %w", err)
	}

	out := make(chan *models.SwapRecord)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var rec models.SwapRecord
				if err := json.Unmarshal([]byte(msg.Payload), &rec); err != nil {
					r.logger.WithError(err).Warn("skipping malformed swap record on channel")
					continue
				}
				select {
				case out <- &rec:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (r *RedisCache) CacheSwapInfo(ctx context.Context, payload []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, swapInfoKey, payload, ttl).Err(); err != nil {
		return fmt.Errorf("cache swap info: %w", err)
	}
	return nil
}

func (r *RedisCache) GetCachedSwapInfo(ctx context.Context) ([]byte, error) {
	val, err := r.client.Get(ctx, swapInfoKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cached swap info: %w", err)
	}
	return val, nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
