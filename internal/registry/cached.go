package registry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
)

// PayloadCache stores the raw registry payload so a fresh process can come
// up while the aggregator is down.
type PayloadCache interface {
	CacheSwapInfo(ctx context.Context, payload []byte, ttl time.Duration) error
	GetCachedSwapInfo(ctx context.Context) ([]byte, error)
}

// CachedClient wraps a Client with a payload cache. Successful fetches
// refresh the cache; failed fetches fall back to the last cached snapshot.
type CachedClient struct {
	client *Client
	cache  PayloadCache
	ttl    time.Duration
	logger *logrus.Logger
}

func NewCachedClient(client *Client, cache PayloadCache, ttl time.Duration, logger *logrus.Logger) *CachedClient {
	if logger == nil {
		logger = logrus.New()
	}
	return &CachedClient{client: client, cache: cache, ttl: ttl, logger: logger}
}

func (c *CachedClient) GetSwapInfo(ctx context.Context) (*SwapInfo, error) {
	info, fetchErr := c.client.GetSwapInfo(ctx)
	if fetchErr == nil {
		if payload, err := json.Marshal(info); err == nil {
			if err := c.cache.CacheSwapInfo(ctx, payload, c.ttl); err != nil {
				c.logger.WithError(err).Warn("failed to cache swap info payload")
			}
		}
		return info, nil
	}

	payload, err := c.cache.GetCachedSwapInfo(ctx)
	if err != nil || payload == nil {
		return nil, fetchErr
	}

	var cached SwapInfo
	if err := json.Unmarshal(payload, &cached); err != nil {
		return nil, fetchErr
	}
	if err := validate(&cached); err != nil {
		return nil, fetchErr
	}
	c.logger.WithError(fetchErr).Warn("registry fetch failed, using cached swap info")
	return &cached, nil
}
