package storage

import (
	"context"
	"io"
	"time"

	"github.com/p2p-org/p2p-wallet-web-sub001/internal/models"
)

// SwapCache defines the interface for the hot-path swap data cache.
type SwapCache interface {
	// AddRecentSwap adds a record to the recent swaps list
	AddRecentSwap(ctx context.Context, swap *models.SwapRecord) error

	// GetRecentSwaps retrieves the most recent swap records
	GetRecentSwaps(ctx context.Context, limit int64) ([]*models.SwapRecord, error)

	// PublishSwap publishes a swap record to the Pub/Sub channel
	PublishSwap(ctx context.Context, swap *models.SwapRecord) error

	// SubscribeSwaps subscribes to real-time swap records
	SubscribeSwaps(ctx context.Context) (<-chan *models.SwapRecord, error)

	// CacheSwapInfo stores a raw swap-info registry payload with a TTL
	CacheSwapInfo(ctx context.Context, payload []byte, ttl time.Duration) error

	// GetCachedSwapInfo retrieves the cached registry payload, if any
	GetCachedSwapInfo(ctx context.Context) ([]byte, error)

	// Ping checks if the cache is reachable
	Ping(ctx context.Context) error

	// Close closes the cache connection
	io.Closer
}

// SwapStore defines the interface for persistent swap history.
type SwapStore interface {
	// InsertSwap inserts a swap record into the store
	InsertSwap(ctx context.Context, swap *models.SwapRecord) error

	// ListSwapsByOwner retrieves an owner's most recent swaps
	ListSwapsByOwner(ctx context.Context, owner string, limit int64) ([]*models.SwapRecord, error)

	// Ping checks if the store is reachable
	Ping(ctx context.Context) error

	// Close closes the store connection
	io.Closer
}
