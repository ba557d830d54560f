package gates

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	indexKey    = "gates:index"
	valuePrefix = "gates:"
)

var keyRe = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,128}$`)

// Store is the Redis-backed feature-gate store.
type Store struct {
	client redis.Cmdable
}

func NewStore(client redis.Cmdable) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &Store{client: client}, nil
}

func ValidateKey(key string) error {
	if !keyRe.MatchString(key) {
		return fmt.Errorf("invalid gate key")
	}
	return nil
}

func (s *Store) Set(ctx context.Context, key string, enabled bool) (*Gate, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	gate := &Gate{Key: key, Enabled: enabled, UpdatedAt: time.Now().UTC()}
	b, err := json.Marshal(gate)
	if err != nil {
		return nil, fmt.Errorf("marshal gate: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, gateKey(key), b, 0)
	pipe.SAdd(ctx, indexKey, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("set gate: %w", err)
	}

	return gate, nil
}

func (s *Store) Get(ctx context.Context, key string) (*Gate, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	val, err := s.client.Get(ctx, gateKey(key)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get gate: %w", err)
	}

	var g Gate
	if err := json.Unmarshal([]byte(val), &g); err != nil {
		return nil, fmt.Errorf("unmarshal gate: %w", err)
	}
	return &g, nil
}

// IsEnabled resolves a gate, falling back to the registered default (or
// false) when it was never set. Lookup errors also fall back: a cache
// outage must not hard-fail every swap request.
func (s *Store) IsEnabled(ctx context.Context, key string) bool {
	g, err := s.Get(ctx, key)
	if err != nil {
		return Defaults[key]
	}
	return g.Enabled
}

func (s *Store) List(ctx context.Context) ([]*Gate, error) {
	keys, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list gates index: %w", err)
	}
	if len(keys) == 0 {
		return []*Gate{}, nil
	}

	redisKeys := make([]string, 0, len(keys))
	for _, k := range keys {
		if err := ValidateKey(k); err != nil {
			continue
		}
		redisKeys = append(redisKeys, gateKey(k))
	}
	if len(redisKeys) == 0 {
		return []*Gate{}, nil
	}

	vals, err := s.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget gates: %w", err)
	}

	out := make([]*Gate, 0, len(vals))
	for _, v := range vals {
		if v == nil {
			continue
		}
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var g Gate
		if err := json.Unmarshal([]byte(raw), &g); err != nil {
			continue
		}
		out = append(out, &g)
	}

	return out, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, gateKey(key))
	pipe.SRem(ctx, indexKey, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete gate: %w", err)
	}

	return nil
}

func gateKey(key string) string {
	return valuePrefix + key
}
