package gates

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   1, // Use different DB for tests
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := client.Ping(ctx).Err()
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	err = client.FlushDB(ctx).Err()
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.FlushDB(ctx).Err()
		_ = client.Close()
	})

	return client
}

func TestStore_SetAndGet(t *testing.T) {
	client := setupTestRedis(t)
	store, err := NewStore(client)
	require.NoError(t, err)

	ctx := context.Background()

	gate, err := store.Set(ctx, SwapEnabled, false)
	require.NoError(t, err)
	assert.Equal(t, SwapEnabled, gate.Key)
	assert.False(t, gate.Enabled)
	assert.NotZero(t, gate.UpdatedAt)

	got, err := store.Get(ctx, SwapEnabled)
	require.NoError(t, err)
	assert.Equal(t, gate.Key, got.Key)
	assert.Equal(t, gate.Enabled, got.Enabled)

	_, err = store.Get(ctx, "nonexistent.gate")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_IsEnabledDefaults(t *testing.T) {
	client := setupTestRedis(t)
	store, err := NewStore(client)
	require.NoError(t, err)

	ctx := context.Background()

	// never set: registered defaults apply
	assert.True(t, store.IsEnabled(ctx, SwapEnabled))
	assert.False(t, store.IsEnabled(ctx, SimulationOnly))
	assert.True(t, store.IsEnabled(ctx, TransitiveEnabled))
	assert.False(t, store.IsEnabled(ctx, "unknown.gate"))

	// explicit value overrides the default
	_, err = store.Set(ctx, SwapEnabled, false)
	require.NoError(t, err)
	assert.False(t, store.IsEnabled(ctx, SwapEnabled))
}

func TestStore_List(t *testing.T) {
	client := setupTestRedis(t)
	store, err := NewStore(client)
	require.NoError(t, err)

	ctx := context.Background()

	gateValues := map[string]bool{
		SwapEnabled:       true,
		SimulationOnly:    true,
		TransitiveEnabled: false,
	}
	for key, enabled := range gateValues {
		_, err := store.Set(ctx, key, enabled)
		require.NoError(t, err)
	}

	gatesList, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, gatesList, 3)

	byKey := make(map[string]bool)
	for _, g := range gatesList {
		byKey[g.Key] = g.Enabled
	}
	assert.Equal(t, gateValues, byKey)
}

func TestStore_Delete(t *testing.T) {
	client := setupTestRedis(t)
	store, err := NewStore(client)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = store.Set(ctx, SimulationOnly, true)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, SimulationOnly))

	_, err = store.Get(ctx, SimulationOnly)
	assert.ErrorIs(t, err, ErrNotFound)

	// the default applies again after deletion
	assert.False(t, store.IsEnabled(ctx, SimulationOnly))

	// deleting a missing gate is not an error
	assert.NoError(t, store.Delete(ctx, SimulationOnly))
}

func TestValidateKey(t *testing.T) {
	assert.NoError(t, ValidateKey("swap.enabled"))
	assert.NoError(t, ValidateKey("a"))

	assert.Error(t, ValidateKey(""))
	assert.Error(t, ValidateKey("has space"))
	assert.Error(t, ValidateKey("has:colon"))
}
