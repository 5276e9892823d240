package cart

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/audiophile-commerce/storefront-backend/pkg/config"
	"github.com/audiophile-commerce/storefront-backend/pkg/redis"
	"github.com/audiophile-commerce/storefront-backend/pkg/types"
)

// Storage persists cart contents between sessions.
type Storage interface {
	Load(ctx context.Context, sessionID string) ([]types.CartItem, error)
	Save(ctx context.Context, sessionID string, items []types.CartItem) error
	Delete(ctx context.Context, sessionID string) error
}

// RedisStorage keeps cart payloads in Redis as JSON under the configured
// storage key, one entry per session.
type RedisStorage struct {
	client     *redis.Client
	storageKey string
	ttl        time.Duration
}

// NewRedisStorage wires cart persistence to Redis.
func NewRedisStorage(client *redis.Client, cfg config.CartConfig) *RedisStorage {
	return &RedisStorage{
		client:     client,
		storageKey: cfg.StorageKey,
		ttl:        cfg.TTL,
	}
}

// Load fetches the stored cart. A missing key is an empty cart, not an error.
func (r *RedisStorage) Load(ctx context.Context, sessionID string) ([]types.CartItem, error) {
	raw, err := r.client.Get(ctx, r.client.CartKey(r.storageKey, sessionID))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var items []types.CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		// A corrupt payload is unrecoverable; start the session fresh.
		return nil, err
	}
	return items, nil
}

// Save overwrites the stored cart. An empty cart deletes the key instead of
// storing an empty payload.
func (r *RedisStorage) Save(ctx context.Context, sessionID string, items []types.CartItem) error {
	key := r.client.CartKey(r.storageKey, sessionID)
	if len(items) == 0 {
		return r.client.Del(ctx, key)
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, payload, r.ttl)
}

// Delete removes the stored cart outright.
func (r *RedisStorage) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, r.client.CartKey(r.storageKey, sessionID))
}
