package redis

import (
	"context"
	"errors"
	"time"

	"github.com/Lambodaran/AgileProject-sub001/internal/domain"
	"github.com/redis/go-redis/v9"
)

// KVStore is a Redis-backed implementation of app.KeyValueStore.
// Checkpoints rely on Redis expiry for their TTL; completion records are stored
// without expiry. Keys are namespaced under "assessment:".
type KVStore struct {
	client *redis.Client
	prefix string
}

func NewKVStore(client *redis.Client) *KVStore {
	return &KVStore{client: client, prefix: "assessment:"}
}

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *KVStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return s.client.Set(ctx, s.prefix+key, value, ttl).Err()
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}
