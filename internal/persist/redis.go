package persist

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps snapshots in Redis under a key prefix, for deployments
// where the client core runs server-side and local disk is not durable. A
// zero TTL means snapshots never expire.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(url, prefix string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) key(name string) string {
	return s.prefix + ":" + name
}

func (s *RedisStore) Load(ctx context.Context, name string, dest any) (bool, error) {
	raw, err := s.rdb.Get(ctx, s.key(name)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *RedisStore) Save(ctx context.Context, name string, val any) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key(name), raw, s.ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, name string) error {
	return s.rdb.Del(ctx, s.key(name)).Err()
}
