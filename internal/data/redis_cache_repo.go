package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var errEmptyKey = errors.New("key cannot be empty")

// releaseIfOwnerScript deletes KEYS[1] only while it still holds ARGV[1].
var releaseIfOwnerScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisCacheRepo implements core.CacheRepository using Redis.
// All keys are namespaced with the configured prefix.
type RedisCacheRepo struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCacheRepo creates a new RedisCacheRepo. prefix may be empty.
func NewRedisCacheRepo(client redis.UniversalClient, prefix string) *RedisCacheRepo {
	return &RedisCacheRepo{client: client, prefix: prefix}
}

func (r *RedisCacheRepo) key(key string) (string, error) {
	if key == "" {
		return "", errEmptyKey
	}
	return r.prefix + key, nil
}

// Set stores a value in Redis with the given key and TTL.
func (r *RedisCacheRepo) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	k, err := r.key(key)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, k, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get returns nil, nil when the key does not exist.
func (r *RedisCacheRepo) Get(ctx context.Context, key string) ([]byte, error) {
	k, err := r.key(key)
	if err != nil {
		return nil, err
	}

	result, err := r.client.Get(ctx, k).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return result, nil
}

// Delete removes a key from Redis.
func (r *RedisCacheRepo) Delete(ctx context.Context, key string) (bool, error) {
	k, err := r.key(key)
	if err != nil {
		return false, err
	}

	n, err := r.client.Del(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("redis del: %w", err)
	}
	return n > 0, nil
}

// DeleteIfEquals removes key only while its value equals value.
func (r *RedisCacheRepo) DeleteIfEquals(ctx context.Context, key string, value []byte) (bool, error) {
	k, err := r.key(key)
	if err != nil {
		return false, err
	}

	n, err := releaseIfOwnerScript.Run(ctx, r.client, []string{k}, value).Int64()
	if err != nil {
		return false, fmt.Errorf("redis compare-and-delete: %w", err)
	}
	return n > 0, nil
}

// Exists checks if a key exists in Redis.
func (r *RedisCacheRepo) Exists(ctx context.Context, key string) (bool, error) {
	k, err := r.key(key)
	if err != nil {
		return false, err
	}

	n, err := r.client.Exists(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// SetIfNotExists atomically sets a key only if it doesn't already exist.
// SET NX with TTL in one command; SETNX followed by EXPIRE would race.
func (r *RedisCacheRepo) SetIfNotExists(
	ctx context.Context,
	key string,
	value []byte,
	ttl time.Duration,
) (bool, error) {
	k, err := r.key(key)
	if err != nil {
		return false, err
	}

	actualTTL := ttl
	if ttl <= 0 {
		actualTTL = time.Second
	}

	status, err := r.client.SetArgs(ctx, k, value, redis.SetArgs{Mode: "NX", TTL: actualTTL}).Result()
	if err != nil {
		// NX miss is a nil reply.
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis SET NX: %w", err)
	}
	return status == "OK", nil
}

// Health checks the health of the Redis connection.
func (r *RedisCacheRepo) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
