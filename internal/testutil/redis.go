package testutil

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTestRedisDB = 9

// SetupTestRedis connects to TEST_REDIS_ADDR (default localhost:56379) on TEST_REDIS_DB
// (default 9), flushes that DB, and closes the client on cleanup. It skips when Redis is down.
func SetupTestRedis(t TestingTB) *redis.Client {
	t.Helper()

	addr := getEnvOrDefault("TEST_REDIS_ADDR", "localhost:56379")
	db := defaultTestRedisDB
	if v := getEnvOrDefault("TEST_REDIS_DB", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			t.Fatalf("invalid TEST_REDIS_DB %q", v)
		}
		db = n
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		closeAndLog(t, "redis client", client)
		if requireRedis() {
			t.Fatalf("redis not available at %s: %v", addr, err)
		}
		t.Skipf("redis not available at %s: %v", addr, err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		closeAndLog(t, "redis client", client)
		t.Fatalf("flush redis db %d: %v", db, err)
	}
	return client
}
