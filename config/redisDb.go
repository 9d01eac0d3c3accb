package config

import (
	"context"
	"log"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

var (
	rdb    *redis.Client
	locker *redislock.Client
)

func GetRedisDB() *redis.Client {
	return rdb
}

// GetRedisLock is nil until ConnectRedisWithRetry succeeds.
func GetRedisLock() *redislock.Client {
	return locker
}

// RedisOptionsFromEnv reads REDIS_ADDRESS (default localhost:6379), REDIS_PASSWORD and REDIS_DB.
func RedisOptionsFromEnv() *redis.Options {
	addr := StringFromEnv("REDIS_ADDRESS", "")
	if addr == "" {
		addr = "localhost:6379"
		log.Printf("REDIS_ADDRESS not set; defaulting to %s", addr)
	}
	return &redis.Options{
		Addr:     addr,
		Password: StringFromEnv("REDIS_PASSWORD", ""),
		DB:       IntFromEnv("REDIS_DB", 0),
		PoolSize: IntFromEnv("REDIS_POOL_SIZE", 100),
	}
}

// ConnectRedisWithRetry sets the global client and the lock client built on it.
// It gives up when ctx is cancelled, leaving both nil.
func ConnectRedisWithRetry(ctx context.Context) {
	opts := RedisOptionsFromEnv()
	for attempt := 1; ; attempt++ {
		client := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			rdb = client
			locker = redislock.New(client)
			log.Printf("connected to redis (attempt=%d addr=%s)", attempt, opts.Addr)
			return
		}
		_ = client.Close()

		sleep := retryBackoff(attempt)
		log.Printf("failed to connect redis (attempt=%d addr=%s): %v; retrying in %s", attempt, opts.Addr, err, sleep)
		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
}

func CloseRedis() {
	if rdb != nil {
		_ = rdb.Close()
	}
}
