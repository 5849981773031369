package config

import (
	"context"
	"crypto/tls"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to the Redis instance backing the response cache
// and the rate limiter.  REDIS_ADDR names the server directly; otherwise
// REDIS_HOST/REDIS_PORT are combined.  REDIS_PASSWORD, REDIS_DB and
// REDIS_TLS round out the options.  A nil return means the server could not
// be reached within two seconds; callers run without caching or limiting in
// that case.
func NewRedisClient() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = getenv("REDIS_HOST", "localhost") + ":" + getenv("REDIS_PORT", "6379")
	}
	opts := &redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       atoi(getenv("REDIS_DB", "0")),
	}
	if v := getenv("REDIS_TLS", "false"); v == "true" || v == "1" {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
