package config

// Redis is used for caching the public inventory endpoints and as the broker
// backend for scheduled sweep tasks.  Connection parameters come from the
// environment.  When the server is unreachable at startup the constructor
// returns nil and callers degrade gracefully: caching is disabled and the
// sweeper falls back to an in-process ticker.

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisAddr resolves the broker address from the environment.  REDIS_ADDR
// takes precedence; otherwise REDIS_HOST/REDIS_PORT are combined; the final
// fallback is localhost:6379.
func RedisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	host := os.Getenv("REDIS_HOST")
	port := os.Getenv("REDIS_PORT")
	if host != "" && port != "" {
		return host + ":" + port
	}
	return "localhost:6379"
}

// NewRedisClient instantiates a Redis client using environment variables:
// REDIS_ADDR or REDIS_HOST/REDIS_PORT, optional REDIS_PASSWORD, REDIS_DB and
// REDIS_TLS.  The returned client is nil when no connection can be
// established within a short timeout.
func NewRedisClient() *redis.Client {
	pwd := os.Getenv("REDIS_PASSWORD")
	dbNum := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if n, err := strconv.Atoi(dbStr); err == nil {
			dbNum = n
		}
	}
	var tlsConf *tls.Config
	if tlsEnv := os.Getenv("REDIS_TLS"); strings.EqualFold(tlsEnv, "true") || tlsEnv == "1" {
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      RedisAddr(),
		Password:  pwd,
		DB:        dbNum,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}
