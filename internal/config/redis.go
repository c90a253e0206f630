package config

import (
	"context"
	"crypto/tls"
	"log"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions builds client options from the environment:
//
//	REDIS_URL      – redis:// or rediss:// URL, takes precedence
//	REDIS_ADDR     – host:port
//	REDIS_HOST, REDIS_PORT
//	REDIS_PASSWORD, REDIS_DB
//	REDIS_TLS      – "true" or "1"
func RedisOptions() (*redis.Options, error) {
	if u := os.Getenv("REDIS_URL"); u != "" {
		return redis.ParseURL(u)
	}
	addr := envStr("REDIS_ADDR", "localhost:6379")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	opts := &redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       envInt("REDIS_DB", 0),
	}
	if v := os.Getenv("REDIS_TLS"); strings.EqualFold(v, "true") || v == "1" {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}

// NewRedisClient connects to Redis.  It returns nil when Redis is not
// reachable; callers then run without rate limiting and caching.
func NewRedisClient() *redis.Client {
	opts, err := RedisOptions()
	if err != nil {
		log.Printf("redis: %v; rate limiting and cache disabled", err)
		return nil
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis: %s unreachable (%v); rate limiting and cache disabled", opts.Addr, err)
		_ = client.Close()
		return nil
	}
	return client
}
