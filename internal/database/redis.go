package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/newrelic/go-agent/v3/integrations/nrredis-v9"
	"github.com/redis/go-redis/v9"
)

const redisConnectTimeout = 5 * time.Second

// RedisDB is the client shared by the location cache, pub/sub transport,
// rate limiter, idempotency keys and the redis local store backend.
type RedisDB struct {
	*redis.Client
}

// NewRedis accepts either host:port or a redis:// URL. A password given
// separately overrides the one in the URL.
func NewRedis(addr, password string) (*RedisDB, error) {
	opts, err := redisOptions(addr, password)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	client.AddHook(nrredis.NewHook(opts))

	ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	return &RedisDB{Client: client}, nil
}

func redisOptions(addr, password string) (*redis.Options, error) {
	opts := &redis.Options{Addr: addr}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}
	if password != "" {
		opts.Password = password
	}

	// Every SSE stream holds a pub/sub connection, so the pool is sized
	// above the request concurrency.
	opts.PoolSize = 100
	opts.MinIdleConns = 10
	opts.DialTimeout = redisConnectTimeout
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	return opts, nil
}

// Health pings with the caller's deadline.
func (r *RedisDB) Health(ctx context.Context) error {
	return r.Ping(ctx).Err()
}
