package localstore

import (
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Backend names accepted by Open
const (
	BackendBolt   = "bolt"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Open builds a Store for the configured backend. client is only used by the redis backend.
func Open(backend, path string, client *redis.Client) (*Store, error) {
	switch backend {
	case BackendBolt, "":
		kv, err := OpenBolt(path)
		if err != nil {
			return nil, fmt.Errorf("open bolt store at %s: %w", path, err)
		}
		return New(kv), nil
	case BackendRedis:
		if client == nil {
			return nil, fmt.Errorf("redis backend requires a client")
		}
		return New(NewRedis(client)), nil
	case BackendMemory:
		return New(NewMemory()), nil
	}
	return nil, fmt.Errorf("unknown local store backend %q", backend)
}
