package cache

import (
	"context"
	"time"
)

// Cache is the contract for the cache layer. Values are JSON encoded.
type Cache interface {
	// Get unmarshals the cached value into dest.
	// found=false means a cache miss and dest is untouched.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set stores value with a TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes keys.
	Delete(ctx context.Context, keys ...string) error

	Ping(ctx context.Context) error
}
