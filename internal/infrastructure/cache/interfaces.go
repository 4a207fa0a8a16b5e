package cache

import (
	"context"
	"errors"
	"time"
)

// Cache provides a key-value cache with per-key TTL
type Cache interface {
	// GetJSON retrieves and unmarshals JSON data
	GetJSON(ctx context.Context, key string, dest interface{}) error

	// SetJSON marshals and stores JSON data
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Ping checks connectivity
	Ping(ctx context.Context) error

	// Close closes the cache connection
	Close() error
}

// Key prefixes for consistent cache key naming
const (
	RegistryIDPrefix         = "advice:registry:id:"
	RegistryNamePrefix       = "advice:registry:name:"
	RegistryCandidatesPrefix = "advice:registry:candidates:"
	RegistryCompanyPrefix    = "advice:registry:company:"
)

// Common TTL values
const (
	RegistryIDTTL      = 1 * time.Hour
	RegistryNameTTL    = 5 * time.Minute
	RegistryCompanyTTL = 1 * time.Hour
)

// ErrCacheKeyNotFound is returned when a cache key doesn't exist
type ErrCacheKeyNotFound struct {
	Key string
}

func (e ErrCacheKeyNotFound) Error() string {
	return "cache key not found: " + e.Key
}

// IsNotFound reports whether err is a cache miss
func IsNotFound(err error) bool {
	var nf ErrCacheKeyNotFound
	return errors.As(err, &nf)
}
