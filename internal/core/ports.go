package core

import (
	"context"
	"time"
)

// GenerationClient defines the interface for the external text-generation
// service. Implementations translate GenerationRequest into a provider call
// and classify provider failures into GenerationResult error kinds; they
// never return a Go error for a failure the result shape can express.
type GenerationClient interface {
	// Generate produces text for the given request.
	Generate(ctx context.Context, req *GenerationRequest) (*GenerationResult, error)
}

// ResultCache defines the interface for caching routing decisions and
// generated content. It is type-agnostic: values are arbitrary structured
// results owned by the caller.
type ResultCache interface {
	// Get retrieves a cached value, marking it most recently used.
	Get(key string) (any, bool)

	// Set stores a value with a TTL, evicting the least recently used
	// entry when at capacity.
	Set(key string, value any, ttl time.Duration)

	// Clear removes a single key, or everything when key is empty.
	Clear(key string)

	// CleanupExpired proactively removes stale entries and reports how many
	// were dropped.
	CleanupExpired() int

	// Stats reports hit/miss/eviction counters.
	Stats() CacheStats
}

// CacheStats is a point-in-time snapshot of cache counters.
type CacheStats struct {
	Size      int     `json:"size"`
	MaxSize   int     `json:"max_size"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	Expired   uint64  `json:"expired"`
	HitRate   float64 `json:"hit_rate"`
}
