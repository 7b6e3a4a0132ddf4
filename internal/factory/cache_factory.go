package factory

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/taskpilot/llm-router/internal/cache"
	"github.com/taskpilot/llm-router/internal/config"
	"github.com/taskpilot/llm-router/internal/core"
)

// CacheFactory creates result caches based on configuration
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateResultCache creates a result cache based on the configuration. The
// returned stop function releases whatever background work the chosen backend
// owns: the memory cache gets an external janitor, the SQL backends run their
// own cleanup loops.
func (f *CacheFactory) CreateResultCache() (core.ResultCache, func(), error) {
	cacheType := f.cfg.GetString("cache.type")
	cleanupFreq, err := f.cfg.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return nil, nil, fmt.Errorf("invalid cache cleanup frequency: %w", err)
	}

	switch cacheType {
	case "memory":
		c := cache.NewMemoryCache(f.logger, f.cfg.GetInt("cache.max_size"))
		janitor := cache.NewJanitor(c, f.logger, cleanupFreq)
		janitor.Start()
		return c, janitor.Stop, nil
	case "sqlite":
		sqlitePath := f.cfg.GetString("cache.sqlite_path")
		if err := os.MkdirAll(filepath.Dir(sqlitePath), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		c, err := cache.NewSQLiteCache(sqlitePath, f.logger, cleanupFreq)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { c.Stop() }, nil
	case "mysql":
		c, err := cache.NewMySQLCache(f.cfg.GetString("cache.mysql_dsn"), f.logger, cleanupFreq)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { c.Stop() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported cache type: %s", cacheType)
	}
}

// RouteTTL returns the configured TTL for cached routing decisions
func (f *CacheFactory) RouteTTL() time.Duration {
	return f.ttl("cache.ttl_route", time.Hour)
}

// CommentTTL returns the configured TTL for cached comment rephrasings
func (f *CacheFactory) CommentTTL() time.Duration {
	return f.ttl("cache.ttl_comment", 24*time.Hour)
}

// EmailTTL returns the configured TTL for cached email drafts
func (f *CacheFactory) EmailTTL() time.Duration {
	return f.ttl("cache.ttl_email", 24*time.Hour)
}

// IsCacheEnabled returns whether caching is enabled
func (f *CacheFactory) IsCacheEnabled() bool {
	return f.cfg.GetBool("cache.enabled")
}

func (f *CacheFactory) ttl(key string, fallback time.Duration) time.Duration {
	ttl, err := f.cfg.GetDuration(key)
	if err != nil || ttl <= 0 {
		f.logger.Warn("invalid cache TTL, using default",
			zap.String("key", key),
			zap.Duration("default", fallback))
		return fallback
	}
	return ttl
}
