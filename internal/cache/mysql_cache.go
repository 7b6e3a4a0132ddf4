package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/taskpilot/llm-router/internal/core"
)

const mysqlTimeFormat = "2006-01-02 15:04:05"

// MySQLCache persists pipeline results in MySQL so several router instances
// can share one cache. Values are stored as JSON and come back as
// json.RawMessage; decode them with As.
type MySQLCache struct {
	db          *sql.DB
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}

	hits    atomic.Uint64
	misses  atomic.Uint64
	expired atomic.Uint64
}

// NewMySQLCache connects to the database described by dsn and starts a
// background cleanup task.
func NewMySQLCache(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*MySQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS result_cache (
			cache_key VARCHAR(64) PRIMARY KEY,
			payload MEDIUMTEXT NOT NULL,
			created_at TIMESTAMP,
			expires_at TIMESTAMP,
			INDEX idx_result_expires_at (expires_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	cache := &MySQLCache{
		db:          db,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	go cache.startCleanupTask()

	return cache, nil
}

// Get retrieves a cached result by key.
func (c *MySQLCache) Get(key string) (any, bool) {
	var payload string

	err := c.db.QueryRow(`
		SELECT payload
		FROM result_cache
		WHERE cache_key = ? AND expires_at > NOW()
	`, key).Scan(&payload)

	if err != nil {
		if err != sql.ErrNoRows {
			c.logger.Error("Failed to query cache", zap.Error(err), zap.String("key", key))
		}
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return json.RawMessage(payload), true
}

// Set stores a result under key. Values must be JSON-serializable; anything
// else is logged and dropped.
func (c *MySQLCache) Set(key string, value any, ttl time.Duration) {
	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("Failed to encode cache payload", zap.Error(err), zap.String("key", key))
		return
	}

	now := time.Now().UTC()
	_, err = c.db.Exec(`
		INSERT INTO result_cache (cache_key, payload, created_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			payload = VALUES(payload),
			created_at = VALUES(created_at),
			expires_at = VALUES(expires_at)
	`, key, string(payload), now.Format(mysqlTimeFormat), now.Add(ttl).Format(mysqlTimeFormat))

	if err != nil {
		c.logger.Error("Failed to insert cache entry", zap.Error(err), zap.String("key", key))
	}
}

// Clear removes the entry for key, or every entry when key is empty.
func (c *MySQLCache) Clear(key string) {
	var err error
	if key == "" {
		_, err = c.db.Exec(`DELETE FROM result_cache`)
	} else {
		_, err = c.db.Exec(`DELETE FROM result_cache WHERE cache_key = ?`, key)
	}
	if err != nil {
		c.logger.Error("Failed to clear cache", zap.Error(err), zap.String("key", key))
	}
}

// CleanupExpired removes expired entries and returns how many were dropped.
func (c *MySQLCache) CleanupExpired() int {
	result, err := c.db.Exec(`
		DELETE FROM result_cache
		WHERE expires_at <= NOW()
	`)
	if err != nil {
		c.logger.Error("Failed to clean up expired entries", zap.Error(err))
		return 0
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
		return 0
	}
	if rowsAffected > 0 {
		c.expired.Add(uint64(rowsAffected))
		c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", rowsAffected))
	}
	return int(rowsAffected)
}

// Stats reports cache size and hit rates since startup.
func (c *MySQLCache) Stats() core.CacheStats {
	var size int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM result_cache`).Scan(&size); err != nil {
		c.logger.Error("Failed to count cache entries", zap.Error(err))
	}

	hits, misses := c.hits.Load(), c.misses.Load()
	hitRate := 0.0
	if hits+misses > 0 {
		hitRate = float64(hits) / float64(hits+misses)
	}
	return core.CacheStats{
		Size:    size,
		Hits:    hits,
		Misses:  misses,
		Expired: c.expired.Load(),
		HitRate: hitRate,
	}
}

// startCleanupTask starts a background task to clean up expired entries
func (c *MySQLCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CleanupExpired()
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task and closes the database connection
func (c *MySQLCache) Stop() {
	close(c.stopCh)
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close MySQL database", zap.Error(err))
	}
}
