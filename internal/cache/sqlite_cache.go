package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/taskpilot/llm-router/internal/core"
)

// SQLiteCache persists pipeline results in a local SQLite database so cached
// routing and generation survive restarts. Values are stored as JSON and come
// back as json.RawMessage; decode them with As.
type SQLiteCache struct {
	db          *sql.DB
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}

	hits    atomic.Uint64
	misses  atomic.Uint64
	expired atomic.Uint64
}

// NewSQLiteCache opens (or creates) the database at dbPath and starts a
// background cleanup task.
func NewSQLiteCache(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS result_cache (
			cache_key TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			created_at TIMESTAMP,
			expires_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_result_expires_at ON result_cache(expires_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	cache := &SQLiteCache{
		db:          db,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	go cache.startCleanupTask()

	return cache, nil
}

// Get retrieves a cached result by key.
func (c *SQLiteCache) Get(key string) (any, bool) {
	var payload string

	err := c.db.QueryRow(`
		SELECT payload
		FROM result_cache
		WHERE cache_key = ? AND expires_at > datetime('now')
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
func (c *SQLiteCache) Set(key string, value any, ttl time.Duration) {
	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("Failed to encode cache payload", zap.Error(err), zap.String("key", key))
		return
	}

	now := time.Now().UTC()
	_, err = c.db.Exec(`
		INSERT OR REPLACE INTO result_cache (cache_key, payload, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`, key, string(payload), now.Format(time.RFC3339), now.Add(ttl).Format(time.RFC3339))

	if err != nil {
		c.logger.Error("Failed to insert cache entry", zap.Error(err), zap.String("key", key))
	}
}

// Clear removes the entry for key, or every entry when key is empty.
func (c *SQLiteCache) Clear(key string) {
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
func (c *SQLiteCache) CleanupExpired() int {
	result, err := c.db.Exec(`
		DELETE FROM result_cache
		WHERE expires_at <= datetime('now')
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
func (c *SQLiteCache) Stats() core.CacheStats {
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
func (c *SQLiteCache) startCleanupTask() {
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
func (c *SQLiteCache) Stop() {
	close(c.stopCh)
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}
