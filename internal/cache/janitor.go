package cache

import (
	"time"

	"go.uber.org/zap"

	"github.com/taskpilot/llm-router/internal/core"
)

// Janitor periodically sweeps expired entries out of a cache that does not
// run its own cleanup task. The memory cache relies on it; the SQL caches
// manage their own schedule.
type Janitor struct {
	cache  core.ResultCache
	logger *zap.Logger
	freq   time.Duration
	stopCh chan struct{}
}

func NewJanitor(cache core.ResultCache, logger *zap.Logger, freq time.Duration) *Janitor {
	return &Janitor{
		cache:  cache,
		logger: logger,
		freq:   freq,
		stopCh: make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called.
func (j *Janitor) Start() {
	go func() {
		ticker := time.NewTicker(j.freq)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if removed := j.cache.CleanupExpired(); removed > 0 {
					j.logger.Debug("cache sweep complete", zap.Int("removed", removed))
				}
			case <-j.stopCh:
				return
			}
		}
	}()
}

func (j *Janitor) Stop() {
	close(j.stopCh)
}
