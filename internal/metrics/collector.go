// Package metrics keeps bounded in-memory records of classifications, model
// calls and pipeline executions, and aggregates them for the stats surface.
package metrics

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taskpilot/llm-router/internal/core"
)

type classificationRecord struct {
	route      core.RouteType
	confidence float64
	at         time.Time
}

type apiCallRecord struct {
	model   string
	usage   core.TokenUsage
	costUSD float64
	success bool
	at      time.Time
}

type executionRecord struct {
	route       core.RouteType
	requiresLLM bool
	fromCache   bool
	success     bool
	duration    time.Duration
	at          time.Time
}

// Collector is a thread-safe, memory-bounded metrics store. When a record
// class exceeds maxRecords the oldest entries are dropped.
type Collector struct {
	logger     *zap.Logger
	maxRecords int

	mu              sync.Mutex
	classifications []classificationRecord
	apiCalls        []apiCallRecord
	executions      []executionRecord
}

func NewCollector(logger *zap.Logger, maxRecords int) *Collector {
	if maxRecords <= 0 {
		maxRecords = 10000
	}
	return &Collector{
		logger:     logger,
		maxRecords: maxRecords,
	}
}

// RecordClassification notes a routing decision.
func (c *Collector) RecordClassification(route core.RouteType, confidence float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.classifications = append(c.classifications, classificationRecord{
		route:      route,
		confidence: confidence,
		at:         time.Now().UTC(),
	})
	c.classifications = trimOldest(c.classifications, c.maxRecords)
}

// RecordAPICall notes a model call, its usage and its priced cost.
func (c *Collector) RecordAPICall(model string, usage core.TokenUsage, costUSD float64, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.apiCalls = append(c.apiCalls, apiCallRecord{
		model:   model,
		usage:   usage,
		costUSD: costUSD,
		success: success,
		at:      time.Now().UTC(),
	})
	c.apiCalls = trimOldest(c.apiCalls, c.maxRecords)
}

// RecordExecution notes one full pipeline run.
func (c *Collector) RecordExecution(route core.RouteType, requiresLLM, fromCache, success bool, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.executions = append(c.executions, executionRecord{
		route:       route,
		requiresLLM: requiresLLM,
		fromCache:   fromCache,
		success:     success,
		duration:    duration,
		at:          time.Now().UTC(),
	})
	c.executions = trimOldest(c.executions, c.maxRecords)
}

// Summary aggregates everything currently retained.
type Summary struct {
	TotalClassifications int                    `json:"total_classifications"`
	AverageConfidence    float64                `json:"average_confidence"`
	RouteDistribution    map[core.RouteType]int `json:"route_distribution,omitempty"`
	BackendShortcuts     int                    `json:"backend_shortcuts"`
	LLMRoutes            int                    `json:"llm_routes"`

	TotalAPICalls      int     `json:"total_api_calls"`
	SuccessfulAPICalls int     `json:"successful_api_calls"`
	TotalTokens        int     `json:"total_tokens"`
	TotalCostUSD       float64 `json:"total_cost_usd"`

	TotalExecutions int     `json:"total_executions"`
	CacheHitRate    float64 `json:"cache_hit_rate"`
	SuccessRate     float64 `json:"success_rate"`
	AvgDurationMs   float64 `json:"avg_duration_ms"`
}

func (c *Collector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Summary{
		TotalClassifications: len(c.classifications),
		TotalAPICalls:        len(c.apiCalls),
		TotalExecutions:      len(c.executions),
	}

	if len(c.classifications) > 0 {
		s.RouteDistribution = make(map[core.RouteType]int)
		total := 0.0
		for _, rec := range c.classifications {
			s.RouteDistribution[rec.route]++
			total += rec.confidence
			if rec.route.RequiresLLM() {
				s.LLMRoutes++
			} else {
				s.BackendShortcuts++
			}
		}
		s.AverageConfidence = total / float64(len(c.classifications))
	}

	for _, call := range c.apiCalls {
		if call.success {
			s.SuccessfulAPICalls++
		}
		s.TotalTokens += call.usage.TotalTokens
		s.TotalCostUSD += call.costUSD
	}

	if len(c.executions) > 0 {
		hits, successes := 0, 0
		var totalDuration time.Duration
		for _, exec := range c.executions {
			if exec.fromCache {
				hits++
			}
			if exec.success {
				successes++
			}
			totalDuration += exec.duration
		}
		s.CacheHitRate = float64(hits) / float64(len(c.executions))
		s.SuccessRate = float64(successes) / float64(len(c.executions))
		s.AvgDurationMs = float64(totalDuration.Milliseconds()) / float64(len(c.executions))
	}

	return s
}

// Reset drops all retained records.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.classifications = nil
	c.apiCalls = nil
	c.executions = nil
	c.logger.Info("metrics reset")
}

func trimOldest[T any](records []T, max int) []T {
	if len(records) <= max {
		return records
	}
	keep := records[len(records)-max:]
	out := make([]T, len(keep))
	copy(out, keep)
	return out
}
