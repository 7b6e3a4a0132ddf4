package generation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/taskpilot/llm-router/internal/core"
	"github.com/taskpilot/llm-router/internal/metrics"
	"github.com/taskpilot/llm-router/internal/resilience"
)

// Manager fronts the generation client with the resilience governor: every
// call is budget- and breaker-checked first, and its outcome is fed back into
// the breaker, ledger and metrics. A rate-limited primary-tier call is
// retried once on the fast tier, transparently to the caller; there is never
// a second retry.
type Manager struct {
	logger    *zap.Logger
	client    core.GenerationClient
	governor  *resilience.Governor
	collector *metrics.Collector
	timeout   time.Duration
}

func NewManager(
	logger *zap.Logger,
	client core.GenerationClient,
	governor *resilience.Governor,
	collector *metrics.Collector,
	timeout time.Duration,
) *Manager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Manager{
		logger:    logger,
		client:    client,
		governor:  governor,
		collector: collector,
		timeout:   timeout,
	}
}

// Generate runs one governed generation call.
func (m *Manager) Generate(ctx context.Context, req *core.GenerationRequest) *core.GenerationResult {
	return m.generate(ctx, req, true)
}

func (m *Manager) generate(ctx context.Context, req *core.GenerationRequest, allowRetry bool) *core.GenerationResult {
	if req.SystemPrompt == "" || req.UserMessage == "" {
		return &core.GenerationResult{
			Success:      false,
			ErrorKind:    core.ErrKindInvalidInput,
			ErrorMessage: "system prompt and user message are required",
		}
	}

	if err := m.governor.Precheck(resilience.ComponentLLMAPI); err != nil {
		m.logger.Warn("generation refused",
			zap.String("tier", string(req.Tier)),
			zap.Error(err))
		kind := resilience.KindForError(err)
		result := &core.GenerationResult{
			Success:      false,
			ErrorKind:    kind,
			ErrorMessage: err.Error(),
		}
		// An exhausted budget blocks everything, including rule-based
		// fallbacks; an open circuit still allows degraded output while the
		// reset timeout runs out.
		if kind == core.ErrKindCircuitOpen {
			result.FallbackAvailable = true
			result.RetryAfter = m.governor.CircuitRetryAfter(resilience.ComponentLLMAPI)
		}
		return result
	}

	callCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := m.client.Generate(callCtx, req)
	if err != nil {
		m.logger.Error("generation client returned an error", zap.Error(err))
		result = &core.GenerationResult{
			Success:      false,
			ErrorKind:    core.ErrKindUnexpected,
			ErrorMessage: err.Error(),
		}
	}

	if result.Success {
		cost := m.governor.ObserveSuccess(resilience.ComponentLLMAPI, result.ModelUsed, result.Usage)
		m.collector.RecordAPICall(result.ModelUsed, result.Usage, cost, true)
		m.logger.Info("generation succeeded",
			zap.String("model", result.ModelUsed),
			zap.Int("total_tokens", result.Usage.TotalTokens),
			zap.Duration("elapsed", time.Since(start)))
		return result
	}

	m.governor.ObserveFailure(resilience.ComponentLLMAPI, result.ErrorKind)
	m.collector.RecordAPICall(result.ModelUsed, result.Usage, 0, false)

	if result.ErrorKind == core.ErrKindRateLimit && allowRetry && req.Tier == core.TierPrimary {
		m.logger.Info("rate limit on primary model, retrying on fast tier")
		retryReq := *req
		retryReq.Tier = core.TierFast
		return m.generate(ctx, &retryReq, false)
	}

	if result.ErrorKind == core.ErrKindRateLimit {
		// Both tiers throttled; nothing degraded to offer.
		result.FallbackAvailable = false
	}
	return result
}
