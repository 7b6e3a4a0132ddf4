package resilience

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/taskpilot/llm-router/internal/core"
)

// Component names used when reporting failures and breaker state.
const (
	ComponentLLMAPI     = "llm_api"
	ComponentClassifier = "classifier"
	ComponentPipeline   = "pipeline"
)

// Governor is the pre-call and post-call hook pair around every paid LLM
// request. Before a call it checks the daily budget and the component's
// circuit breaker; after a call it feeds the outcome back into the breaker,
// the cost ledger and the alert manager.
type Governor struct {
	logger   *zap.Logger
	breakers *BreakerRegistry
	ledger   *CostLedger
	alerts   *AlertManager
}

func NewGovernor(logger *zap.Logger, breakers *BreakerRegistry, ledger *CostLedger, alerts *AlertManager) *Governor {
	return &Governor{
		logger:   logger,
		breakers: breakers,
		ledger:   ledger,
		alerts:   alerts,
	}
}

// Precheck reports whether a call to component may proceed. The budget gate
// runs first so an exhausted budget is reported even when the breaker would
// also refuse.
func (g *Governor) Precheck(component string) error {
	if err := g.ledger.Allow(); err != nil {
		return err
	}
	return g.breakers.Get(component).Allow()
}

// ObserveSuccess records a successful call: the breaker streak resets and the
// reported usage is priced into the ledger. Crossing the spend warning level
// raises a budget alert. Returns the priced cost of the call.
func (g *Governor) ObserveSuccess(component, model string, usage core.TokenUsage) float64 {
	g.breakers.Get(component).RecordSuccess()

	cost := g.ledger.Record(model, usage)
	g.logger.Debug("llm call cost recorded",
		zap.String("component", component),
		zap.String("model", model),
		zap.Int("total_tokens", usage.TotalTokens),
		zap.Float64("cost_usd", cost))

	if g.ledger.OverAlertThreshold() {
		g.alerts.BudgetAlert(g.ledger.Snapshot())
	}
	return cost
}

// ObserveFailure records a failed call against the breaker and the alert
// tracker.
func (g *Governor) ObserveFailure(component string, kind core.ErrorKind) {
	g.breakers.Get(component).RecordFailure()
	g.alerts.RecordFailure(component, string(kind))
}

// CircuitRetryAfter reports how long component's circuit stays open before a
// recovery probe is allowed, so refusals can carry a retry hint.
func (g *Governor) CircuitRetryAfter(component string) time.Duration {
	return g.breakers.Get(component).ResetTimeout()
}

// BreakerMetrics exposes per-component breaker state for the stats surface.
func (g *Governor) BreakerMetrics() map[string]BreakerMetrics {
	return g.breakers.Metrics()
}

// LedgerSnapshot exposes the daily spend for the stats surface.
func (g *Governor) LedgerSnapshot() LedgerSnapshot {
	return g.ledger.Snapshot()
}

// KindForError maps resilience sentinels onto the pipeline's error kinds.
func KindForError(err error) core.ErrorKind {
	switch {
	case errors.Is(err, ErrBudgetExhausted):
		return core.ErrKindCostLimitReached
	case errors.Is(err, ErrCircuitOpen):
		return core.ErrKindCircuitOpen
	default:
		return core.ErrKindUnexpected
	}
}
