package resilience

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/taskpilot/llm-router/internal/core"
)

// ModelPricing is the per-1000-token price of a model in USD.
type ModelPricing struct {
	InputPer1K  float64
	OutputPer1K float64
}

// DefaultPricing returns the published prices for the models the router uses.
func DefaultPricing() map[string]ModelPricing {
	return map[string]ModelPricing{
		"gpt-4o":        {InputPer1K: 0.0025, OutputPer1K: 0.01},
		"gpt-3.5-turbo": {InputPer1K: 0.0005, OutputPer1K: 0.0015},
	}
}

// CostLedger tracks LLM spend for the current UTC day. The running total
// rolls to zero the first time it is consulted after midnight UTC. Once spend
// reaches the daily ceiling further paid calls are refused until the roll.
type CostLedger struct {
	logger   *zap.Logger
	pricing  map[string]ModelPricing
	maxDaily float64
	alertAt  float64
	now      func() time.Time

	mu    sync.Mutex
	day   string
	spent float64
	calls int
}

func NewCostLedger(logger *zap.Logger, pricing map[string]ModelPricing, maxDaily, alertAt float64) *CostLedger {
	if pricing == nil {
		pricing = DefaultPricing()
	}
	l := &CostLedger{
		logger:   logger,
		pricing:  pricing,
		maxDaily: maxDaily,
		alertAt:  alertAt,
		now:      time.Now,
	}
	l.day = l.dayKey()
	return l
}

// Allow reports whether another paid call fits under the daily ceiling.
func (l *CostLedger) Allow() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollLocked()
	if l.spent >= l.maxDaily {
		return ErrBudgetExhausted
	}
	return nil
}

// Record prices the reported usage, adds it to the daily total and returns
// the cost of this call. Models without a pricing entry cost nothing.
func (l *CostLedger) Record(model string, usage core.TokenUsage) float64 {
	pricing, ok := l.lookupPricing(model)
	cost := 0.0
	if ok {
		cost = float64(usage.PromptTokens)/1000*pricing.InputPer1K +
			float64(usage.CompletionTokens)/1000*pricing.OutputPer1K
	} else {
		l.logger.Warn("no pricing for model, recording zero cost", zap.String("model", model))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollLocked()
	l.spent += cost
	l.calls++
	return cost
}

// OverAlertThreshold reports whether spend has crossed the warning level.
func (l *CostLedger) OverAlertThreshold() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollLocked()
	return l.spent >= l.alertAt
}

// LedgerSnapshot is a point-in-time view of the daily spend.
type LedgerSnapshot struct {
	Day          string  `json:"day"`
	SpentUSD     float64 `json:"spent_usd"`
	RemainingUSD float64 `json:"remaining_usd"`
	MaxDailyUSD  float64 `json:"max_daily_usd"`
	AlertAtUSD   float64 `json:"alert_at_usd"`
	Calls        int     `json:"calls"`
}

func (l *CostLedger) Snapshot() LedgerSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollLocked()
	remaining := l.maxDaily - l.spent
	if remaining < 0 {
		remaining = 0
	}
	return LedgerSnapshot{
		Day:          l.day,
		SpentUSD:     l.spent,
		RemainingUSD: remaining,
		MaxDailyUSD:  l.maxDaily,
		AlertAtUSD:   l.alertAt,
		Calls:        l.calls,
	}
}

func (l *CostLedger) lookupPricing(model string) (ModelPricing, bool) {
	if p, ok := l.pricing[model]; ok {
		return p, true
	}
	// Versioned model names (gpt-3.5-turbo-0125) share the base model price.
	for prefix, p := range l.pricing {
		if strings.HasPrefix(model, prefix) {
			return p, true
		}
	}
	return ModelPricing{}, false
}

func (l *CostLedger) dayKey() string {
	return l.now().UTC().Format("2006-01-02")
}

func (l *CostLedger) rollLocked() {
	day := l.dayKey()
	if day != l.day {
		l.logger.Info("daily cost ledger rolled over",
			zap.String("previous_day", l.day),
			zap.Float64("previous_spend_usd", l.spent),
			zap.Int("previous_calls", l.calls))
		l.day = day
		l.spent = 0
		l.calls = 0
	}
}
