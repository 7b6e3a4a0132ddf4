package resilience

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/taskpilot/llm-router/internal/core"
)

func newTestLedger(clock *fakeClock, maxDaily, alertAt float64) *CostLedger {
	l := NewCostLedger(zap.NewNop(), nil, maxDaily, alertAt)
	l.now = clock.Now
	l.day = l.dayKey()
	return l
}

func TestLedgerPricesPrimaryModel(t *testing.T) {
	clock := newFakeClock()
	l := newTestLedger(clock, 100, 80)

	cost := l.Record("gpt-4o", core.TokenUsage{PromptTokens: 1000, CompletionTokens: 1000, TotalTokens: 2000})

	assert.InDelta(t, 0.0125, cost, 1e-9)
	assert.InDelta(t, 0.0125, l.Snapshot().SpentUSD, 1e-9)
}

func TestLedgerPricesVersionedFastModel(t *testing.T) {
	clock := newFakeClock()
	l := newTestLedger(clock, 100, 80)

	cost := l.Record("gpt-3.5-turbo-0125", core.TokenUsage{PromptTokens: 1000, CompletionTokens: 1000, TotalTokens: 2000})

	assert.InDelta(t, 0.002, cost, 1e-9)
}

func TestLedgerUnknownModelCostsNothing(t *testing.T) {
	clock := newFakeClock()
	l := newTestLedger(clock, 100, 80)

	cost := l.Record("experimental-model", core.TokenUsage{PromptTokens: 5000, CompletionTokens: 5000})

	assert.Zero(t, cost)
	assert.Zero(t, l.Snapshot().SpentUSD)
}

func TestLedgerRefusesWhenExhausted(t *testing.T) {
	clock := newFakeClock()
	l := newTestLedger(clock, 0.01, 0.008)

	require.NoError(t, l.Allow())

	// 1000 output tokens on gpt-4o cost exactly the ceiling.
	l.Record("gpt-4o", core.TokenUsage{CompletionTokens: 1000})

	assert.ErrorIs(t, l.Allow(), ErrBudgetExhausted)
}

func TestLedgerRollsAtMidnightUTC(t *testing.T) {
	clock := newFakeClock()
	l := newTestLedger(clock, 0.01, 0.008)

	l.Record("gpt-4o", core.TokenUsage{CompletionTokens: 1000})
	require.ErrorIs(t, l.Allow(), ErrBudgetExhausted)

	clock.Advance(24 * time.Hour)

	assert.NoError(t, l.Allow())
	snapshot := l.Snapshot()
	assert.Zero(t, snapshot.SpentUSD)
	assert.Zero(t, snapshot.Calls)
}

func TestLedgerAlertThreshold(t *testing.T) {
	clock := newFakeClock()
	l := newTestLedger(clock, 100, 0.005)

	assert.False(t, l.OverAlertThreshold())

	l.Record("gpt-4o", core.TokenUsage{CompletionTokens: 1000})

	assert.True(t, l.OverAlertThreshold())
}

func TestLedgerSnapshotRemaining(t *testing.T) {
	clock := newFakeClock()
	l := newTestLedger(clock, 100, 80)

	l.Record("gpt-4o", core.TokenUsage{CompletionTokens: 1000})

	snapshot := l.Snapshot()
	assert.InDelta(t, 0.01, snapshot.SpentUSD, 1e-9)
	assert.InDelta(t, 99.99, snapshot.RemainingUSD, 1e-9)
	assert.Equal(t, 1, snapshot.Calls)
}
