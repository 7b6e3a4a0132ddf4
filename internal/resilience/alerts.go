package resilience

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// AlertConfig tunes when repeated failures and budget pressure raise alerts.
type AlertConfig struct {
	// FailureWindow is the sliding window failures are counted within.
	// Default: 5 minutes
	FailureWindow time.Duration

	// FailureCount is how many failures within the window raise an alert.
	// Default: 3
	FailureCount int

	// Cooldown is the minimum spacing between alerts for one component, and
	// between budget alerts. Default: 10 minutes
	Cooldown time.Duration
}

// AlertManager raises operator alerts for failure bursts and budget pressure.
// Alerts are structured log records at warn level; per-component and budget
// alerts are rate limited by the cooldown so a sustained outage does not
// flood the log.
type AlertManager struct {
	logger *zap.Logger
	config AlertConfig
	now    func() time.Time

	mu              sync.Mutex
	failures        map[string][]time.Time
	lastAlert       map[string]time.Time
	lastBudgetAlert time.Time
}

func NewAlertManager(logger *zap.Logger, config AlertConfig) *AlertManager {
	if config.FailureWindow <= 0 {
		config.FailureWindow = 5 * time.Minute
	}
	if config.FailureCount <= 0 {
		config.FailureCount = 3
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 10 * time.Minute
	}
	return &AlertManager{
		logger:    logger,
		config:    config,
		now:       time.Now,
		failures:  make(map[string][]time.Time),
		lastAlert: make(map[string]time.Time),
	}
}

// RecordFailure notes a component failure and raises an alert when the
// component has failed often enough within the window. Returns true when an
// alert was raised.
func (a *AlertManager) RecordFailure(component, reason string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	cutoff := now.Add(-a.config.FailureWindow)

	recent := a.failures[component][:0]
	for _, t := range a.failures[component] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	recent = append(recent, now)
	a.failures[component] = recent

	if len(recent) < a.config.FailureCount {
		return false
	}
	if last, ok := a.lastAlert[component]; ok && now.Sub(last) < a.config.Cooldown {
		return false
	}

	a.lastAlert[component] = now
	a.logger.Warn("component failure alert",
		zap.String("component", component),
		zap.String("reason", reason),
		zap.Int("failures_in_window", len(recent)),
		zap.Duration("window", a.config.FailureWindow))
	return true
}

// BudgetAlert raises a spend warning, subject to the same cooldown. Returns
// true when an alert was raised.
func (a *AlertManager) BudgetAlert(snapshot LedgerSnapshot) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	if !a.lastBudgetAlert.IsZero() && now.Sub(a.lastBudgetAlert) < a.config.Cooldown {
		return false
	}

	a.lastBudgetAlert = now
	a.logger.Warn("daily spend approaching limit",
		zap.Float64("spent_usd", snapshot.SpentUSD),
		zap.Float64("alert_at_usd", snapshot.AlertAtUSD),
		zap.Float64("max_daily_usd", snapshot.MaxDailyUSD))
	return true
}
