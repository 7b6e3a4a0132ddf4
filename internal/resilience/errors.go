package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when a component's circuit breaker refuses
	// the call.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrBudgetExhausted is returned when the daily cost ceiling has been
	// reached and further paid calls are refused.
	ErrBudgetExhausted = errors.New("resilience: daily cost limit reached")
)
