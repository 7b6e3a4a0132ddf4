package resilience

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is blocking all requests.
	StateOpen
	// StateHalfOpen means the circuit is testing if the component recovered.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the state by name in stats payloads.
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON parses a state name back into its value.
func (s *State) UnmarshalJSON(data []byte) error {
	name := strings.Trim(string(data), `"`)
	switch name {
	case "closed":
		*s = StateClosed
	case "open":
		*s = StateOpen
	case "half-open":
		*s = StateHalfOpen
	default:
		return fmt.Errorf("unknown breaker state %q", name)
	}
	return nil
}

// BreakerConfig configures a circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before opening the
	// circuit. Default: 5
	MaxFailures int

	// ResetTimeout is how long the circuit stays open before a recovery
	// probe is allowed. Default: 5 minutes
	ResetTimeout time.Duration

	// OnStateChange is called when the circuit state changes.
	OnStateChange func(from, to State)

	// now is overridable for tests.
	now func() time.Time
}

// Breaker implements the circuit breaker pattern for one component. State
// transitions happen lazily on access, so an open circuit whose timeout has
// elapsed moves to half-open only when the next caller asks.
type Breaker struct {
	config BreakerConfig

	mu            sync.Mutex
	state         State
	failures      int
	lastFailure   time.Time
	halfOpenProbe bool
}

// NewBreaker creates a circuit breaker in the closed state.
func NewBreaker(config BreakerConfig) *Breaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 5 * time.Minute
	}
	if config.now == nil {
		config.now = time.Now
	}

	return &Breaker{
		config: config,
		state:  StateClosed,
	}
}

// Allow reports whether a call may proceed. In half-open state only a single
// probe is admitted until its outcome is recorded.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentStateLocked() {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if b.halfOpenProbe {
			return ErrCircuitOpen
		}
		b.halfOpenProbe = true
	}
	return nil
}

// RecordSuccess notes a successful call. A success in half-open state closes
// the circuit; in closed state it clears the failure streak.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentStateLocked() {
	case StateHalfOpen:
		b.setStateLocked(StateClosed)
		b.failures = 0
		b.halfOpenProbe = false
	case StateClosed:
		b.failures = 0
	}
}

// RecordFailure notes a failed call. Enough consecutive failures open the
// circuit; a failed half-open probe reopens it and restarts the timeout.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentStateLocked() {
	case StateClosed:
		b.failures++
		b.lastFailure = b.config.now()
		if b.failures >= b.config.MaxFailures {
			b.setStateLocked(StateOpen)
		}
	case StateHalfOpen:
		b.lastFailure = b.config.now()
		b.halfOpenProbe = false
		b.setStateLocked(StateOpen)
	case StateOpen:
		b.lastFailure = b.config.now()
	}
}

// State returns the current circuit state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentStateLocked()
}

// ResetTimeout reports how long the circuit stays open before a recovery
// probe is allowed.
func (b *Breaker) ResetTimeout() time.Duration {
	return b.config.ResetTimeout
}

// Reset forces the circuit back to closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.setStateLocked(StateClosed)
	b.failures = 0
	b.halfOpenProbe = false
}

// Metrics returns current circuit breaker statistics.
func (b *Breaker) Metrics() BreakerMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BreakerMetrics{
		State:       b.currentStateLocked(),
		Failures:    b.failures,
		LastFailure: b.lastFailure,
	}
}

func (b *Breaker) currentStateLocked() State {
	if b.state == StateOpen && b.config.now().Sub(b.lastFailure) >= b.config.ResetTimeout {
		b.state = StateHalfOpen
		b.halfOpenProbe = false
		if b.config.OnStateChange != nil {
			b.config.OnStateChange(StateOpen, StateHalfOpen)
		}
	}
	return b.state
}

func (b *Breaker) setStateLocked(state State) {
	if b.state == state {
		return
	}
	old := b.state
	b.state = state
	if b.config.OnStateChange != nil {
		b.config.OnStateChange(old, state)
	}
}

// BreakerMetrics contains circuit breaker statistics.
type BreakerMetrics struct {
	State       State     `json:"state"`
	Failures    int       `json:"failures"`
	LastFailure time.Time `json:"last_failure,omitempty"`
}

// BreakerRegistry hands out one breaker per component name, creating them on
// first use with a shared configuration.
type BreakerRegistry struct {
	config BreakerConfig

	mu       sync.Mutex
	breakers map[string]*Breaker
}

func NewBreakerRegistry(config BreakerConfig) *BreakerRegistry {
	return &BreakerRegistry{
		config:   config,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for component, creating it if needed.
func (r *BreakerRegistry) Get(component string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.breakers[component]
	if !ok {
		b = NewBreaker(r.config)
		r.breakers[component] = b
	}
	return b
}

// Metrics returns a snapshot of every registered breaker keyed by component.
func (r *BreakerRegistry) Metrics() map[string]BreakerMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]BreakerMetrics, len(r.breakers))
	for name, b := range r.breakers {
		out[name] = b.Metrics()
	}
	return out
}
