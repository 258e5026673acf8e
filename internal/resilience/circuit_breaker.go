package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
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

// ErrCircuitOpen is returned by Call while the breaker is rejecting calls
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig holds configuration for a circuit breaker
type CircuitBreakerConfig struct {
	FailureThreshold int           // consecutive failures that open the circuit
	SuccessThreshold int           // half-open successes that close it again
	RecoveryTimeout  time.Duration // how long the circuit stays open before probing
}

// DefaultCircuitBreakerConfig returns sensible defaults for guarding a network dependency
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		RecoveryTimeout:  30 * time.Second,
	}
}

// CircuitBreaker stops calling a failing dependency until it has had time to recover
type CircuitBreaker struct {
	name   string
	config CircuitBreakerConfig
	now    func() time.Time

	mu          sync.Mutex
	state       CircuitState
	failures    int
	successes   int
	openedAt    time.Time
	totalCalls  int64
	rejected    int64
	totalErrors int64
}

// NewCircuitBreaker creates a circuit breaker, filling zero config fields with defaults
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	defaults := DefaultCircuitBreakerConfig()
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = defaults.FailureThreshold
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = defaults.SuccessThreshold
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = defaults.RecoveryTimeout
	}

	return &CircuitBreaker{
		name:   name,
		config: config,
		now:    time.Now,
	}
}

// Call runs fn unless the circuit is open
func (cb *CircuitBreaker) Call(fn func() error) error {
	if !cb.allow() {
		return ErrCircuitOpen
	}

	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalCalls++
	if cb.state == StateOpen {
		if cb.now().Sub(cb.openedAt) < cb.config.RecoveryTimeout {
			cb.rejected++
			return false
		}
		cb.setState(StateHalfOpen)
	}
	return true
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.totalErrors++
		cb.successes = 0
		cb.failures++
		if cb.state == StateHalfOpen || cb.failures >= cb.config.FailureThreshold {
			cb.setState(StateOpen)
		}
		return
	}

	switch cb.state {
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.setState(StateClosed)
		}
	default:
		cb.failures = 0
	}
}

// setState must be called with mu held
func (cb *CircuitBreaker) setState(state CircuitState) {
	if cb.state == state {
		return
	}

	slog.Warn("Circuit breaker state changed", "name", cb.name, "from", cb.state.String(), "to", state.String())
	cb.state = state
	cb.failures = 0
	cb.successes = 0
	if state == StateOpen {
		cb.openedAt = cb.now()
	}
}

// State returns the current state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// GetStats returns circuit breaker statistics
func (cb *CircuitBreaker) GetStats() map[string]interface{} {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return map[string]interface{}{
		"name":         cb.name,
		"state":        cb.state.String(),
		"failures":     cb.failures,
		"total_calls":  cb.totalCalls,
		"total_errors": cb.totalErrors,
		"rejected":     cb.rejected,
	}
}
