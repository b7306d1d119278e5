package gateway

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tair/appointment-payments/internal/payment/domain"
	"github.com/tair/appointment-payments/pkg/logger"
)

// CircuitState represents the state of a circuit breaker
type CircuitState string

const (
	StateClosed   CircuitState = "closed"
	StateOpen     CircuitState = "open"
	StateHalfOpen CircuitState = "half-open"
)

// CircuitBreaker stops calling a provider after consecutive transport failures.
// Only ErrProviderUnavailable counts as a failure; a provider that answers with
// a rejection is healthy.
type CircuitBreaker struct {
	name            string
	maxFailures     int
	openTimeout     time.Duration
	halfOpenSuccess int
	state           CircuitState
	failures        int
	successCount    int
	lastStateChange time.Time
	mu              sync.Mutex
	now             func() time.Time
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(name string, maxFailures int, openTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:            name,
		maxFailures:     maxFailures,
		openTimeout:     openTimeout,
		halfOpenSuccess: 2,
		state:           StateClosed,
		lastStateChange: time.Now(),
		now:             time.Now,
	}
}

// Call executes fn unless the circuit is open
func (cb *CircuitBreaker) Call(fn func() error) error {
	cb.mu.Lock()
	if cb.state == StateOpen && cb.now().Sub(cb.lastStateChange) > cb.openTimeout {
		cb.setState(StateHalfOpen)
		cb.successCount = 0
	}
	state := cb.state
	cb.mu.Unlock()

	if state == StateOpen {
		return fmt.Errorf("%w: circuit breaker is open for %s", domain.ErrProviderUnavailable, cb.name)
	}

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if errors.Is(err, domain.ErrProviderUnavailable) {
		cb.onFailure()
	} else {
		cb.onSuccess()
	}
	return err
}

func (cb *CircuitBreaker) onFailure() {
	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
		if cb.state != StateOpen {
			logger.Logger.Error().
				Str("circuit", cb.name).
				Int("failures", cb.failures).
				Int("threshold", cb.maxFailures).
				Msg("Circuit breaker opened")
		}
		cb.setState(StateOpen)
	}
}

func (cb *CircuitBreaker) onSuccess() {
	switch cb.state {
	case StateHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.halfOpenSuccess {
			cb.failures = 0
			cb.setState(StateClosed)
			logger.Logger.Info().
				Str("circuit", cb.name).
				Msg("Circuit breaker closed after successful recovery")
		}
	case StateClosed:
		cb.failures = 0
	}
}

func (cb *CircuitBreaker) setState(s CircuitState) {
	cb.state = s
	cb.lastStateChange = cb.now()
}

// State returns the current state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
