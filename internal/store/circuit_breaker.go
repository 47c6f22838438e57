package store

import (
	"sync"
	"time"

	"github.com/camerarecorder/vms-core/internal/logging"
)

// breakerState mirrors the teacher's CircuitBreakerState in
// internal/mediamtx/circuit_breaker.go.
type breakerState string

const (
	stateClosed   breakerState = "closed"
	stateOpen     breakerState = "open"
	stateHalfOpen breakerState = "half-open"
)

// circuitBreaker trips after failureThreshold consecutive failures and
// stays open for recoveryTimeout, then moves to half-open, where every
// call is let through until one succeeds (closing it) or one fails
// (opening it again). It guards RetryingGateway from repeating the full 5-attempt
// backoff ladder against a store that has been down for a while.
type circuitBreaker struct {
	logger            *logging.Logger
	failureThreshold  int
	recoveryTimeout   time.Duration
	mu                sync.Mutex
	state             breakerState
	consecutiveFails  int
	lastFailureTime   time.Time
}

func newCircuitBreaker(logger *logging.Logger, failureThreshold int, recoveryTimeout time.Duration) *circuitBreaker {
	return &circuitBreaker{
		logger:           logger,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		state:            stateClosed,
	}
}

// allow reports whether an operation may proceed, transitioning open ->
// half-open once the recovery timeout has elapsed.
func (cb *circuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state != stateOpen {
		return true
	}
	if time.Since(cb.lastFailureTime) < cb.recoveryTimeout {
		return false
	}
	cb.state = stateHalfOpen
	cb.logger.WithFields(logging.Fields{"state": stateHalfOpen}).Info("store circuit breaker probing after recovery timeout")
	return true
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.consecutiveFails > 0 || cb.state != stateClosed {
		cb.logger.WithFields(logging.Fields{"previous_state": cb.state}).Info("store circuit breaker closed after successful operation")
	}
	cb.consecutiveFails = 0
	cb.state = stateClosed
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFails++
	cb.lastFailureTime = time.Now()
	if cb.consecutiveFails >= cb.failureThreshold {
		cb.state = stateOpen
		cb.logger.WithFields(logging.Fields{
			"consecutive_failures": cb.consecutiveFails,
			"threshold":            cb.failureThreshold,
		}).Warn("store circuit breaker opened")
	}
}
