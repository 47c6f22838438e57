package store

import (
	"context"
	"time"

	"github.com/camerarecorder/vms-core/internal/domain"
	"github.com/camerarecorder/vms-core/internal/logging"
)

// RetryPolicy is the §4.2 bounded-retry ladder: up to maxAttempts with
// exponential backoff from base to max.
type RetryPolicy struct {
	MaxAttempts int
	Base        time.Duration
	Max         time.Duration
}

// DefaultRetryPolicy matches §4.2: retry up to 5 attempts, base 5s, max 30s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, Base: 5 * time.Second, Max: 30 * time.Second}
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.Base << attempt
	if d > p.Max || d <= 0 {
		d = p.Max
	}
	return d
}

// Sleeper abstracts time.Sleep so tests can run the retry ladder without
// real delays.
type Sleeper interface {
	Sleep(d time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

// RetryingGateway wraps a Gateway with the §4.2 retry/backoff contract
// plus a circuit breaker (SPEC_FULL.md SUPPLEMENTED FEATURES §1): every
// operation retries transient failures up to policy.MaxAttempts times
// and fails with domain.StoreUnavailable only after exhausting retries,
// or immediately once the breaker is open.
type RetryingGateway struct {
	inner   Gateway
	policy  RetryPolicy
	sleeper Sleeper
	logger  *logging.Logger
	breaker *circuitBreaker
}

// NewRetryingGateway wraps inner with the default retry policy and a
// circuit breaker that opens after 5 consecutive failures and probes
// again after a 60s recovery timeout.
func NewRetryingGateway(inner Gateway, logger *logging.Logger) *RetryingGateway {
	return &RetryingGateway{
		inner:   inner,
		policy:  DefaultRetryPolicy(),
		sleeper: realSleeper{},
		logger:  logger,
		breaker: newCircuitBreaker(logger, 5, 60*time.Second),
	}
}

// withRetry executes op, retrying transient failures per policy. op
// should return a transient error for anything worth retrying (network
// blips, timeouts); a domain.*Error with a non-StoreUnavailable Kind
// (e.g. Conflict, NotFound) is returned immediately without retry since
// it is not a store-availability problem.
func (g *RetryingGateway) withRetry(ctx context.Context, op string, fn func() error) error {
	if !g.breaker.allow() {
		return domain.NewError(domain.StoreUnavailable, op, "circuit breaker open", nil)
	}

	var lastErr error
	for attempt := 0; attempt < g.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return domain.NewError(domain.StoreUnavailable, op, "cancelled during backoff", ctx.Err())
			default:
			}
			g.sleeper.Sleep(g.policy.delay(attempt - 1))
		}

		err := fn()
		if err == nil {
			g.breaker.recordSuccess()
			return nil
		}
		if !isTransient(err) {
			return err
		}
		lastErr = err
		g.logger.WithFields(logging.Fields{"op": op, "attempt": attempt + 1, "error": err.Error()}).Warn("store operation failed, retrying")
	}

	g.breaker.recordFailure()
	return domain.NewError(domain.StoreUnavailable, op, "store unavailable after retries", lastErr)
}

// isTransient decides whether an error is worth retrying. Domain errors
// carrying a definite semantic Kind (Conflict, NotFound, Validation) are
// not retried; anything else is assumed to be a transient store problem.
func isTransient(err error) bool {
	switch domain.KindOf(err) {
	case domain.Conflict, domain.NotFound, domain.Validation, domain.DuplicateFilePath:
		return false
	default:
		return true
	}
}
