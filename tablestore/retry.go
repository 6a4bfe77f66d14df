package tablestore

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// RetryPolicy decides whether a failed call should be retried and, if so,
// how long to wait before the next attempt (spec §4.5).
type RetryPolicy interface {
	// ShouldRetry reports whether action/err combination is retriable at
	// all, independent of attempt budget.
	ShouldRetry(action Action, err error) bool
	// MaxAttempts bounds the number of attempts (including the first).
	MaxAttempts() int
	// NextBackoff returns the delay before attempt number `attempt`
	// (1-based, the attempt about to be made).
	NextBackoff(attempt int) time.Duration
}

// defaultRetryPolicy implements spec §4.5's idempotency x error-code table
// with exponential backoff and jitter, capped at 10 seconds, using the same
// algorithm cenkalti/backoff/v4 implements for HTTP client retries
// elsewhere in the stack.
//
// A single Client shares one RetryPolicy across every concurrent in-flight
// request, so NextBackoff must be a pure function of attempt: it builds a
// fresh backoff.ExponentialBackOff per call (newBackoff) instead of holding
// one shared, mutable instance, which would otherwise let unrelated
// concurrent requests race on the same internal counter and make one
// request's delay depend on how many retries other requests happened to
// trigger.
type defaultRetryPolicy struct {
	maxAttempts int
	newBackoff  func() backoff.BackOff
}

// NewDefaultRetryPolicy builds the retry policy described in spec §4.5:
// unconditionally-retriable error codes/pseudo-statuses, idempotent-only
// retriable codes/statuses, exponential backoff with jitter capped at 10s,
// and a default of 3 attempts.
func NewDefaultRetryPolicy() RetryPolicy {
	newBackoff := func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = 200 * time.Millisecond
		b.MaxInterval = 10 * time.Second
		b.Multiplier = 2
		b.RandomizationFactor = 0.5
		b.MaxElapsedTime = 0 // bounded by maxAttempts, not elapsed wall time
		return b
	}
	return &defaultRetryPolicy{maxAttempts: 3, newBackoff: newBackoff}
}

func (p *defaultRetryPolicy) MaxAttempts() int { return p.maxAttempts }

// NextBackoff replays a fresh ExponentialBackOff forward to `attempt` steps
// so the returned delay depends only on attempt, never on what any other
// request's retries did to a shared instance.
func (p *defaultRetryPolicy) NextBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	b := p.newBackoff()
	d := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		d = b.NextBackOff()
	}
	if d == backoff.Stop || d > 10*time.Second {
		return 10 * time.Second
	}
	return d
}

var unconditionallyRetriableCodes = map[string]bool{
	ErrCodeRowOperationConflict:           true,
	ErrCodeNotEnoughCapacityUnit:          true,
	ErrCodeTableNotReady:                  true,
	ErrCodePartitionUnavailable:           true,
	ErrCodeServerBusy:                     true,
	ErrCodeCapacityUnitExhausted:          true,
	ErrCodeTooFrequentThroughputAdjustment: true,
}

var idempotentOnlyRetriableCodes = map[string]bool{
	ErrCodeTimeout:             true,
	ErrCodeInternalServerError: true,
	ErrCodeServerUnavailable:   true,
	ErrCodeRequestTimeout:      true,
}

func (p *defaultRetryPolicy) ShouldRetry(action Action, err error) bool {
	tsErr, ok := err.(*Error)
	if !ok {
		return false
	}

	if unconditionallyRetriableCodes[tsErr.Code] {
		return true
	}
	if tsErr.Code == ErrCodeQuotaExhausted && tsErr.Message == quotaExhaustedMessage {
		return true
	}
	switch tsErr.HTTPStatus {
	case StatusCouldntConnect, StatusCouldntResolveHost, StatusNoConnectionAvailable:
		return true
	}

	if !action.idempotent() {
		return false
	}

	switch tsErr.HTTPStatus {
	case StatusWriteRequestFail, StatusCorruptedResponse, StatusOperationTimeout:
		return true
	}
	if tsErr.HTTPStatus >= 500 && tsErr.HTTPStatus < 600 {
		return true
	}
	return idempotentOnlyRetriableCodes[tsErr.Code]
}

// newTraceID mints a fresh per-attempt trace id (spec §4.5: "each attempt
// produces a fresh trace-id").
func newTraceID() string {
	return uuid.New().String()
}
