package retry

import (
	"context"
	"strings"
	"time"
)

// Default policy values used when a Policy field is zero.
const (
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = time.Second
)

// transientMarkers are substrings that identify a retryable provider error
// in its serialized form: HTTP rate limiting, temporary unavailability, and
// the gRPC status names Gemini reports for the same conditions.
var transientMarkers = []string{
	"429",
	"503",
	"RESOURCE_EXHAUSTED",
	"UNAVAILABLE",
}

// IsTransient reports whether err looks like a temporary provider failure
// worth retrying. It inspects the error's serialized form for rate-limit and
// unavailability markers. A nil error is not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Policy configures a retry loop.
type Policy struct {
	// MaxAttempts is the total attempt ceiling, including the first attempt.
	// Zero or negative uses DefaultMaxAttempts.
	MaxAttempts int

	// InitialDelay is the suspension before the second attempt. Each further
	// retry doubles the previous delay. Zero or negative uses
	// DefaultInitialDelay.
	InitialDelay time.Duration

	// Classify decides whether an error is transient. Nil uses IsTransient.
	Classify func(error) bool

	// OnRetry, when non-nil, is invoked before each suspension with the
	// 1-based number of the attempt that just failed and the delay about to
	// be applied. It is fire-and-forget; its behavior never alters the loop.
	OnRetry func(attempt int, delay time.Duration)

	// sleep is the suspension primitive, replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = DefaultInitialDelay
	}
	if p.Classify == nil {
		p.Classify = IsTransient
	}
	if p.sleep == nil {
		p.sleep = sleepContext
	}
	return p
}

// sleepContext waits for d or until ctx is cancelled, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do executes op under the given policy. It returns the first successful
// result, retrying transient failures with exponential backoff until the
// attempt ceiling is reached. Fatal errors propagate immediately after a
// single attempt; the last transient error propagates unchanged once
// attempts are exhausted. Cancelling ctx during a backoff suspension aborts
// the loop with the context error.
func Do[T any](ctx context.Context, policy Policy, op func(ctx context.Context) (T, error)) (T, error) {
	p := policy.withDefaults()

	var zero T
	delay := p.InitialDelay

	for attempt := 1; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		if !p.Classify(err) {
			// Fatal: never retried.
			return zero, err
		}

		if attempt >= p.MaxAttempts {
			return zero, err
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt, delay)
		}

		if sleepErr := p.sleep(ctx, delay); sleepErr != nil {
			return zero, sleepErr
		}
		delay *= 2
	}
}
