// Package recognize turns page images into text. Engines are pluggable
// behind the Recognizer interface; WithRetry wraps any engine with
// exponential backoff for transient failures such as rate limits.
package recognize

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Recognizer extracts text from a single image.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// TransientError marks a failure worth retrying (rate limits, timeouts,
// transient backend errors).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable. A nil err returns nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is marked retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// RetryPolicy controls WithRetry's backoff schedule.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// BaseDelay is the wait after the first failure; each subsequent wait
	// doubles, capped by MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Jitter adds up to this fraction of the delay as random slack.
	Jitter float64
}

// DefaultRetryPolicy matches typical vision-API rate limit behavior.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 5,
	BaseDelay:   time.Second,
	MaxDelay:    30 * time.Second,
	Jitter:      0.2,
}

type retrying struct {
	inner  Recognizer
	policy RetryPolicy
}

// WithRetry wraps inner so transient failures are retried with exponential
// backoff. Non-transient errors and context cancellation return
// immediately. The last transient error is returned when attempts run out.
func WithRetry(inner Recognizer, policy RetryPolicy) Recognizer {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = time.Second
	}
	return &retrying{inner: inner, policy: policy}
}

func (r *retrying) Recognize(ctx context.Context, image []byte) (string, error) {
	var lastErr error
	delay := r.policy.BaseDelay
	for attempt := 0; attempt < r.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, jittered(delay, r.policy.Jitter)); err != nil {
				return "", err
			}
			delay *= 2
			if r.policy.MaxDelay > 0 && delay > r.policy.MaxDelay {
				delay = r.policy.MaxDelay
			}
		}
		text, err := r.inner.Recognize(ctx, image)
		if err == nil {
			return text, nil
		}
		if !IsTransient(err) || ctx.Err() != nil {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("recognition gave up after %d attempts: %w", r.policy.MaxAttempts, lastErr)
}

func jittered(d time.Duration, frac float64) time.Duration {
	if frac <= 0 {
		return d
	}
	return d + time.Duration(rand.Float64()*frac*float64(d))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
