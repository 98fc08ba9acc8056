package recognize

import (
	"context"
	"errors"
	"testing"
	"time"
)

// scripted returns canned results in order, recording how many calls it saw.
type scripted struct {
	results []error
	calls   int
}

func (s *scripted) Recognize(ctx context.Context, image []byte) (string, error) {
	i := s.calls
	s.calls++
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	if err := s.results[i]; err != nil {
		return "", err
	}
	return "ok", nil
}

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestWithRetryRecoversFromTransient(t *testing.T) {
	inner := &scripted{results: []error{
		Transient(errors.New("rate limited")),
		Transient(errors.New("rate limited")),
		nil,
	}}
	r := WithRetry(inner, fastPolicy(5))

	text, err := r.Recognize(context.Background(), nil)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if text != "ok" {
		t.Errorf("text = %q, want ok", text)
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}

func TestWithRetryGivesUpAfterMaxAttempts(t *testing.T) {
	inner := &scripted{results: []error{Transient(errors.New("rate limited"))}}
	r := WithRetry(inner, fastPolicy(3))

	_, err := r.Recognize(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if !IsTransient(err) {
		t.Errorf("final error should unwrap to the transient cause: %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("unsupported image")
	inner := &scripted{results: []error{permanent}}
	r := WithRetry(inner, fastPolicy(5))

	_, err := r.Recognize(context.Background(), nil)
	if !errors.Is(err, permanent) {
		t.Errorf("error = %v, want the permanent cause", err)
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1", inner.calls)
	}
}

func TestWithRetryHonorsContextCancellation(t *testing.T) {
	inner := &scripted{results: []error{Transient(errors.New("rate limited"))}}
	r := WithRetry(inner, RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := r.Recognize(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1", inner.calls)
	}
}

func TestIsTransient(t *testing.T) {
	if IsTransient(errors.New("plain")) {
		t.Error("plain error reported transient")
	}
	if !IsTransient(Transient(errors.New("wrapped"))) {
		t.Error("wrapped error not reported transient")
	}
	if Transient(nil) != nil {
		t.Error("Transient(nil) should be nil")
	}
}
