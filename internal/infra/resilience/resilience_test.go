package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pftrack/pftrack/internal/infra/resilience"
)

var errDelivery = errors.New("webhook unreachable")

func TestRetryWithBackoff_FirstAttemptSucceeds(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     3,
		InitialBackoff: 5 * time.Millisecond,
	}

	calls := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		calls++
		return nil
	})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single call, got %d", calls)
	}
}

func TestRetryWithBackoff_RecoversAfterFailures(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     3,
		InitialBackoff: 5 * time.Millisecond,
	}

	calls := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errDelivery
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success on the third attempt, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryWithBackoff_ReturnsLastError(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     2,
		InitialBackoff: 5 * time.Millisecond,
	}

	calls := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		calls++
		return errDelivery
	})

	if !errors.Is(err, errDelivery) {
		t.Fatalf("expected last error back, got %v", err)
	}
	// Initial attempt plus two retries.
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryWithBackoff_CancelledContext(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     5,
		InitialBackoff: time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := resilience.RetryWithBackoff(ctx, cfg, func() error {
		return errDelivery
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}

func TestBulkhead_LimitsConcurrency(t *testing.T) {
	bh := resilience.NewBulkhead(2)

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("second acquire: %v", err)
	}

	// Both slots are taken, so the third acquire has to wait.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := bh.Acquire(ctx); err == nil {
		t.Fatal("expected third acquire to time out")
	}

	bh.Release()
	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestNewBulkhead_FloorsToOne(t *testing.T) {
	for _, limit := range []int{0, -3} {
		bh := resilience.NewBulkhead(limit)

		// The floor still admits one caller.
		if err := bh.Acquire(context.Background()); err != nil {
			t.Fatalf("limit %d: first acquire: %v", limit, err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		if err := bh.Acquire(ctx); err == nil {
			t.Fatalf("limit %d: expected second acquire to time out", limit)
		}
		cancel()
		bh.Release()
	}
}
