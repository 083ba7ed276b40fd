package resilience

import (
	"testing"
	"time"
)

func TestNextBackoff_Doubles(t *testing.T) {
	_, next := nextBackoff(10 * time.Second)
	if next != 20*time.Second {
		t.Errorf("expected 20s, got %v", next)
	}
}

func TestNextBackoff_CapsGrowth(t *testing.T) {
	_, next := nextBackoff(20 * time.Second)
	if next != maxBackoff {
		t.Errorf("expected cap at %v, got %v", maxBackoff, next)
	}

	// Once at the cap it stays there.
	_, next = nextBackoff(maxBackoff)
	if next != maxBackoff {
		t.Errorf("expected cap to hold at %v, got %v", maxBackoff, next)
	}
}

func TestNextBackoff_JitterBounds(t *testing.T) {
	backoff := 10 * time.Second
	for i := 0; i < 100; i++ {
		wait, _ := nextBackoff(backoff)
		if wait < backoff || wait >= backoff+backoff/2 {
			t.Fatalf("wait %v outside [%v, %v)", wait, backoff, backoff+backoff/2)
		}
	}
}

func TestNextBackoff_ZeroBackoff(t *testing.T) {
	// A zero initial backoff must not panic on jitter computation.
	wait, next := nextBackoff(0)
	if wait != 0 {
		t.Errorf("expected zero wait, got %v", wait)
	}
	if next != 0 {
		t.Errorf("expected zero next, got %v", next)
	}
}
