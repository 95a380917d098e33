package backoff_test

import (
	"testing"
	"time"

	"github.com/xraph/fairq/backoff"
)

func TestConstant(t *testing.T) {
	s := backoff.NewConstant(5 * time.Second)
	for _, attempt := range []int{1, 2, 10} {
		if got := s.Delay(attempt); got != 5*time.Second {
			t.Errorf("Delay(%d) = %v, want 5s", attempt, got)
		}
	}
}

func TestLinear(t *testing.T) {
	s := backoff.NewLinear(time.Second, 4*time.Second)

	want := []time.Duration{
		time.Second, 2 * time.Second, 3 * time.Second,
		4 * time.Second, 4 * time.Second, // capped
	}
	for i, w := range want {
		if got := s.Delay(i + 1); got != w {
			t.Errorf("Delay(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestExponential(t *testing.T) {
	s := backoff.NewExponential(time.Second, 10*time.Second)

	want := []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second,
		8 * time.Second, 10 * time.Second, // capped
	}
	for i, w := range want {
		if got := s.Delay(i + 1); got != w {
			t.Errorf("Delay(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestExponentialWithJitter_StaysWithinBounds(t *testing.T) {
	s := backoff.NewExponentialWithJitter(time.Second, 8*time.Second)

	for attempt := 1; attempt <= 6; attempt++ {
		ceiling := time.Duration(1<<uint(attempt-1)) * time.Second
		if ceiling > 8*time.Second {
			ceiling = 8 * time.Second
		}
		for range 50 {
			got := s.Delay(attempt)
			if got < 0 || got > ceiling {
				t.Fatalf("Delay(%d) = %v, want within [0, %v]", attempt, got, ceiling)
			}
		}
	}
}

func TestDefaultStrategyIsImmediate(t *testing.T) {
	s := backoff.DefaultStrategy()
	if got := s.Delay(1); got != 0 {
		t.Errorf("Delay(1) = %v, want 0", got)
	}
}
