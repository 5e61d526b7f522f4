package backoff

import (
	"testing"
	"time"
)

func TestConstant(t *testing.T) {
	s := NewConstant(10 * time.Second)
	for _, attempt := range []int{1, 5, 100} {
		if d := s.Delay(attempt); d != 10*time.Second {
			t.Errorf("Delay(%d) = %v, want 10s", attempt, d)
		}
	}
}

func TestLinear(t *testing.T) {
	s := NewLinear(2*time.Second, 7*time.Second)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 6 * time.Second},
		{4, 7 * time.Second}, // capped
		{50, 7 * time.Second},
	}
	for _, tt := range tests {
		if d := s.Delay(tt.attempt); d != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, d, tt.want)
		}
	}
}

func TestLinearNoCap(t *testing.T) {
	s := NewLinear(time.Second, 0)
	if d := s.Delay(100); d != 100*time.Second {
		t.Errorf("Delay(100) = %v, want 100s", d)
	}
}

func TestExponential(t *testing.T) {
	s := NewExponential(time.Second, time.Minute)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{6, 32 * time.Second},
		{7, time.Minute}, // 64s capped at 60s
		{20, time.Minute},
	}
	for _, tt := range tests {
		if d := s.Delay(tt.attempt); d != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, d, tt.want)
		}
	}
}

func TestExponentialWithJitterBounds(t *testing.T) {
	s := NewExponentialWithJitter(time.Second, 30*time.Second)

	for attempt := 1; attempt <= 10; attempt++ {
		for i := 0; i < 100; i++ {
			d := s.Delay(attempt)
			if d < 0 {
				t.Fatalf("Delay(%d) = %v, negative", attempt, d)
			}
			ceiling := time.Duration(float64(time.Second) * float64(int(1)<<(attempt-1)))
			if ceiling > 30*time.Second {
				ceiling = 30 * time.Second
			}
			if d > ceiling {
				t.Fatalf("Delay(%d) = %v, above ceiling %v", attempt, d, ceiling)
			}
		}
	}
}

func TestDefaultStrategy(t *testing.T) {
	s := DefaultStrategy()
	for i := 1; i <= 30; i++ {
		d := s.Delay(i)
		if d < 0 || d > time.Hour {
			t.Fatalf("Delay(%d) = %v, outside [0, 1h]", i, d)
		}
	}
}
