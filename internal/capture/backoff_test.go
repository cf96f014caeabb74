package capture

import (
	"testing"
	"time"
)

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		cfg      BackoffConfig
		want     time.Duration
	}{
		{"default first", 1, DefaultBackoffConfig(), 5 * time.Millisecond},
		{"default stays constant", 29, DefaultBackoffConfig(), 5 * time.Millisecond},
		{"exponential second", 2, BackoffConfig{Initial: 5 * time.Millisecond, Max: 80 * time.Millisecond}, 10 * time.Millisecond},
		{"exponential capped", 10, BackoffConfig{Initial: 5 * time.Millisecond, Max: 80 * time.Millisecond}, 80 * time.Millisecond},
		{"no cap", 3, BackoffConfig{Initial: time.Millisecond}, 4 * time.Millisecond},
		{"disabled", 3, BackoffConfig{}, 0},
		{"zero failures treated as first", 0, DefaultBackoffConfig(), 5 * time.Millisecond},
		{"huge attempt does not overflow", 200, BackoffConfig{Initial: time.Millisecond, Max: time.Second}, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calculateBackoff(tt.failures, tt.cfg); got != tt.want {
				t.Errorf("calculateBackoff(%d) = %v, want %v", tt.failures, got, tt.want)
			}
		})
	}
}
