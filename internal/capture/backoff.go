package capture

import "time"

// BackoffConfig controls the sleep between failed reads
type BackoffConfig struct {
	Initial time.Duration // Delay after the first failure (default: 5ms)
	Max     time.Duration // Delay cap (default: 5ms, i.e. constant backoff)
}

// DefaultBackoffConfig returns the constant 5ms backoff
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial: 5 * time.Millisecond,
		Max:     5 * time.Millisecond,
	}
}

// calculateBackoff returns the delay after the given consecutive failure.
//
// Formula: delay = initial * 2^(failures-1), capped at max.
//
// With the default config every failure sleeps 5ms. With Initial=5ms and
// Max=80ms the schedule is 5, 10, 20, 40, 80, 80, ...
func calculateBackoff(failures int, cfg BackoffConfig) time.Duration {
	if failures < 1 {
		failures = 1
	}
	if cfg.Initial <= 0 {
		return 0
	}

	shift := failures - 1
	if shift > 30 {
		shift = 30
	}
	delay := cfg.Initial * time.Duration(1<<uint(shift))

	if cfg.Max > 0 && (delay > cfg.Max || delay <= 0) {
		delay = cfg.Max
	}
	return delay
}
