package relay

import "time"

// Config holds configuration for the Relay engine.
type Config struct {
	// Concurrency is the maximum number of deliveries sent concurrently.
	Concurrency int

	// PollInterval is how often workers poll for due deliveries.
	PollInterval time.Duration

	// MaxAttempts bounds how often each delivery is retried before it
	// is marked failed.
	MaxAttempts int

	// HTTPTimeout is the per-request timeout for endpoint sends.
	HTTPTimeout time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:     10,
		PollInterval:    1 * time.Second,
		MaxAttempts:     5,
		HTTPTimeout:     30 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}
