package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers request keys so a retried write is applied once
type IdempotencyStore interface {
	// MarkProcessed records key with a TTL.
	// Returns true if the key was newly recorded, false if it was already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether key has been recorded
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Forget removes key, used when the guarded write fails and may be retried
	Forget(ctx context.Context, key string) error

	// Close releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a key blocks a repeat. Default: 24 hours
	TTL time.Duration

	// Enabled turns key checking on. Default: true
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
