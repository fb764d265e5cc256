package shared

import (
	"context"
	"time"
)

// ClaimStore hands out short-lived exclusive claims on a key. Conversions take
// a claim keyed by tenant and source before re-reading the store so that two
// concurrent requests cannot both observe "no result yet" and both write.
type ClaimStore interface {
	// Claim returns true if the key was free and is now held until ttl expires
	// or Release is called.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release frees a held claim. Releasing an unknown key is not an error.
	Release(ctx context.Context, key string) error

	// Close releases resources held by the store
	Close() error
}

// DefaultClaimTTL bounds how long a crashed holder can block a conversion
const DefaultClaimTTL = 30 * time.Second
