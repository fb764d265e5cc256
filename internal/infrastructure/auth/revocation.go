package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revocation invalidates bearer tokens before they expire. A single token is
// revoked by its jti; a user is revoked by a cut-off time, and every token
// issued at or before it is rejected.
type Revocation interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	RevokeUser(ctx context.Context, userID string, at time.Time, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti, userID string, issuedAt time.Time) (bool, error)
}

// RedisRevocation keeps revocations in Redis so every instance sees them
type RedisRevocation struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisRevocation creates a Redis-backed Revocation
func NewRedisRevocation(client redis.UniversalClient, keyPrefix string) *RedisRevocation {
	if keyPrefix == "" {
		keyPrefix = "bizops:revoked:"
	}
	return &RedisRevocation{client: client, keyPrefix: keyPrefix}
}

func (r *RedisRevocation) jtiKey(jti string) string     { return r.keyPrefix + "jti:" + jti }
func (r *RedisRevocation) userKey(userID string) string { return r.keyPrefix + "user:" + userID }

// RevokeToken stores the jti for ttl
func (r *RedisRevocation) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.jtiKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// RevokeUser stores the cut-off in unix seconds. ttl should be the token
// lifetime; afterwards no token issued before the cut-off is alive.
func (r *RedisRevocation) RevokeUser(ctx context.Context, userID string, at time.Time, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.userKey(userID), at.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke user tokens: %w", err)
	}
	return nil
}

// IsRevoked checks both the jti and the user cut-off in one round trip
func (r *RedisRevocation) IsRevoked(ctx context.Context, jti, userID string, issuedAt time.Time) (bool, error) {
	pipe := r.client.Pipeline()
	jtiCmd := pipe.Exists(ctx, r.jtiKey(jti))
	userCmd := pipe.Get(ctx, r.userKey(userID))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}

	if jtiCmd.Val() > 0 {
		return true, nil
	}
	raw, err := userCmd.Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	cutoff, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("malformed revocation cut-off for %s: %w", userID, err)
	}
	return issuedAt.Unix() <= cutoff, nil
}

var _ Revocation = (*RedisRevocation)(nil)

// InMemoryRevocation is a per-process Revocation for tests and single
// instance deployments
type InMemoryRevocation struct {
	mu      sync.Mutex
	now     func() time.Time
	tokens  map[string]time.Time // jti -> expiry
	cutoffs map[string]time.Time // user -> cut-off
}

// NewInMemoryRevocation creates an empty InMemoryRevocation
func NewInMemoryRevocation() *InMemoryRevocation {
	return &InMemoryRevocation{
		now:     time.Now,
		tokens:  make(map[string]time.Time),
		cutoffs: make(map[string]time.Time),
	}
}

// RevokeToken records the jti until ttl elapses
func (m *InMemoryRevocation) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[jti] = m.now().Add(ttl)
	return nil
}

// RevokeUser records the user's cut-off
func (m *InMemoryRevocation) RevokeUser(_ context.Context, userID string, at time.Time, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cutoffs[userID] = at
	return nil
}

// IsRevoked reports whether the jti or the user's cut-off rejects the token
func (m *InMemoryRevocation) IsRevoked(_ context.Context, jti, userID string, issuedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if expiry, ok := m.tokens[jti]; ok {
		if m.now().Before(expiry) {
			return true, nil
		}
		delete(m.tokens, jti)
	}
	if cutoff, ok := m.cutoffs[userID]; ok && issuedAt.Unix() <= cutoff.Unix() {
		return true, nil
	}
	return false, nil
}

var _ Revocation = (*InMemoryRevocation)(nil)
