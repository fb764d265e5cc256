package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bizops/backend/internal/domain/shared"
	"github.com/bizops/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultClaimKeyPrefix = "bizops:claim:"

// releaseScript deletes the key only if it still holds our token, so an
// expired claim that was re-taken by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisClaimStore implements ClaimStore with SET NX PX, so claims exclude
// every instance sharing the Redis server
type RedisClaimStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ownClient bool

	mu     sync.Mutex
	tokens map[string]string
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// NewRedisClaimStore creates a claim store on a shared client. The client is
// not closed by Close.
func NewRedisClaimStore(client redis.UniversalClient, keyPrefix string) *RedisClaimStore {
	if keyPrefix == "" {
		keyPrefix = defaultClaimKeyPrefix
	}
	return &RedisClaimStore{
		client:    client,
		keyPrefix: keyPrefix,
		tokens:    make(map[string]string),
	}
}

// Claim sets the key if absent with a per-claim token
func (s *RedisClaimStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, s.keyPrefix+key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim %q: %w", key, err)
	}
	if ok {
		s.mu.Lock()
		s.tokens[key] = token
		s.mu.Unlock()
	}
	return ok, nil
}

// Release deletes the key if this store still holds it
func (s *RedisClaimStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	token, held := s.tokens[key]
	delete(s.tokens, key)
	s.mu.Unlock()
	if !held {
		return nil
	}

	if err := releaseScript.Run(ctx, s.client, []string{s.keyPrefix + key}, token).Err(); err != nil {
		return fmt.Errorf("failed to release claim %q: %w", key, err)
	}
	return nil
}

// Close closes the client when the store owns it
func (s *RedisClaimStore) Close() error {
	if s.ownClient {
		return s.client.Close()
	}
	return nil
}

var _ shared.ClaimStore = (*RedisClaimStore)(nil)
