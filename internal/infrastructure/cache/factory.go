package cache

import (
	"context"
	"fmt"

	"github.com/bizops/backend/internal/domain/shared"
	"github.com/bizops/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ClaimStoreFactory builds the conversion claim store selected by
// sync.claim_driver
type ClaimStoreFactory struct {
	syncConfig            config.SyncConfig
	redisConfig           config.RedisConfig
	client                *redis.Client
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// ClaimStoreFactoryOption configures a ClaimStoreFactory
type ClaimStoreFactoryOption func(*ClaimStoreFactory)

// WithLogger sets the factory logger
func WithLogger(logger *zap.Logger) ClaimStoreFactoryOption {
	return func(f *ClaimStoreFactory) {
		f.logger = logger
	}
}

// WithRedisClient shares an already connected client with the claim store
func WithRedisClient(client *redis.Client) ClaimStoreFactoryOption {
	return func(f *ClaimStoreFactory) {
		f.client = client
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to
// per-process claims instead of failing startup. Defaults to false.
func WithInMemoryFallback(allow bool) ClaimStoreFactoryOption {
	return func(f *ClaimStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewClaimStoreFactory creates a ClaimStoreFactory
func NewClaimStoreFactory(syncCfg config.SyncConfig, redisCfg config.RedisConfig, opts ...ClaimStoreFactoryOption) *ClaimStoreFactory {
	f := &ClaimStoreFactory{
		syncConfig:  syncCfg,
		redisConfig: redisCfg,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns the configured claim store
func (f *ClaimStoreFactory) CreateStore(ctx context.Context) (shared.ClaimStore, error) {
	switch f.syncConfig.ClaimDriver {
	case "", "memory":
		f.logger.Info("Using in-memory conversion claims")
		return NewInMemoryClaimStore(), nil
	case "redis":
	default:
		return nil, fmt.Errorf("unknown claim driver %q", f.syncConfig.ClaimDriver)
	}

	if f.client != nil {
		f.logger.Info("Using Redis conversion claims", zap.String("addr", f.redisConfig.Addr()))
		return NewRedisClaimStore(f.client, ""), nil
	}

	client, err := NewRedisClient(ctx, f.redisConfig)
	if err != nil {
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis claim store unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory conversion claims",
			zap.Error(err),
		)
		return NewInMemoryClaimStore(), nil
	}
	store := NewRedisClaimStore(client, "")
	store.ownClient = true
	f.logger.Info("Using Redis conversion claims", zap.String("addr", f.redisConfig.Addr()))
	return store, nil
}
