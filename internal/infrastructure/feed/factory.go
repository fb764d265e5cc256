package feed

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bizops/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deps are the connections a transport may need
type Deps struct {
	Redis       *redis.Client
	DB          *sql.DB
	DatabaseDSN string
	Logger      *zap.Logger
}

// New builds the notifier selected by feed.driver
func New(ctx context.Context, cfg config.FeedConfig, deps Deps) (Notifier, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Driver {
	case "", "local":
		return NewLocalNotifier(logger), nil
	case "redis":
		if deps.Redis == nil {
			return nil, fmt.Errorf("feed driver redis needs a redis client")
		}
		return NewRedisNotifier(ctx, deps.Redis, cfg.Channel, logger)
	case "postgres":
		if deps.DB == nil || deps.DatabaseDSN == "" {
			return nil, fmt.Errorf("feed driver postgres needs the document database")
		}
		return NewPostgresNotifier(deps.DB, deps.DatabaseDSN, cfg.Channel, logger)
	default:
		return nil, fmt.Errorf("unknown feed driver %q", cfg.Driver)
	}
}
