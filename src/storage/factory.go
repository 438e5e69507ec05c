package storage

import (
	"context"
	"market-gateway/src/interfaces"
	"market-gateway/src/logger"
	"market-gateway/src/models"
	"time"
)

// -----------------------------------------------------------------------------

// NewDocumentStore builds the store selected by config.Storage.DBType.
// Postgres without a connection string falls back to memory.
func NewDocumentStore(cfg *models.MConfig, appLogger *logger.Logger) interfaces.IDocumentStore {
	switch cfg.Storage.DBType {
	case "postgres":
		if cfg.Storage.DBConnectionString == "" {
			appLogger.Warning("Connection string is not defined, will use an in-memory store")
			return NewMemoryStore(logger.NewLogger("MemoryStore"))
		}
		return NewPostgresStore(cfg, logger.NewLogger("PostgresStore"))
	case "sqlite":
		return NewSQLiteStore(cfg, logger.NewLogger("SQLiteStore"))
	case "redis":
		return NewRedisStore(cfg, logger.NewLogger("RedisStore"))
	default:
		return NewMemoryStore(logger.NewLogger("MemoryStore"))
	}
}

// -----------------------------------------------------------------------------

// Purger is implemented by stores that keep expired rows until told to delete them.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// RunPurgeLoop periodically deletes expired rows until ctx is cancelled.
// Stores with native expiration (redis, memory) are skipped.
func RunPurgeLoop(ctx context.Context, store interfaces.IDocumentStore, interval time.Duration, log *logger.Logger) {
	purger, ok := store.(Purger)
	if !ok {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := purger.PurgeExpired(ctx)
			if err != nil {
				log.Warning("Purge of expired documents failed: %v", err)
				continue
			}
			if n > 0 {
				log.Info("Purged %d expired documents", n)
			}
		}
	}
}
