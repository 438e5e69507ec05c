package storage

import (
	"context"
	"errors"
	"fmt"
	"market-gateway/src/interfaces"
	"market-gateway/src/logger"
	"market-gateway/src/models"
	"market-gateway/src/utils"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "docdb:"

// Compile-time check to ensure RedisStore implements IDocumentStore
var _ interfaces.IDocumentStore = (*RedisStore)(nil)

// RedisStore keeps each document under docdb:<table>:<id>; expiration maps to key TTL.
type RedisStore struct {
	Config *models.MConfig
	Client *redis.Client
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewRedisStore(cfg *models.MConfig, log *logger.Logger) *RedisStore {
	return &RedisStore{
		Config: cfg,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

func (r *RedisStore) Initialize(ctx context.Context) error {
	if r.Client == nil {
		r.Client = redis.NewClient(&redis.Options{
			Addr:     r.Config.Storage.RedisAddr,
			Password: r.Config.Storage.RedisPassword,
			DB:       r.Config.Storage.RedisDB,
		})
	}
	if err := r.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", r.Config.Storage.RedisAddr, err)
	}
	r.Logger.Info("RedisStore initialized successfully (Addr: %s)", r.Config.Storage.RedisAddr)
	return nil
}

// -----------------------------------------------------------------------------

func redisKey(table, id string) string {
	return redisKeyPrefix + table + ":" + id
}

// -----------------------------------------------------------------------------

func (r *RedisStore) Get(ctx context.Context, table, id string) ([]byte, bool, error) {
	if !utils.IsKnownTable(table) {
		return nil, false, fmt.Errorf("unknown table %q", table)
	}

	data, err := r.Client.Get(ctx, redisKey(table, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// -----------------------------------------------------------------------------

func (r *RedisStore) Upsert(ctx context.Context, table, id string, payload []byte, expiration *time.Time) error {
	if !utils.IsKnownTable(table) {
		return fmt.Errorf("unknown table %q", table)
	}

	key := redisKey(table, id)
	if expiration == nil {
		return r.Client.Set(ctx, key, payload, 0).Err()
	}

	ttl := time.Until(*expiration)
	if ttl <= 0 {
		// Already expired: the entry must not be visible
		return r.Client.Del(ctx, key).Err()
	}
	return r.Client.Set(ctx, key, payload, ttl).Err()
}

// -----------------------------------------------------------------------------

func (r *RedisStore) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}
