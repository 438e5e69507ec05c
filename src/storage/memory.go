package storage

import (
	"context"
	"fmt"
	"market-gateway/src/interfaces"
	"market-gateway/src/logger"
	"market-gateway/src/utils"
	"time"

	"github.com/patrickmn/go-cache"
)

var _ interfaces.IDocumentStore = (*MemoryStore)(nil)

// MemoryStore is the in-process store used for development and tests.
type MemoryStore struct {
	cache  *cache.Cache
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewMemoryStore(log *logger.Logger) *MemoryStore {
	return &MemoryStore{
		cache:  cache.New(cache.NoExpiration, 10*time.Minute),
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

func (m *MemoryStore) Initialize(ctx context.Context) error {
	m.Logger.Info("MemoryStore initialized (contents are lost on exit)")
	return nil
}

// -----------------------------------------------------------------------------

func (m *MemoryStore) Get(ctx context.Context, table, id string) ([]byte, bool, error) {
	if !utils.IsKnownTable(table) {
		return nil, false, fmt.Errorf("unknown table %q", table)
	}

	v, found := m.cache.Get(table + ":" + id)
	if !found {
		return nil, false, nil
	}
	stored := v.([]byte)
	out := make([]byte, len(stored))
	copy(out, stored)
	return out, true, nil
}

// -----------------------------------------------------------------------------

func (m *MemoryStore) Upsert(ctx context.Context, table, id string, payload []byte, expiration *time.Time) error {
	if !utils.IsKnownTable(table) {
		return fmt.Errorf("unknown table %q", table)
	}

	key := table + ":" + id
	d := cache.NoExpiration
	if expiration != nil {
		d = time.Until(*expiration)
		if d <= 0 {
			m.cache.Delete(key)
			return nil
		}
	}

	stored := make([]byte, len(payload))
	copy(stored, payload)
	m.cache.Set(key, stored, d)
	return nil
}

// -----------------------------------------------------------------------------

func (m *MemoryStore) Close() error {
	m.cache.Flush()
	return nil
}
