package auth

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"market-gateway/src/helpers"
	"market-gateway/src/logger"
	"market-gateway/src/storage"
	"market-gateway/src/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	*storage.MemoryStore
	gets atomic.Int32
	fail error
}

func (c *countingStore) Get(ctx context.Context, table, id string) ([]byte, bool, error) {
	c.gets.Add(1)
	if c.fail != nil {
		return nil, false, c.fail
	}
	return c.MemoryStore.Get(ctx, table, id)
}

func newGate() (*KeyGate, *countingStore) {
	log := logger.NewLoggerTo(io.Discard, "KeyGate")
	store := &countingStore{MemoryStore: storage.NewMemoryStore(log)}
	return NewKeyGate(store, log), store
}

func TestIsAuthorized(t *testing.T) {
	ctx := context.Background()

	t.Run("empty key skips the store", func(t *testing.T) {
		gate, store := newGate()
		ok, err := gate.IsAuthorized(ctx, "")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, int32(0), store.gets.Load())
	})

	t.Run("unknown key", func(t *testing.T) {
		gate, _ := newGate()
		ok, err := gate.IsAuthorized(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("provisioned key", func(t *testing.T) {
		gate, _ := newGate()
		require.NoError(t, gate.AddKey(ctx, "k-123", nil, ""))
		ok, err := gate.IsAuthorized(ctx, "k-123")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("any payload authorizes", func(t *testing.T) {
		gate, store := newGate()
		require.NoError(t, store.Upsert(ctx, utils.TableAuthorizedKeys, "legacy", []byte(`"plain string"`), nil))
		ok, err := gate.IsAuthorized(ctx, "legacy")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("expired key", func(t *testing.T) {
		gate, _ := newGate()
		past := time.Now().Add(-time.Minute)
		require.NoError(t, gate.AddKey(ctx, "old", &past, ""))
		ok, err := gate.IsAuthorized(ctx, "old")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("store failure does not authorize", func(t *testing.T) {
		gate, store := newGate()
		store.fail = errors.New("connection reset")
		ok, err := gate.IsAuthorized(ctx, "k-123")
		assert.False(t, ok)
		assert.Equal(t, helpers.KindStoreUnavailable, helpers.KindOf(err))
	})
}

func TestAddKeyRejectsEmpty(t *testing.T) {
	gate, _ := newGate()
	err := gate.AddKey(context.Background(), "", nil, "")
	assert.Equal(t, helpers.KindBadRequest, helpers.KindOf(err))
}

func TestMask(t *testing.T) {
	assert.Equal(t, "****", Mask("abc"))
	assert.Equal(t, "abcd****", Mask("abcdef"))
}
