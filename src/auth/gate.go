package auth

import (
	"context"
	"encoding/json"
	"market-gateway/src/helpers"
	"market-gateway/src/interfaces"
	"market-gateway/src/logger"
	"market-gateway/src/utils"
	"time"
)

var _ interfaces.IAuthorizer = (*KeyGate)(nil)

// KeyGate authorizes API keys against the authorized_keys table.
// A key is valid while a non-expired document exists for it; the payload is ignored.
type KeyGate struct {
	Store  interfaces.IDocumentStore
	Logger *logger.Logger
}

// KeyRecord is the document written for a provisioned key.
type KeyRecord struct {
	CreatedAt time.Time `json:"created_at"`
	Note      string    `json:"note,omitempty"`
}

// -----------------------------------------------------------------------------

func NewKeyGate(store interfaces.IDocumentStore, log *logger.Logger) *KeyGate {
	return &KeyGate{
		Store:  store,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

// IsAuthorized never touches the store for an empty key.
// A store failure is returned as an error and must be treated as "not authorized".
func (g *KeyGate) IsAuthorized(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}

	_, found, err := g.Store.Get(ctx, utils.TableAuthorizedKeys, key)
	if err != nil {
		return false, helpers.NewStoreUnavailable("read "+utils.TableAuthorizedKeys, err)
	}
	return found, nil
}

// -----------------------------------------------------------------------------

// AddKey provisions a key. A nil expiration never expires.
func (g *KeyGate) AddKey(ctx context.Context, key string, expiration *time.Time, note string) error {
	if key == "" {
		return helpers.NewBadRequest("Invalid API key")
	}

	payload, err := json.Marshal(KeyRecord{CreatedAt: time.Now().UTC(), Note: note})
	if err != nil {
		return err
	}

	if err := g.Store.Upsert(ctx, utils.TableAuthorizedKeys, key, payload, expiration); err != nil {
		return helpers.NewStoreUnavailable("write "+utils.TableAuthorizedKeys, err)
	}

	if expiration != nil {
		g.Logger.Info("Authorized key %s until %s", Mask(key), expiration.UTC().Format(time.RFC3339))
	} else {
		g.Logger.Info("Authorized key %s", Mask(key))
	}
	return nil
}

// -----------------------------------------------------------------------------

// Mask keeps the first four characters of a key for logs.
func Mask(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:4] + "****"
}
