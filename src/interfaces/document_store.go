package interfaces

import (
	"context"
	"time"
)

// -----------------------------------------------------------------------------
// IDocumentStore defines the contract for key/value document persistence.
// -----------------------------------------------------------------------------

type IDocumentStore interface {

	// -----------------------------------------------------------------------------

	// Initialize prepares the backend (connection, schema).
	Initialize(ctx context.Context) error

	// -----------------------------------------------------------------------------

	// Get returns the payload stored under (table, id).
	// found is false when the entry is absent or expired.
	Get(ctx context.Context, table, id string) (payload []byte, found bool, err error)

	// -----------------------------------------------------------------------------

	// Upsert inserts or overwrites (table, id). A nil expiration never expires.
	Upsert(ctx context.Context, table, id string, payload []byte, expiration *time.Time) error

	// -----------------------------------------------------------------------------

	// Close the store connection
	Close() error
}
