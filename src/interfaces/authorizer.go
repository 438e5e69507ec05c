package interfaces

import "context"

// IAuthorizer decides whether an opaque API key may use the gateway.
type IAuthorizer interface {
	IsAuthorized(ctx context.Context, key string) (bool, error)
}
