package interfaces

import (
	"context"
	"market-gateway/src/models"
)

// -----------------------------------------------------------------------------
// IMarketDataProvider normalizes one upstream market-data source.
// -----------------------------------------------------------------------------

type IMarketDataProvider interface {

	// Name returns the unique identifier of the provider
	Name() string

	// -----------------------------------------------------------------------------

	// FetchInstrumentSnapshot retrieves price, profile and trailing-year dividends.
	// Returns helpers.ErrNoData when the upstream has nothing usable for the symbol.
	FetchInstrumentSnapshot(ctx context.Context, symbol, credential string) (*models.MInstrumentSnapshot, error)

	// -----------------------------------------------------------------------------

	// FetchOptionContract looks up a single contract by its compact ticker.
	// Returns helpers.ErrInvalidTicker, helpers.ErrNoData or helpers.ErrUnsupported when there is no contract.
	FetchOptionContract(ctx context.Context, optionTicker string) (*models.MOptionContract, error)
}
