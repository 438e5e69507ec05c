package main

import (
	"context"
	"fmt"
	"market-gateway/src/auth"
	"market-gateway/src/config"
	datasource "market-gateway/src/data_source"
	"market-gateway/src/gateway"
	"market-gateway/src/interfaces"
	"market-gateway/src/logger"
	"market-gateway/src/models"
	"market-gateway/src/network"
	"market-gateway/src/storage"
)

// -----------------------------------------------------------------------------

// loadConfig reads the config file and points the process logger at it.
func loadConfig(path string) (*config.Config, *logger.Logger, error) {
	cfg, err := config.NewConfig(path)
	if err != nil {
		return nil, nil, err
	}
	if err := logger.Init(cfg.MConfig); err != nil {
		return nil, nil, fmt.Errorf("failed to init logger: %w", err)
	}
	return cfg, logger.NewLogger(cfg.Name), nil
}

// -----------------------------------------------------------------------------

// setupStore opens the configured document store and creates its tables
func setupStore(ctx context.Context, cfg *models.MConfig, appLogger *logger.Logger) (interfaces.IDocumentStore, error) {
	store := storage.NewDocumentStore(cfg, appLogger)
	if err := store.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize %s store: %w", cfg.Storage.DBType, err)
	}
	return store, nil
}

// -----------------------------------------------------------------------------

// setupNetwork initializes the network manager
func setupNetwork(cfg *models.MConfig) interfaces.INetworkManager {
	return network.NewRestyNetworkManager(cfg, logger.NewLogger("NetworkManager"))
}

// -----------------------------------------------------------------------------

// setupProvider resolves data_source.provider to a provider adapter
func setupProvider(cfg *models.MConfig) (interfaces.IMarketDataProvider, error) {
	selector := datasource.NewProviderSelector(logger.NewLogger("ProviderSelector"))
	return selector.Select(cfg, setupNetwork(cfg))
}

// -----------------------------------------------------------------------------

// setupGateway wires store, key gate and provider into the cache-aside gateway
func setupGateway(cfg *models.MConfig, store interfaces.IDocumentStore, provider interfaces.IMarketDataProvider) *gateway.Gateway {
	gate := auth.NewKeyGate(store, logger.NewLogger("KeyGate"))
	return gateway.NewGateway(cfg, store, gate, provider, logger.NewLogger("Gateway"))
}

// -----------------------------------------------------------------------------

// bootstrapKeys upserts the keys listed under auth.bootstrap_keys, without expiration
func bootstrapKeys(ctx context.Context, cfg *models.MConfig, store interfaces.IDocumentStore) error {
	if len(cfg.Auth.BootstrapKeys) == 0 {
		return nil
	}
	gate := auth.NewKeyGate(store, logger.NewLogger("KeyGate"))
	for _, key := range cfg.Auth.BootstrapKeys {
		if err := gate.AddKey(ctx, key, nil, "bootstrap"); err != nil {
			return err
		}
	}
	return nil
}
