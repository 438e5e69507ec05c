package datasource

import (
	"fmt"
	"market-gateway/src/data_source/alphavantage"
	"market-gateway/src/data_source/yahoo"
	"market-gateway/src/interfaces"
	"market-gateway/src/logger"
	"market-gateway/src/models"
	"sort"
	"strings"
	"sync"
)

// Factory builds one provider variant from the process configuration.
type Factory func(cfg *models.MConfig, netMgr interfaces.INetworkManager) interfaces.IMarketDataProvider

// ProviderSelector holds the known provider variants and resolves the configured one.
// Selection happens once at startup; request handling only sees the chosen provider.
type ProviderSelector struct {
	factories map[string]Factory
	Logger    *logger.Logger
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

// NewProviderSelector registers the built-in yahoo and alpha_vantage variants.
func NewProviderSelector(log *logger.Logger) *ProviderSelector {
	s := &ProviderSelector{
		factories: make(map[string]Factory),
		Logger:    log,
	}

	builtins := map[string]Factory{
		yahoo.Name: func(cfg *models.MConfig, netMgr interfaces.INetworkManager) interfaces.IMarketDataProvider {
			return yahoo.NewYahooFinanceSource(cfg, netMgr, logger.NewLogger("YahooFinanceSource"))
		},
		alphavantage.Name: func(cfg *models.MConfig, netMgr interfaces.INetworkManager) interfaces.IMarketDataProvider {
			return alphavantage.NewAlphaVantageSource(cfg, netMgr, logger.NewLogger("AlphaVantageSource"))
		},
	}
	for name, factory := range builtins {
		if err := s.register(name, factory); err != nil {
			log.Error("Failed to register provider %s: %v", name, err)
		}
	}

	return s
}

// -----------------------------------------------------------------------------

// register adds a variant under name
func (s *ProviderSelector) register(name string, factory Factory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.ToLower(name)
	if _, exists := s.factories[name]; exists {
		return fmt.Errorf("provider %s already exists", name)
	}

	s.factories[name] = factory
	s.Logger.Debug("Registered provider: %s", name)
	return nil
}

// -----------------------------------------------------------------------------

// Names returns the registered provider names, sorted
func (s *ProviderSelector) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.factories))
	for name := range s.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// -----------------------------------------------------------------------------

// Select builds the provider named by data_source.provider.
func (s *ProviderSelector) Select(cfg *models.MConfig, netMgr interfaces.INetworkManager) (interfaces.IMarketDataProvider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.DataSource.Provider))

	s.mu.RLock()
	factory, exists := s.factories[name]
	s.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("provider %q not found (known: %s)", name, strings.Join(s.Names(), ", "))
	}

	provider := factory(cfg, netMgr)
	s.Logger.Info("Active market data provider: %s", provider.Name())
	return provider, nil
}
