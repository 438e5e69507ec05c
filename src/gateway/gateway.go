package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"market-gateway/src/helpers"
	"market-gateway/src/interfaces"
	"market-gateway/src/logger"
	"market-gateway/src/models"
	"market-gateway/src/utils"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// Public messages. Causes are logged, never returned to callers.
const (
	MsgInvalidSymbolOrKey = "Invalid symbol or API key"
	MsgInvalidKey         = "Invalid API key"
	MsgUnauthorized       = "Unauthorized API key"
	MsgStockNotFound      = "Stock data not found"
	MsgOptionNotFound     = "Option not found"
)

// Gateway serves instrument snapshots cache-aside over the document store and
// option contracts straight from the provider.
type Gateway struct {
	Store    interfaces.IDocumentStore
	Auth     interfaces.IAuthorizer
	Provider interfaces.IMarketDataProvider
	Logger   *logger.Logger
	Errors   *helpers.ErrorHandler

	dedupe          bool
	inflight        singleflight.Group
	providerTimeout time.Duration
}

// -----------------------------------------------------------------------------

func NewGateway(
	cfg *models.MConfig,
	store interfaces.IDocumentStore,
	authorizer interfaces.IAuthorizer,
	provider interfaces.IMarketDataProvider,
	log *logger.Logger,
) *Gateway {
	return &Gateway{
		Store:           store,
		Auth:            authorizer,
		Provider:        provider,
		Logger:          log,
		Errors:          helpers.NewErrorHandler(log),
		dedupe:          cfg.Gateway.DedupeInflight,
		providerTimeout: time.Duration(cfg.DataSource.ProviderTimeoutSeconds) * time.Second,
	}
}

// -----------------------------------------------------------------------------

// GetInstrument returns the snapshot JSON for symbol. A hit returns the stored bytes
// unchanged; a miss returns exactly the bytes that were written back.
func (g *Gateway) GetInstrument(ctx context.Context, symbol, credential string) ([]byte, error) {
	if !utils.IsValidInstrumentSymbol(symbol) || credential == "" {
		return nil, helpers.NewBadRequest(MsgInvalidSymbolOrKey)
	}

	if err := g.authorize(ctx, credential); err != nil {
		return nil, err
	}

	key := strings.ToUpper(symbol)

	cached, found, err := g.Store.Get(ctx, utils.TableStocks, key)
	if err != nil {
		storeErr := helpers.NewStoreUnavailable("read "+utils.TableStocks, err)
		g.Errors.Handle(storeErr, "instrument "+key)
		return nil, helpers.NewNotFound(MsgStockNotFound, storeErr)
	}
	if found {
		g.Logger.Debug("Cache hit for %s", key)
		return cached, nil
	}

	g.Logger.Debug("Cache miss for %s", key)

	if !g.dedupe {
		return g.fetchAndStore(ctx, key, credential)
	}

	// Waiters share the leader's result; the credential is part of the key because
	// Provider A forwards it upstream. The shared fetch is detached from the leader's
	// cancellation and bounded by the provider timeout only.
	v, err, shared := g.inflight.Do(key+"\x00"+credential, func() (interface{}, error) {
		return g.fetchAndStore(context.WithoutCancel(ctx), key, credential)
	})
	if shared {
		g.Logger.Debug("Shared in-flight fetch for %s", key)
	}
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// -----------------------------------------------------------------------------

func (g *Gateway) fetchAndStore(ctx context.Context, key, credential string) ([]byte, error) {
	pctx, cancel := g.providerContext(ctx)
	defer cancel()

	snapshot, err := g.Provider.FetchInstrumentSnapshot(pctx, key, credential)
	if err != nil {
		g.Errors.Handle(err, fmt.Sprintf("instrument %s via %s", key, g.Provider.Name()))
		return nil, helpers.NewNotFound(MsgStockNotFound, err)
	}
	if snapshot == nil {
		return nil, helpers.NewNotFound(MsgStockNotFound, helpers.ErrNoData)
	}
	if snapshot.Dividends == nil {
		snapshot.Dividends = []models.MDividend{}
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot for %s: %w", key, err)
	}

	// Entries written here never expire
	if err := g.Store.Upsert(ctx, utils.TableStocks, key, payload, nil); err != nil {
		g.Errors.Handle(helpers.NewStoreUnavailable("write "+utils.TableStocks, err), "instrument "+key)
	} else {
		g.Logger.Info("Cached snapshot for %s", key)
	}

	return payload, nil
}

// -----------------------------------------------------------------------------

// GetOption looks the contract up on every call; option contracts are never cached.
// Ticker shape is left to the provider, which rejects unparseable tickers before any request.
func (g *Gateway) GetOption(ctx context.Context, optionTicker, credential string) (*models.MOptionContract, error) {
	if credential == "" {
		return nil, helpers.NewBadRequest(MsgInvalidKey)
	}

	if err := g.authorize(ctx, credential); err != nil {
		return nil, err
	}

	pctx, cancel := g.providerContext(ctx)
	defer cancel()

	contract, err := g.Provider.FetchOptionContract(pctx, optionTicker)
	if err != nil {
		g.Errors.Handle(err, fmt.Sprintf("option %s via %s", optionTicker, g.Provider.Name()))
		return nil, helpers.NewNotFound(MsgOptionNotFound, err)
	}
	if contract == nil {
		return nil, helpers.NewNotFound(MsgOptionNotFound, helpers.ErrNoData)
	}
	return contract, nil
}

// -----------------------------------------------------------------------------

// authorize fails closed: a store error is reported as Unauthorized.
func (g *Gateway) authorize(ctx context.Context, credential string) error {
	ok, err := g.Auth.IsAuthorized(ctx, credential)
	if err != nil {
		g.Errors.Handle(err, "authorization")
		return helpers.NewUnauthorized(MsgUnauthorized, err)
	}
	if !ok {
		return helpers.NewUnauthorized(MsgUnauthorized, nil)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (g *Gateway) providerContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.providerTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.providerTimeout)
}
