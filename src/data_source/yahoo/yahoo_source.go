package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"market-gateway/src/helpers"
	"market-gateway/src/interfaces"
	"market-gateway/src/logger"
	"market-gateway/src/network"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"market-gateway/src/models"
	"market-gateway/src/utils"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const Name = "yahoo"

var _ interfaces.IMarketDataProvider = (*YahooFinanceSource)(nil)

type YahooFinanceSource struct {
	Config  *models.MConfig
	Network interfaces.INetworkManager
	Logger  *logger.Logger

	crumb   string
	crumbMu sync.RWMutex
	refresh singleflight.Group
	now     func() time.Time
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) Name() string {
	return Name
}

// -----------------------------------------------------------------------------

func NewYahooFinanceSource(cfg *models.MConfig, netMgr interfaces.INetworkManager, log *logger.Logger) *YahooFinanceSource {
	return &YahooFinanceSource{
		Config:  cfg,
		Network: netMgr,
		Logger:  log,
		now:     time.Now,
	}
}

// -----------------------------------------------------------------------------
// Session
// -----------------------------------------------------------------------------

// sessionCrumb returns the cached crumb, obtaining one on first use.
func (s *YahooFinanceSource) sessionCrumb(ctx context.Context) (string, error) {
	s.crumbMu.RLock()
	crumb := s.crumb
	s.crumbMu.RUnlock()
	if crumb != "" {
		return crumb, nil
	}
	return s.refreshCrumb(ctx, "")
}

// refreshCrumb replaces stale (or fills an empty crumb). Concurrent callers share one refresh.
func (s *YahooFinanceSource) refreshCrumb(ctx context.Context, stale string) (string, error) {
	v, err, _ := s.refresh.Do("crumb", func() (interface{}, error) {
		s.crumbMu.RLock()
		current := s.crumb
		s.crumbMu.RUnlock()
		if current != "" && current != stale {
			return current, nil
		}

		// The consent host answers 404 but sets the session cookie in the client's jar
		if _, err := s.Network.Get(ctx, s.Config.DataSource.Yahoo.SessionURL, nil); err != nil {
			var statusErr *network.StatusError
			if !errors.As(err, &statusErr) {
				return "", err
			}
		}

		body, err := s.Network.Get(ctx, s.Config.DataSource.Yahoo.QuoteBaseURL+"/v1/test/getcrumb", nil)
		if err != nil {
			return "", err
		}
		crumb := strings.TrimSpace(string(body))
		if crumb == "" || strings.HasPrefix(crumb, "{") {
			return "", fmt.Errorf("no crumb in session response")
		}

		s.crumbMu.Lock()
		s.crumb = crumb
		s.crumbMu.Unlock()
		s.Logger.Debug("Yahoo session refreshed")
		return crumb, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// -----------------------------------------------------------------------------

// getWithSession attaches the crumb and retries once with a fresh session on 401/403.
func (s *YahooFinanceSource) getWithSession(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	crumb, err := s.sessionCrumb(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	body, err := s.Network.Get(ctx, endpoint, withCrumb(params, crumb))
	var statusErr *network.StatusError
	if err == nil || !errors.As(err, &statusErr) || !statusErr.IsAuthFailure() {
		return body, err
	}

	s.Logger.Info("Yahoo rejected the session (%d), refreshing", statusErr.StatusCode)
	crumb, err = s.refreshCrumb(ctx, crumb)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	return s.Network.Get(ctx, endpoint, withCrumb(params, crumb))
}

func withCrumb(params map[string]string, crumb string) map[string]string {
	out := make(map[string]string, len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	out["crumb"] = crumb
	return out
}

// -----------------------------------------------------------------------------
// Instrument snapshot
// -----------------------------------------------------------------------------

type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol             string   `json:"symbol"`
			RegularMarketPrice *float64 `json:"regularMarketPrice"`
			NetExpenseRatio    *float64 `json:"netExpenseRatio"` // percent
		} `json:"result"`
	} `json:"quoteResponse"`
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Events struct {
				Dividends map[string]struct {
					Amount float64 `json:"amount"`
					Date   int64   `json:"date"`
				} `json:"dividends"`
			} `json:"events"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// -----------------------------------------------------------------------------

// FetchInstrumentSnapshot ignores credential; Yahoo access runs on the process session.
// Quote and dividend history are fetched concurrently over [now - 1 year, now].
func (s *YahooFinanceSource) FetchInstrumentSnapshot(ctx context.Context, symbol, _ string) (*models.MInstrumentSnapshot, error) {
	now := s.now().UTC()
	from := now.AddDate(-1, 0, 0)

	var (
		snapshot  models.MInstrumentSnapshot
		dividends []models.MDividend
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		body, err := s.getWithSession(gctx, s.Config.DataSource.Yahoo.QuoteBaseURL+"/v7/finance/quote", map[string]string{
			"symbols": symbol,
		})
		if err != nil {
			return helpers.NewUpstreamUnavailable(Name+" quote", err)
		}
		var resp quoteResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return helpers.NewUpstreamUnavailable(Name+" quote", fmt.Errorf("decode: %w", err))
		}
		if len(resp.QuoteResponse.Result) == 0 || resp.QuoteResponse.Result[0].RegularMarketPrice == nil {
			return fmt.Errorf("quote for %s: %w", symbol, helpers.ErrNoData)
		}
		q := resp.QuoteResponse.Result[0]
		snapshot.Price = helpers.DecimalTextFromFloat(*q.RegularMarketPrice)

		// Equities carry no expense ratio
		ratio := 0.0
		if q.NetExpenseRatio != nil {
			ratio = *q.NetExpenseRatio
		}
		snapshot.Profile.NetExpenseRatio = helpers.PercentToFractionText(ratio)
		return nil
	})

	g.Go(func() error {
		endpoint := s.Config.DataSource.Yahoo.BaseURL + "/v8/finance/chart/" + url.PathEscape(symbol)
		body, err := s.Network.Get(gctx, endpoint, map[string]string{
			"period1":  strconv.FormatInt(from.Unix(), 10),
			"period2":  strconv.FormatInt(now.Unix(), 10),
			"interval": "1d",
			"events":   "div",
		})
		if err != nil {
			var statusErr *network.StatusError
			if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
				return fmt.Errorf("chart for %s: %w", symbol, helpers.ErrNoData)
			}
			return helpers.NewUpstreamUnavailable(Name+" chart", err)
		}
		var resp chartResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return helpers.NewUpstreamUnavailable(Name+" chart", fmt.Errorf("decode: %w", err))
		}
		if resp.Chart.Error != nil || len(resp.Chart.Result) == 0 {
			return fmt.Errorf("chart for %s: %w", symbol, helpers.ErrNoData)
		}
		dividends = dividendsNewestFirst(resp, from, now)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	snapshot.Dividends = dividends
	return &snapshot, nil
}

// -----------------------------------------------------------------------------

func dividendsNewestFirst(resp chartResponse, from, to time.Time) []models.MDividend {
	type payment struct {
		date   int64
		amount float64
	}

	var payments []payment
	for _, d := range resp.Chart.Result[0].Events.Dividends {
		if d.Date < from.Unix() || d.Date > to.Unix() {
			continue
		}
		payments = append(payments, payment{date: d.Date, amount: d.Amount})
	}

	// Events arrive keyed by timestamp; order them like a dividend history listing
	sort.Slice(payments, func(i, j int) bool {
		return payments[i].date > payments[j].date
	})

	out := make([]models.MDividend, 0, len(payments))
	for _, p := range payments {
		out = append(out, models.MDividend{
			Amount:         helpers.DecimalTextFromFloat(p.amount),
			ExDividendDate: time.Unix(p.date, 0).UTC().Format("2006-01-02"),
		})
	}
	return out
}

// -----------------------------------------------------------------------------
// Option contract
// -----------------------------------------------------------------------------

type optionQuote struct {
	ContractSymbol string   `json:"contractSymbol"`
	Strike         *float64 `json:"strike"`
	LastPrice      *float64 `json:"lastPrice"`
}

type optionsResponse struct {
	OptionChain struct {
		Result []struct {
			UnderlyingSymbol string `json:"underlyingSymbol"`
			Options          []struct {
				ExpirationDate int64         `json:"expirationDate"`
				Calls          []optionQuote `json:"calls"`
				Puts           []optionQuote `json:"puts"`
			} `json:"options"`
		} `json:"result"`
	} `json:"optionChain"`
}

// -----------------------------------------------------------------------------

// FetchOptionContract loads the chain for the ticker's underlying and expiration and
// returns the entry whose contractSymbol equals the ticker exactly.
func (s *YahooFinanceSource) FetchOptionContract(ctx context.Context, optionTicker string) (*models.MOptionContract, error) {
	ticker, err := utils.ParseOptionTicker(optionTicker)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, helpers.ErrInvalidTicker)
	}

	endpoint := s.Config.DataSource.Yahoo.BaseURL + "/v7/finance/options/" + url.PathEscape(ticker.Underlying)
	body, err := s.getWithSession(ctx, endpoint, map[string]string{
		"date": strconv.FormatInt(ticker.Expiration.Unix(), 10),
	})
	if err != nil {
		var statusErr *network.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("options for %s: %w", ticker.Underlying, helpers.ErrNoData)
		}
		return nil, helpers.NewUpstreamUnavailable(Name+" options", err)
	}

	var resp optionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, helpers.NewUpstreamUnavailable(Name+" options", fmt.Errorf("decode: %w", err))
	}

	for _, result := range resp.OptionChain.Result {
		for _, chain := range result.Options {
			if q, ok := findContract(chain.Calls, optionTicker); ok {
				return s.toContract(ticker, q, models.OptionTypeCall)
			}
			if q, ok := findContract(chain.Puts, optionTicker); ok {
				return s.toContract(ticker, q, models.OptionTypePut)
			}
		}
	}

	return nil, fmt.Errorf("contract %s: %w", optionTicker, helpers.ErrNoData)
}

// -----------------------------------------------------------------------------

func findContract(list []optionQuote, symbol string) (optionQuote, bool) {
	for _, q := range list {
		if q.ContractSymbol == symbol {
			return q, true
		}
	}
	return optionQuote{}, false
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) toContract(ticker *models.MOptionTicker, q optionQuote, side models.OptionType) (*models.MOptionContract, error) {
	if q.Strike == nil || q.LastPrice == nil {
		return nil, fmt.Errorf("contract %s lacks strike or last price: %w", q.ContractSymbol, helpers.ErrNoData)
	}

	if guess := utils.ClassifyBySymbol(q.ContractSymbol); guess != side {
		s.Logger.Debug("Contract %s listed as %s but its symbol reads as %s", q.ContractSymbol, side, guess)
	}

	return &models.MOptionContract{
		ExpirationDate: ticker.Expiration.Format("2006-01-02"),
		LastPrice:      helpers.DecimalTextFromFloat(*q.LastPrice),
		StrikePrice:    helpers.DecimalTextFromFloat(*q.Strike),
		Type:           side,
	}, nil
}
