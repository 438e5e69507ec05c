package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"market-gateway/src/helpers"
	"market-gateway/src/interfaces"
	"market-gateway/src/logger"
	"market-gateway/src/models"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

const Name = "alpha_vantage"

var _ interfaces.IMarketDataProvider = (*AlphaVantageSource)(nil)

// AlphaVantageSource reads DIVIDENDS, ETF_PROFILE and GLOBAL_QUOTE and merges them
// into one snapshot. Option contracts are not offered by this upstream.
type AlphaVantageSource struct {
	Config  *models.MConfig
	Network interfaces.INetworkManager
	Logger  *logger.Logger
	now     func() time.Time
}

// -----------------------------------------------------------------------------

func NewAlphaVantageSource(cfg *models.MConfig, netMgr interfaces.INetworkManager, log *logger.Logger) *AlphaVantageSource {
	return &AlphaVantageSource{
		Config:  cfg,
		Network: netMgr,
		Logger:  log,
		now:     time.Now,
	}
}

// -----------------------------------------------------------------------------

func (s *AlphaVantageSource) Name() string {
	return Name
}

// -----------------------------------------------------------------------------

// Upstream payloads. Every numeric field arrives as a string.

type dividendsResponse struct {
	Symbol string `json:"symbol"`
	Data   []struct {
		ExDividendDate string `json:"ex_dividend_date"`
		Amount         string `json:"amount"`
	} `json:"data"`
}

type etfProfileResponse struct {
	NetExpenseRatio *string `json:"net_expense_ratio"`
}

type globalQuoteResponse struct {
	GlobalQuote struct {
		Price string `json:"05. price"`
	} `json:"Global Quote"`
}

// envelope captures the fields used to report errors and throttling with a 200 status.
type envelope struct {
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

// -----------------------------------------------------------------------------

// FetchInstrumentSnapshot forwards credential as the apikey, or the configured key when it is empty.
// The three upstream calls run concurrently and all of them must succeed.
func (s *AlphaVantageSource) FetchInstrumentSnapshot(ctx context.Context, symbol, credential string) (*models.MInstrumentSnapshot, error) {
	apiKey := credential
	if apiKey == "" {
		apiKey = s.Config.DataSource.AlphaVantage.APIKey
	}

	var (
		dividends []models.MDividend
		profile   models.MProfile
		price     string
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var resp dividendsResponse
		if err := s.query(gctx, "DIVIDENDS", symbol, apiKey, &resp); err != nil {
			return err
		}
		if resp.Data == nil {
			return fmt.Errorf("DIVIDENDS for %s: %w", symbol, helpers.ErrNoData)
		}
		dividends = s.trailingYear(symbol, resp)
		return nil
	})

	g.Go(func() error {
		var resp etfProfileResponse
		if err := s.query(gctx, "ETF_PROFILE", symbol, apiKey, &resp); err != nil {
			return err
		}
		// Equities answer with an empty profile
		if resp.NetExpenseRatio == nil || strings.TrimSpace(*resp.NetExpenseRatio) == "None" {
			profile.NetExpenseRatio = "0"
			return nil
		}
		ratio, err := helpers.DecimalTextFromString(*resp.NetExpenseRatio)
		if err != nil {
			return fmt.Errorf("ETF_PROFILE for %s: %v: %w", symbol, err, helpers.ErrNoData)
		}
		profile.NetExpenseRatio = ratio
		return nil
	})

	g.Go(func() error {
		var resp globalQuoteResponse
		if err := s.query(gctx, "GLOBAL_QUOTE", symbol, apiKey, &resp); err != nil {
			return err
		}
		p, err := helpers.DecimalTextFromString(resp.GlobalQuote.Price)
		if err != nil {
			return fmt.Errorf("GLOBAL_QUOTE for %s: %v: %w", symbol, err, helpers.ErrNoData)
		}
		price = p
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.MInstrumentSnapshot{
		Price:     price,
		Profile:   profile,
		Dividends: dividends,
	}, nil
}

// -----------------------------------------------------------------------------

// FetchOptionContract is not available from this upstream.
func (s *AlphaVantageSource) FetchOptionContract(ctx context.Context, optionTicker string) (*models.MOptionContract, error) {
	return nil, helpers.ErrUnsupported
}

// -----------------------------------------------------------------------------

func (s *AlphaVantageSource) query(ctx context.Context, function, symbol, apiKey string, out interface{}) error {
	params := map[string]string{
		"function": function,
		"symbol":   symbol,
		"apikey":   apiKey,
	}

	body, err := s.Network.Get(ctx, s.Config.DataSource.AlphaVantage.BaseURL, params)
	if err != nil {
		return helpers.NewUpstreamUnavailable(Name+" "+function, err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return helpers.NewUpstreamUnavailable(Name+" "+function, fmt.Errorf("decode: %w", err))
	}
	switch {
	case env.ErrorMessage != "":
		return fmt.Errorf("%s for %s: %s: %w", function, symbol, env.ErrorMessage, helpers.ErrNoData)
	case env.Note != "":
		return helpers.NewUpstreamUnavailable(Name+" "+function, fmt.Errorf("throttled: %s", env.Note))
	case env.Information != "":
		return helpers.NewUpstreamUnavailable(Name+" "+function, fmt.Errorf("rejected: %s", env.Information))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return helpers.NewUpstreamUnavailable(Name+" "+function, fmt.Errorf("decode: %w", err))
	}
	return nil
}

// -----------------------------------------------------------------------------

// trailingYear keeps upstream order (most recent first) and drops entries older than one year.
func (s *AlphaVantageSource) trailingYear(symbol string, resp dividendsResponse) []models.MDividend {
	cutoff := s.now().UTC().AddDate(-1, 0, 0).Truncate(24 * time.Hour)

	out := make([]models.MDividend, 0, len(resp.Data))
	for _, d := range resp.Data {
		exDate, err := time.Parse("2006-01-02", d.ExDividendDate)
		if err != nil {
			s.Logger.Debug("Skipping dividend for %s with ex date %q", symbol, d.ExDividendDate)
			continue
		}
		if exDate.Before(cutoff) {
			continue
		}
		amount, err := helpers.DecimalTextFromString(d.Amount)
		if err != nil {
			s.Logger.Debug("Skipping dividend for %s on %s: %v", symbol, d.ExDividendDate, err)
			continue
		}
		out = append(out, models.MDividend{
			Amount:         amount,
			ExDividendDate: d.ExDividendDate,
		})
	}
	return out
}
