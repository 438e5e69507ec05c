package yahoo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"market-gateway/src/helpers"
	"market-gateway/src/logger"
	"market-gateway/src/models"
	"market-gateway/src/network"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, time.October, 18, 12, 0, 0, 0, time.UTC)

type fakeYahoo struct {
	mu         sync.Mutex
	issued     int
	validCrumb string
	hits       map[string]int
	query      map[string]string

	quoteBody   string
	chartBody   string
	chartStatus int
	optionsBody string
}

func newFakeYahoo() *fakeYahoo {
	return &fakeYahoo{hits: map[string]int{}, query: map[string]string{}}
}

func (f *fakeYahoo) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	f.hits[path]++
	for k, v := range r.URL.Query() {
		f.query[k] = v[0]
	}

	switch {
	case path == "/session":
		http.SetCookie(w, &http.Cookie{Name: "A3", Value: "session", Path: "/"})
		w.WriteHeader(http.StatusNotFound)
	case path == "/v1/test/getcrumb":
		f.issued++
		f.validCrumb = fmt.Sprintf("crumb-%d", f.issued)
		fmt.Fprint(w, f.validCrumb)
	case strings.HasPrefix(path, "/v7/finance/quote"):
		if r.URL.Query().Get("crumb") != f.validCrumb {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, f.quoteBody)
	case strings.HasPrefix(path, "/v8/finance/chart/"):
		if f.chartStatus != 0 {
			w.WriteHeader(f.chartStatus)
			return
		}
		fmt.Fprint(w, f.chartBody)
	case strings.HasPrefix(path, "/v7/finance/options/"):
		if r.URL.Query().Get("crumb") != f.validCrumb {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		fmt.Fprint(w, f.optionsBody)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeYahoo) hitCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func newSource(t *testing.T, f *fakeYahoo) *YahooFinanceSource {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	cfg := &models.MConfig{
		Network: models.MNetworkConfig{RequestTimeout: 5},
		DataSource: models.MDataSourceConfig{
			Yahoo: models.MYahooConfig{
				BaseURL:      srv.URL,
				QuoteBaseURL: srv.URL,
				SessionURL:   srv.URL + "/session",
			},
		},
	}
	log := logger.NewLoggerTo(io.Discard, "YahooFinanceSource")
	s := NewYahooFinanceSource(cfg, network.NewRestyNetworkManager(cfg, log), log)
	s.now = func() time.Time { return fixedNow }
	return s
}

func unix(y int, m time.Month, d int) int64 {
	return time.Date(y, m, d, 13, 30, 0, 0, time.UTC).Unix()
}

func instrumentFixture() *fakeYahoo {
	f := newFakeYahoo()
	f.quoteBody = `{"quoteResponse":{"result":[{"symbol":"SPY","regularMarketPrice":601.23,"netExpenseRatio":0.0945}],"error":null}}`
	f.chartBody = fmt.Sprintf(`{"chart":{"result":[{"meta":{"symbol":"SPY"},"events":{"dividends":{
		"%[1]d":{"amount":1.759,"date":%[1]d},
		"%[2]d":{"amount":1.8,"date":%[2]d},
		"%[3]d":{"amount":1.9,"date":%[3]d}
	}}}],"error":null}}`,
		unix(2025, time.June, 20), unix(2025, time.September, 19), unix(2024, time.December, 20))
	return f
}

func TestFetchInstrumentSnapshot(t *testing.T) {
	f := instrumentFixture()
	s := newSource(t, f)

	snap, err := s.FetchInstrumentSnapshot(context.Background(), "SPY", "ignored")
	require.NoError(t, err)

	assert.Equal(t, "601.23", snap.Price)
	assert.Equal(t, "0.000945", snap.Profile.NetExpenseRatio)
	assert.Equal(t, []models.MDividend{
		{Amount: "1.8", ExDividendDate: "2025-09-19"},
		{Amount: "1.759", ExDividendDate: "2025-06-20"},
		{Amount: "1.9", ExDividendDate: "2024-12-20"},
	}, snap.Dividends)

	assert.Equal(t, fmt.Sprint(fixedNow.AddDate(-1, 0, 0).Unix()), f.query["period1"])
	assert.Equal(t, fmt.Sprint(fixedNow.Unix()), f.query["period2"])
	assert.Equal(t, "div", f.query["events"])
	assert.Equal(t, 1, f.hitCount("/session"))
	assert.Equal(t, 1, f.hitCount("/v1/test/getcrumb"))
}

func TestFetchInstrumentSnapshotEquityHasZeroExpenseRatio(t *testing.T) {
	f := instrumentFixture()
	f.quoteBody = `{"quoteResponse":{"result":[{"symbol":"AAPL","regularMarketPrice":230.5}]}}`
	f.chartBody = `{"chart":{"result":[{"meta":{"symbol":"AAPL"}}],"error":null}}`
	s := newSource(t, f)

	snap, err := s.FetchInstrumentSnapshot(context.Background(), "AAPL", "")
	require.NoError(t, err)
	assert.Equal(t, "230.5", snap.Price)
	assert.Equal(t, "0", snap.Profile.NetExpenseRatio)
	assert.Empty(t, snap.Dividends)
}

func TestFetchInstrumentSnapshotNoData(t *testing.T) {
	t.Run("empty quote result", func(t *testing.T) {
		f := instrumentFixture()
		f.quoteBody = `{"quoteResponse":{"result":[],"error":null}}`
		s := newSource(t, f)

		_, err := s.FetchInstrumentSnapshot(context.Background(), "ZZZZZ", "")
		assert.True(t, helpers.IsNoData(err))
	})

	t.Run("unknown chart symbol", func(t *testing.T) {
		f := instrumentFixture()
		f.chartStatus = http.StatusNotFound
		s := newSource(t, f)

		_, err := s.FetchInstrumentSnapshot(context.Background(), "ZZZZZ", "")
		assert.True(t, helpers.IsNoData(err))
	})

	t.Run("chart outage", func(t *testing.T) {
		f := instrumentFixture()
		f.chartStatus = http.StatusInternalServerError
		s := newSource(t, f)

		_, err := s.FetchInstrumentSnapshot(context.Background(), "SPY", "")
		assert.Equal(t, helpers.KindUpstreamUnavailable, helpers.KindOf(err))
	})
}

func TestSessionRefreshOnAuthFailure(t *testing.T) {
	f := instrumentFixture()
	s := newSource(t, f)
	ctx := context.Background()

	_, err := s.FetchInstrumentSnapshot(ctx, "SPY", "")
	require.NoError(t, err)

	f.mu.Lock()
	f.validCrumb = "rotated-upstream"
	f.mu.Unlock()

	_, err = s.FetchInstrumentSnapshot(ctx, "SPY", "")
	require.NoError(t, err)
	assert.Equal(t, 2, f.hitCount("/v1/test/getcrumb"))
}

func optionsFixture() *fakeYahoo {
	f := newFakeYahoo()
	f.optionsBody = `{"optionChain":{"result":[{"underlyingSymbol":"AAPL","options":[{
		"expirationDate":1750464000,
		"calls":[
			{"contractSymbol":"AAPL250621C00145000","strike":145,"lastPrice":15.1},
			{"contractSymbol":"AAPL250621C00150000","strike":150,"lastPrice":12.35}
		],
		"puts":[
			{"contractSymbol":"AAPL250621P00150000","strike":150,"lastPrice":2.4}
		]
	}]}],"error":null}}`
	return f
}

func TestFetchOptionContract(t *testing.T) {
	t.Run("call", func(t *testing.T) {
		f := optionsFixture()
		s := newSource(t, f)

		c, err := s.FetchOptionContract(context.Background(), "AAPL250621C00150000")
		require.NoError(t, err)
		assert.Equal(t, &models.MOptionContract{
			ExpirationDate: "2025-06-21",
			LastPrice:      "12.35",
			StrikePrice:    "150",
			Type:           models.OptionTypeCall,
		}, c)

		expected := time.Date(2025, time.June, 21, 0, 0, 0, 0, time.UTC).Unix()
		assert.Equal(t, fmt.Sprint(expected), f.query["date"])
		assert.Equal(t, 1, f.hitCount("/v7/finance/options/AAPL"))
	})

	t.Run("put", func(t *testing.T) {
		f := optionsFixture()
		s := newSource(t, f)

		c, err := s.FetchOptionContract(context.Background(), "AAPL250621P00150000")
		require.NoError(t, err)
		assert.Equal(t, models.OptionTypePut, c.Type)
		assert.Equal(t, "2.4", c.LastPrice)
	})

	t.Run("put whose symbol contains C", func(t *testing.T) {
		f := newFakeYahoo()
		f.optionsBody = `{"optionChain":{"result":[{"underlyingSymbol":"CAT","options":[{
			"calls":[],
			"puts":[{"contractSymbol":"CAT250621P00300000","strike":300,"lastPrice":4.2}]
		}]}]}}`
		s := newSource(t, f)

		c, err := s.FetchOptionContract(context.Background(), "CAT250621P00300000")
		require.NoError(t, err)
		assert.Equal(t, models.OptionTypePut, c.Type)
	})

	t.Run("no matching contract", func(t *testing.T) {
		f := optionsFixture()
		s := newSource(t, f)

		c, err := s.FetchOptionContract(context.Background(), "AAPL250621C00999000")
		assert.Nil(t, c)
		assert.ErrorIs(t, err, helpers.ErrNoData)
	})

	t.Run("unparseable ticker makes no request", func(t *testing.T) {
		f := optionsFixture()
		s := newSource(t, f)

		c, err := s.FetchOptionContract(context.Background(), "not-a-valid-ticker")
		assert.Nil(t, c)
		assert.ErrorIs(t, err, helpers.ErrInvalidTicker)

		f.mu.Lock()
		defer f.mu.Unlock()
		assert.Empty(t, f.hits)
	})

	t.Run("session refresh on forbidden", func(t *testing.T) {
		f := optionsFixture()
		s := newSource(t, f)
		s.crumb = "stale"

		c, err := s.FetchOptionContract(context.Background(), "AAPL250621C00150000")
		require.NoError(t, err)
		assert.Equal(t, "12.35", c.LastPrice)
		assert.Equal(t, 1, f.hitCount("/v1/test/getcrumb"))
	})
}
