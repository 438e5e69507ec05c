package alphavantage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
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

const (
	dividendsBody = `{"symbol":"SPY","data":[
		{"ex_dividend_date":"2025-09-19","amount":"1.8"},
		{"ex_dividend_date":"2025-06-20","amount":"1.7600"},
		{"ex_dividend_date":"2024-12-20","amount":"1.9"},
		{"ex_dividend_date":"2024-06-21","amount":"1.7"}
	]}`
	profileBody = `{"net_assets":"600000000000","net_expense_ratio":"0.000945","portfolio_turnover":"0.03"}`
	quoteBody   = `{"Global Quote":{"01. symbol":"SPY","05. price":"601.2300","07. latest trading day":"2025-10-17"}}`
)

type fakeUpstream struct {
	mu        sync.Mutex
	apiKeys   []string
	functions []string
	bodies    map[string]string
	status    map[string]int
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fn := r.URL.Query().Get("function")
	f.mu.Lock()
	f.apiKeys = append(f.apiKeys, r.URL.Query().Get("apikey"))
	f.functions = append(f.functions, fn)
	f.mu.Unlock()

	if code, ok := f.status[fn]; ok {
		w.WriteHeader(code)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, f.bodies[fn])
}

func newSource(t *testing.T, up *fakeUpstream) *AlphaVantageSource {
	t.Helper()
	srv := httptest.NewServer(up)
	t.Cleanup(srv.Close)

	cfg := &models.MConfig{
		Network: models.MNetworkConfig{RequestTimeout: 5},
		DataSource: models.MDataSourceConfig{
			AlphaVantage: models.MAlphaVantageConfig{BaseURL: srv.URL + "/query", APIKey: "server-key"},
		},
	}
	log := logger.NewLoggerTo(io.Discard, "AlphaVantage")
	s := NewAlphaVantageSource(cfg, network.NewRestyNetworkManager(cfg, log), log)
	s.now = func() time.Time { return time.Date(2025, time.October, 18, 12, 0, 0, 0, time.UTC) }
	return s
}

func happyUpstream() *fakeUpstream {
	return &fakeUpstream{bodies: map[string]string{
		"DIVIDENDS":    dividendsBody,
		"ETF_PROFILE":  profileBody,
		"GLOBAL_QUOTE": quoteBody,
	}}
}

func TestFetchInstrumentSnapshot(t *testing.T) {
	up := happyUpstream()
	s := newSource(t, up)

	snap, err := s.FetchInstrumentSnapshot(context.Background(), "SPY", "caller-key")
	require.NoError(t, err)

	assert.Equal(t, "601.23", snap.Price)
	assert.Equal(t, "0.000945", snap.Profile.NetExpenseRatio)
	assert.Equal(t, []models.MDividend{
		{Amount: "1.8", ExDividendDate: "2025-09-19"},
		{Amount: "1.76", ExDividendDate: "2025-06-20"},
		{Amount: "1.9", ExDividendDate: "2024-12-20"},
	}, snap.Dividends)

	assert.ElementsMatch(t, []string{"DIVIDENDS", "ETF_PROFILE", "GLOBAL_QUOTE"}, up.functions)
	for _, k := range up.apiKeys {
		assert.Equal(t, "caller-key", k)
	}
}

func TestFetchInstrumentSnapshotUsesConfiguredKey(t *testing.T) {
	up := happyUpstream()
	s := newSource(t, up)

	_, err := s.FetchInstrumentSnapshot(context.Background(), "SPY", "")
	require.NoError(t, err)
	for _, k := range up.apiKeys {
		assert.Equal(t, "server-key", k)
	}
}

func TestFetchInstrumentSnapshotEquityProfile(t *testing.T) {
	for name, body := range map[string]string{
		"empty profile": `{}`,
		"none ratio":    `{"net_assets":"1","net_expense_ratio":"None"}`,
	} {
		t.Run(name, func(t *testing.T) {
			up := happyUpstream()
			up.bodies["ETF_PROFILE"] = body
			s := newSource(t, up)

			snap, err := s.FetchInstrumentSnapshot(context.Background(), "AAPL", "k")
			require.NoError(t, err)
			assert.Equal(t, "0", snap.Profile.NetExpenseRatio)
			assert.Equal(t, "601.23", snap.Price)
		})
	}
}

func TestFetchInstrumentSnapshotFailures(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(up *fakeUpstream)
		wantKind helpers.ErrorKind
		noData   bool
	}{
		{
			name:     "unknown symbol",
			mutate:   func(up *fakeUpstream) { up.bodies["DIVIDENDS"] = `{"Error Message":"Invalid API call."}` },
			wantKind: helpers.KindNotFound,
			noData:   true,
		},
		{
			name:     "unparseable expense ratio",
			mutate:   func(up *fakeUpstream) { up.bodies["ETF_PROFILE"] = `{"net_expense_ratio":"n/a"}` },
			wantKind: helpers.KindNotFound,
			noData:   true,
		},
		{
			name:     "quote without price",
			mutate:   func(up *fakeUpstream) { up.bodies["GLOBAL_QUOTE"] = `{"Global Quote":{}}` },
			wantKind: helpers.KindNotFound,
			noData:   true,
		},
		{
			name:     "dividends missing data",
			mutate:   func(up *fakeUpstream) { up.bodies["DIVIDENDS"] = `{"symbol":"SPY"}` },
			wantKind: helpers.KindNotFound,
			noData:   true,
		},
		{
			name:     "throttled",
			mutate:   func(up *fakeUpstream) { up.bodies["ETF_PROFILE"] = `{"Note":"Thank you for using Alpha Vantage!"}` },
			wantKind: helpers.KindUpstreamUnavailable,
		},
		{
			name:     "server error",
			mutate:   func(up *fakeUpstream) { up.status = map[string]int{"GLOBAL_QUOTE": http.StatusBadGateway} },
			wantKind: helpers.KindUpstreamUnavailable,
		},
		{
			name:     "malformed body",
			mutate:   func(up *fakeUpstream) { up.bodies["DIVIDENDS"] = `not json` },
			wantKind: helpers.KindUpstreamUnavailable,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			up := happyUpstream()
			tc.mutate(up)
			s := newSource(t, up)

			snap, err := s.FetchInstrumentSnapshot(context.Background(), "SPY", "k")
			assert.Nil(t, snap)
			require.Error(t, err)
			assert.Equal(t, tc.wantKind, helpers.KindOf(err))
			assert.Equal(t, tc.noData, helpers.IsNoData(err))
		})
	}
}

func TestFetchOptionContractUnsupported(t *testing.T) {
	up := happyUpstream()
	s := newSource(t, up)

	c, err := s.FetchOptionContract(context.Background(), "AAPL250621C00150000")
	assert.Nil(t, c)
	assert.ErrorIs(t, err, helpers.ErrUnsupported)
	assert.Empty(t, up.functions)
}
