package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilsi/trading-recommendations-app/internal/config"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newPolygonTestProvider(t *testing.T, handler http.HandlerFunc) *PolygonProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewPolygonProvider(&config.PolygonConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: "2s",
	}, testLogger())
}

const polygonSnapshotBody = `{
	"status": "OK",
	"count": 3,
	"tickers": [
		{
			"ticker": "AAPL",
			"day": {"o": 185.0, "h": 190.2, "l": 184.8, "c": 189.50, "v": 52000000},
			"prevDay": {"o": 183.0, "h": 186.0, "l": 182.5, "c": 184.88, "v": 48000000}
		},
		{
			"ticker": "HALTED",
			"day": {"o": 0, "h": 0, "l": 0, "c": 0, "v": 0},
			"prevDay": {"o": 10, "h": 11, "l": 9, "c": 10, "v": 1000}
		},
		{
			"ticker": "NOPREV",
			"day": {"o": 5, "h": 6, "l": 4.5, "c": 5.5, "v": 100000}
		}
	]
}`

func TestPolygonFetchUniverse(t *testing.T) {
	var gotPath, gotKey string
	provider := newPolygonTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("apiKey")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(polygonSnapshotBody))
	})

	snapshots, err := provider.FetchUniverse(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/v2/snapshot/locale/us/markets/stocks/tickers", gotPath)
	assert.Equal(t, "test-key", gotKey)

	// Halted and prev-day-less rows are dropped during normalization.
	require.Len(t, snapshots, 1)
	snap := snapshots[0]
	assert.Equal(t, "AAPL", snap.Symbol)
	assert.Equal(t, "189.5", snap.Price.String())
	assert.Equal(t, int64(52_000_000), snap.Volume)
	assert.Equal(t, "polygon", snap.Provider)

	changePct, _ := snap.ChangePercent.Float64()
	assert.InDelta(t, 2.4989, changePct, 0.001)
}

func TestPolygonFetchQuotesSetsTickersParam(t *testing.T) {
	var gotTickers string
	provider := newPolygonTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotTickers = r.URL.Query().Get("tickers")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(polygonSnapshotBody))
	})

	_, err := provider.FetchQuotes(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	assert.Equal(t, "AAPL,MSFT", gotTickers)
}

func TestPolygonFetchQuotesEmptySymbols(t *testing.T) {
	provider := newPolygonTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty symbol list")
	})

	snapshots, err := provider.FetchQuotes(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, snapshots)
}

func TestPolygonFetchHistory(t *testing.T) {
	body := `{
		"status": "OK",
		"ticker": "AAPL",
		"results": [
			{"t": 1767312000000, "o": 100, "h": 102, "l": 99, "c": 101, "v": 1000000},
			{"t": 1767398400000, "o": 101, "h": 104, "l": 100, "c": 0, "v": 900000},
			{"t": 1767484800000, "o": 101, "h": 105, "l": 101, "c": 103, "v": 1100000}
		]
	}`
	var gotPath string
	provider := newPolygonTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})

	bars, err := provider.FetchHistory(context.Background(), "aapl", 60)
	require.NoError(t, err)

	assert.Contains(t, gotPath, "/v2/aggs/ticker/AAPL/range/1/day/")

	// The zero-close bar is dropped, the rest stay oldest first.
	require.Len(t, bars, 2)
	assert.Equal(t, "101", bars[0].Close.String())
	assert.Equal(t, "103", bars[1].Close.String())
	assert.True(t, bars[0].Date.Before(bars[1].Date))
}

func TestPolygonFetchHistoryTrimsToRequestedDays(t *testing.T) {
	body := `{
		"status": "OK",
		"ticker": "AAPL",
		"results": [
			{"t": 1767312000000, "o": 1, "h": 1, "l": 1, "c": 1, "v": 1},
			{"t": 1767398400000, "o": 2, "h": 2, "l": 2, "c": 2, "v": 2},
			{"t": 1767484800000, "o": 3, "h": 3, "l": 3, "c": 3, "v": 3}
		]
	}`
	provider := newPolygonTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})

	bars, err := provider.FetchHistory(context.Background(), "AAPL", 2)
	require.NoError(t, err)

	require.Len(t, bars, 2)
	assert.Equal(t, "2", bars[0].Close.String())
	assert.Equal(t, "3", bars[1].Close.String())
}

func TestPolygonErrorResponses(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantSubstr string
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{}`, wantSubstr: "rate limited"},
		{name: "forbidden with message", status: http.StatusForbidden, body: `{"status":"ERROR","error":"unknown api key"}`, wantSubstr: "unknown api key"},
		{name: "server error", status: http.StatusInternalServerError, body: `boom`, wantSubstr: "polygon error (500)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newPolygonTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := provider.FetchUniverse(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantSubstr)
		})
	}
}
