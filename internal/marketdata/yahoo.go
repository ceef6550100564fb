package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/nikhilsi/trading-recommendations-app/internal/config"
	"github.com/nikhilsi/trading-recommendations-app/internal/models"
)

// defaultUniverse is the bounded symbol set the free feed can serve in a
// reasonable time: S&P 500 leaders plus momentum, high-volume and popular
// retail names. Full-market scans degrade to this subset when the primary
// provider is down.
var defaultUniverse = []string{
	// S&P 500 leaders
	"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "TSLA",
	"UNH", "XOM", "JPM", "JNJ", "V", "PG", "MA", "HD", "CVX", "MRK",
	"ABBV", "PEP", "COST", "AVGO", "KO", "WMT", "MCD", "CSCO", "CRM",
	"ACN", "LIN", "TMO",
	// Momentum names
	"AMD", "MELI", "NFLX", "NOW",
	// High volume / retail favorites
	"SPY", "QQQ", "BAC", "F", "GME", "AMC", "PLTR", "SOFI", "NIO", "RIVN",
}

// YahooProvider is the free fallback feed. It has no batched universe call,
// so quotes are fetched per symbol through a bounded worker pool.
type YahooProvider struct {
	HTTPClient  *http.Client
	baseURL     string
	universe    []string
	concurrency int
	logger      *logrus.Logger
}

// NewYahooProvider creates a Yahoo Finance client from configuration.
func NewYahooProvider(cfg *config.YahooConfig, logger *logrus.Logger) *YahooProvider {
	timeout := config.Duration(cfg.Timeout, 10*time.Second)
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	return &YahooProvider{
		HTTPClient:  &http.Client{Timeout: timeout},
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		universe:    defaultUniverse,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Name identifies the provider in data_source fields.
func (y *YahooProvider) Name() string {
	return "yahoo"
}

type yahooChartMeta struct {
	Symbol             string  `json:"symbol"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
	ChartPreviousClose float64 `json:"chartPreviousClose"`
}

type yahooQuoteBlock struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type yahooChartResult struct {
	Meta       yahooChartMeta `json:"meta"`
	Timestamps []int64        `json:"timestamp"`
	Indicators struct {
		Quote []yahooQuoteBlock `json:"quote"`
	} `json:"indicators"`
}

type yahooChartResponse struct {
	Chart struct {
		Result []yahooChartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchUniverse fetches quotes for the provider's bounded preset universe.
func (y *YahooProvider) FetchUniverse(ctx context.Context) ([]models.Snapshot, error) {
	return y.FetchQuotes(ctx, y.universe)
}

// FetchQuotes fans per-symbol chart requests out through a bounded worker
// pool. Symbols that fail individually are skipped; the call fails only
// when no symbol could be served.
func (y *YahooProvider) FetchQuotes(ctx context.Context, symbols []string) ([]models.Snapshot, error) {
	if len(symbols) == 0 {
		return []models.Snapshot{}, nil
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		snapshots []models.Snapshot
		lastErr   error
	)
	sem := make(chan struct{}, y.concurrency)

	for _, symbol := range symbols {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			defer func() { <-sem }()

			snapshot, err := y.fetchQuote(ctx, symbol)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				lastErr = err
				y.logger.WithFields(logrus.Fields{"symbol": symbol}).WithError(err).Debug("yahoo quote failed")
				return
			}
			snapshots = append(snapshots, snapshot)
		}(symbol)
	}
	wg.Wait()

	if len(snapshots) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("yahoo served no symbols: %w", lastErr)
		}
		return nil, fmt.Errorf("yahoo served no symbols")
	}

	// Deterministic order regardless of goroutine completion.
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Symbol < snapshots[j].Symbol })
	return snapshots, nil
}

// fetchQuote derives a snapshot from a two-day chart request.
func (y *YahooProvider) fetchQuote(ctx context.Context, symbol string) (models.Snapshot, error) {
	result, err := y.fetchChart(ctx, symbol, "5d")
	if err != nil {
		return models.Snapshot{}, err
	}

	price := result.Meta.RegularMarketPrice
	prevClose := result.Meta.ChartPreviousClose
	if price <= 0 || prevClose <= 0 {
		return models.Snapshot{}, fmt.Errorf("yahoo returned no usable price for %s", symbol)
	}
	changePct := (price - prevClose) / prevClose * 100

	var volume int64
	if len(result.Indicators.Quote) > 0 {
		for _, v := range result.Indicators.Quote[0].Volume {
			if v != nil {
				volume = *v
			}
		}
	}
	if volume < 0 {
		return models.Snapshot{}, fmt.Errorf("yahoo returned negative volume for %s", symbol)
	}

	priceDec := decimal.NewFromFloat(price)
	return models.Snapshot{
		Symbol:        strings.ToUpper(symbol),
		Price:         priceDec,
		ChangePercent: decimal.NewFromFloat(changePct),
		Volume:        volume,
		Close:         &priceDec,
		Timestamp:     time.Now().UTC(),
		Provider:      y.Name(),
	}, nil
}

// FetchHistory retrieves daily bars from the chart endpoint, oldest first.
func (y *YahooProvider) FetchHistory(ctx context.Context, symbol string, days int) ([]models.PriceBar, error) {
	chartRange := "3mo"
	if days > 60 {
		chartRange = "6mo"
	}
	result, err := y.fetchChart(ctx, symbol, chartRange)
	if err != nil {
		return nil, err
	}
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo returned no quote block for %s", symbol)
	}

	quote := result.Indicators.Quote[0]
	bars := make([]models.PriceBar, 0, len(result.Timestamps))
	for i, ts := range result.Timestamps {
		if i >= len(quote.Close) || quote.Close[i] == nil || *quote.Close[i] <= 0 {
			continue
		}
		bar := models.PriceBar{
			Date:  time.Unix(ts, 0).UTC(),
			Close: decimal.NewFromFloat(*quote.Close[i]),
		}
		if i < len(quote.Open) && quote.Open[i] != nil {
			bar.Open = decimal.NewFromFloat(*quote.Open[i])
		}
		if i < len(quote.High) && quote.High[i] != nil {
			bar.High = decimal.NewFromFloat(*quote.High[i])
		}
		if i < len(quote.Low) && quote.Low[i] != nil {
			bar.Low = decimal.NewFromFloat(*quote.Low[i])
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			bar.Volume = *quote.Volume[i]
		}
		bars = append(bars, bar)
	}
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

// fetchChart calls the chart endpoint for one symbol.
func (y *YahooProvider) fetchChart(ctx context.Context, symbol, chartRange string) (*yahooChartResult, error) {
	params := url.Values{}
	params.Set("range", chartRange)
	params.Set("interval", "1d")
	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", y.baseURL, url.PathEscape(strings.ToUpper(symbol)), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "trading-recommendations-app/1.0")

	resp, err := y.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			y.logger.WithError(err).Warn("Error closing yahoo response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read yahoo response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("yahoo error (%d): %s", resp.StatusCode, string(body))
	}

	var response yahooChartResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yahoo response: %w", err)
	}
	if response.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart error: %s", response.Chart.Error.Description)
	}
	if len(response.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo returned no chart result for %s", symbol)
	}
	return &response.Chart.Result[0], nil
}
