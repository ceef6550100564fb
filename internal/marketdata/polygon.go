package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/nikhilsi/trading-recommendations-app/internal/config"
	"github.com/nikhilsi/trading-recommendations-app/internal/models"
)

// PolygonProvider is the primary professional feed. A single batched call
// serves the full US stock universe.
type PolygonProvider struct {
	HTTPClient *http.Client
	baseURL    string
	apiKey     string
	logger     *logrus.Logger
}

// NewPolygonProvider creates a Polygon client from configuration.
func NewPolygonProvider(cfg *config.PolygonConfig, logger *logrus.Logger) *PolygonProvider {
	timeout := config.Duration(cfg.Timeout, 10*time.Second)
	return &PolygonProvider{
		HTTPClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		logger:     logger,
	}
}

// Name identifies the provider in data_source fields.
func (p *PolygonProvider) Name() string {
	return "polygon"
}

type polygonDay struct {
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume float64 `json:"v"`
}

type polygonTicker struct {
	Ticker  string      `json:"ticker"`
	Day     *polygonDay `json:"day"`
	PrevDay *polygonDay `json:"prevDay"`
	Updated int64       `json:"updated"`
}

type polygonSnapshotResponse struct {
	Status  string          `json:"status"`
	Tickers []polygonTicker `json:"tickers"`
	Count   int             `json:"count"`
}

type polygonAgg struct {
	Timestamp int64   `json:"t"`
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Close     float64 `json:"c"`
	Volume    float64 `json:"v"`
}

type polygonAggsResponse struct {
	Status  string       `json:"status"`
	Ticker  string       `json:"ticker"`
	Results []polygonAgg `json:"results"`
}

type polygonErrorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// FetchUniverse retrieves the full-market snapshot in one batched call.
func (p *PolygonProvider) FetchUniverse(ctx context.Context) ([]models.Snapshot, error) {
	var response polygonSnapshotResponse
	if err := p.makeRequest(ctx, "/v2/snapshot/locale/us/markets/stocks/tickers", nil, &response); err != nil {
		return nil, err
	}
	return p.normalizeTickers(response.Tickers), nil
}

// FetchQuotes retrieves snapshots for specific symbols via the same batched
// snapshot endpoint.
func (p *PolygonProvider) FetchQuotes(ctx context.Context, symbols []string) ([]models.Snapshot, error) {
	if len(symbols) == 0 {
		return []models.Snapshot{}, nil
	}
	params := url.Values{}
	params.Set("tickers", strings.Join(symbols, ","))
	var response polygonSnapshotResponse
	if err := p.makeRequest(ctx, "/v2/snapshot/locale/us/markets/stocks/tickers", params, &response); err != nil {
		return nil, err
	}
	return p.normalizeTickers(response.Tickers), nil
}

// FetchHistory retrieves daily aggregate bars, oldest first.
func (p *PolygonProvider) FetchHistory(ctx context.Context, symbol string, days int) ([]models.PriceBar, error) {
	to := time.Now().UTC()
	// Calendar days overshoot trading sessions, so widen the range.
	from := to.AddDate(0, 0, -days*2)
	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/day/%s/%s",
		url.PathEscape(strings.ToUpper(symbol)), from.Format("2006-01-02"), to.Format("2006-01-02"))
	params := url.Values{}
	params.Set("adjusted", "true")
	params.Set("sort", "asc")

	var response polygonAggsResponse
	if err := p.makeRequest(ctx, path, params, &response); err != nil {
		return nil, err
	}

	bars := make([]models.PriceBar, 0, len(response.Results))
	for _, agg := range response.Results {
		if agg.Close <= 0 {
			continue
		}
		bars = append(bars, models.PriceBar{
			Date:   time.UnixMilli(agg.Timestamp).UTC(),
			Open:   decimal.NewFromFloat(agg.Open),
			High:   decimal.NewFromFloat(agg.High),
			Low:    decimal.NewFromFloat(agg.Low),
			Close:  decimal.NewFromFloat(agg.Close),
			Volume: int64(agg.Volume),
		})
	}
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

// normalizeTickers converts raw polygon tickers into snapshots, dropping
// rows that violate the snapshot invariants (non-positive price, missing
// previous close).
func (p *PolygonProvider) normalizeTickers(tickers []polygonTicker) []models.Snapshot {
	now := time.Now().UTC()
	snapshots := make([]models.Snapshot, 0, len(tickers))
	for _, t := range tickers {
		if t.Day == nil || t.Day.Close <= 0 || t.Day.Volume < 0 {
			continue
		}
		if t.PrevDay == nil || t.PrevDay.Close <= 0 {
			continue
		}
		changePct := (t.Day.Close - t.PrevDay.Close) / t.PrevDay.Close * 100

		open := decimal.NewFromFloat(t.Day.Open)
		high := decimal.NewFromFloat(t.Day.High)
		low := decimal.NewFromFloat(t.Day.Low)
		closePrice := decimal.NewFromFloat(t.Day.Close)

		ts := now
		if t.Updated > 0 {
			ts = time.Unix(0, t.Updated).UTC()
		}

		snapshots = append(snapshots, models.Snapshot{
			Symbol:        t.Ticker,
			Price:         closePrice,
			ChangePercent: decimal.NewFromFloat(changePct),
			Volume:        int64(t.Day.Volume),
			Open:          &open,
			High:          &high,
			Low:           &low,
			Close:         &closePrice,
			Timestamp:     ts,
			Provider:      p.Name(),
		})
	}
	return snapshots
}

// makeRequest is a helper to call the Polygon REST API.
func (p *PolygonProvider) makeRequest(ctx context.Context, path string, params url.Values, result interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apiKey", p.apiKey)
	reqURL := p.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "trading-recommendations-app/1.0")

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("polygon request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			p.logger.WithError(err).Warn("Error closing polygon response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read polygon response body: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("polygon rate limited (%d)", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		var errorResp polygonErrorResponse
		if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error != "" {
			return fmt.Errorf("polygon error (%d): %s", resp.StatusCode, errorResp.Error)
		}
		return fmt.Errorf("polygon error (%d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to unmarshal polygon response: %w", err)
	}
	return nil
}
