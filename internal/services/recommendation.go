package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/nikhilsi/trading-recommendations-app/internal/config"
	"github.com/nikhilsi/trading-recommendations-app/internal/indicators"
	"github.com/nikhilsi/trading-recommendations-app/internal/models"
	"github.com/nikhilsi/trading-recommendations-app/internal/utils"
)

// WatchlistStore provides the symbols eligible for recommendations.
type WatchlistStore interface {
	GetWatchlist(ctx context.Context) ([]string, error)
}

// RecommendationStore persists generated recommendations; best-effort.
type RecommendationStore interface {
	SaveRecommendations(ctx context.Context, recommendations []models.Recommendation) error
}

// Notifier delivers generated recommendations to an external channel;
// best-effort.
type Notifier interface {
	NotifyRecommendations(ctx context.Context, recommendations []models.Recommendation) error
}

// RecommendationEngine analyzes the watchlist and produces conviction-scored
// BUY/SELL calls with derived target and stop prices. Symbols without a
// directional signal are dropped, never emitted as HOLD.
type RecommendationEngine struct {
	source    MarketSource
	engine    *indicators.Engine
	watchlist WatchlistStore
	history   RecommendationStore
	notifier  Notifier
	cfg       config.RecoConfig
	scanCfg   config.ScanConfig
	logger    *logrus.Logger
}

// NewRecommendationEngine creates a recommendation engine. history and
// notifier may be nil.
func NewRecommendationEngine(source MarketSource, engine *indicators.Engine, watchlist WatchlistStore, history RecommendationStore, notifier Notifier, cfg config.RecoConfig, scanCfg config.ScanConfig, logger *logrus.Logger) *RecommendationEngine {
	return &RecommendationEngine{
		source:    source,
		engine:    engine,
		watchlist: watchlist,
		history:   history,
		notifier:  notifier,
		cfg:       cfg,
		scanCfg:   scanCfg,
		logger:    logger,
	}
}

// Recommend generates up to req.MaxRecommendations calls at or above
// req.ConfidenceThreshold, highest conviction first.
func (r *RecommendationEngine) Recommend(ctx context.Context, req models.RecommendationRequest) ([]models.Recommendation, error) {
	if req.ConfidenceThreshold < 20 || req.ConfidenceThreshold > 90 {
		return nil, utils.NewInvalidFilterError("confidence_threshold must be between 20 and 90, got %d", req.ConfidenceThreshold)
	}
	if req.MaxRecommendations < 1 || req.MaxRecommendations > 10 {
		return nil, utils.NewInvalidFilterError("max_recommendations must be between 1 and 10, got %d", req.MaxRecommendations)
	}

	symbols, err := r.watchlist.GetWatchlist(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load watchlist: %w", err)
	}
	if len(symbols) == 0 {
		return []models.Recommendation{}, nil
	}

	quotes, err := r.source.FetchQuotes(ctx, symbols)
	if err != nil {
		return nil, err
	}

	indicatorSets := r.fetchIndicators(ctx, symbols)

	recommendations := make([]models.Recommendation, 0, len(symbols))
	for _, symbol := range symbols {
		snap, ok := quotes[symbol]
		if !ok {
			r.logger.WithField("symbol", symbol).Debug("No quote for watchlist symbol")
			continue
		}
		if rec := r.analyzeSymbol(snap, indicatorSets[symbol]); rec != nil && rec.Confidence >= req.ConfidenceThreshold {
			recommendations = append(recommendations, *rec)
		}
	}

	sort.Slice(recommendations, func(i, j int) bool {
		if recommendations[i].Confidence != recommendations[j].Confidence {
			return recommendations[i].Confidence > recommendations[j].Confidence
		}
		return recommendations[i].Symbol < recommendations[j].Symbol
	})
	if len(recommendations) > req.MaxRecommendations {
		recommendations = recommendations[:req.MaxRecommendations]
	}

	if r.history != nil && len(recommendations) > 0 {
		if err := r.history.SaveRecommendations(ctx, recommendations); err != nil {
			r.logger.WithError(err).Warn("Failed to persist recommendations")
		}
	}
	if r.notifier != nil && len(recommendations) > 0 {
		if err := r.notifier.NotifyRecommendations(ctx, recommendations); err != nil {
			r.logger.WithError(err).Warn("Failed to send recommendation alert")
		}
	}

	return recommendations, nil
}

func (r *RecommendationEngine) fetchIndicators(ctx context.Context, symbols []string) map[string]models.IndicatorSet {
	results := make(map[string]models.IndicatorSet, len(symbols))
	var mu sync.Mutex
	var wg sync.WaitGroup

	concurrency := r.scanCfg.HistoryConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)

	for _, symbol := range symbols {
		wg.Add(1)
		sem <- struct{}{}
		go func(symbol string) {
			defer wg.Done()
			defer func() { <-sem }()

			bars, err := r.source.FetchHistory(ctx, symbol, r.scanCfg.HistoryDays)
			if err != nil || len(bars) < indicators.MinHistoryBars {
				// Analysis degrades to snapshot-only fields for this symbol.
				return
			}
			set := r.engine.Compute(symbol, bars)
			mu.Lock()
			results[symbol] = set
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()
	return results
}

// analyzeSymbol turns one snapshot plus indicators into a directional call,
// or nil when the evidence is neutral. Every confidence adjustment appends a
// matching reasoning line.
func (r *RecommendationEngine) analyzeSymbol(snap models.Snapshot, ind models.IndicatorSet) *models.Recommendation {
	changePct, _ := snap.ChangePercent.Float64()

	confidence := r.cfg.BaseConfidence
	action := models.ActionHold
	var reasoning []string

	switch {
	case changePct > r.cfg.MomentumThresholdPct:
		action = models.ActionBuy
		confidence += 25
		reasoning = append(reasoning, fmt.Sprintf("Positive momentum: +%.1f%%", changePct))
	case changePct > 0.5:
		action = models.ActionBuy
		confidence += 15
		reasoning = append(reasoning, fmt.Sprintf("Mild uptrend: +%.1f%%", changePct))
	case changePct < -r.cfg.MomentumThresholdPct:
		action = models.ActionSell
		confidence += 25
		reasoning = append(reasoning, fmt.Sprintf("Negative momentum: %.1f%%", changePct))
	case changePct < -0.5:
		action = models.ActionSell
		confidence += 15
		reasoning = append(reasoning, fmt.Sprintf("Mild downtrend: %.1f%%", changePct))
	}
	if action == models.ActionHold {
		return nil
	}

	if ratio, known := ind.VolumeRatio(snap.Volume); known {
		if ratio >= 1.5 {
			confidence += 10
			reasoning = append(reasoning, fmt.Sprintf("Volume %.1fx above 20-day average", ratio))
		}
	} else if snap.Volume > 5_000_000 {
		confidence += 10
		reasoning = append(reasoning, fmt.Sprintf("Good volume: %s", formatShares(snap.Volume)))
	}

	if ind.RSI14 != nil {
		rsi, _ := ind.RSI14.Float64()
		switch action {
		case models.ActionBuy:
			if rsi < 30 {
				confidence += 15
				reasoning = append(reasoning, fmt.Sprintf("RSI oversold at %.0f, room to rebound", rsi))
			} else if rsi > 70 {
				confidence -= 10
				reasoning = append(reasoning, fmt.Sprintf("RSI overbought at %.0f", rsi))
			}
		case models.ActionSell:
			if rsi > 70 {
				confidence += 15
				reasoning = append(reasoning, fmt.Sprintf("RSI overbought at %.0f", rsi))
			} else if rsi < 30 {
				confidence -= 10
				reasoning = append(reasoning, fmt.Sprintf("RSI oversold at %.0f", rsi))
			}
		}
	}

	if ind.SMA20 != nil {
		above := snap.Price.GreaterThan(*ind.SMA20)
		switch {
		case action == models.ActionBuy && above:
			confidence += 5
			reasoning = append(reasoning, "Price above 20-day average")
		case action == models.ActionBuy && !above:
			confidence -= 5
			reasoning = append(reasoning, "Price below 20-day average")
		case action == models.ActionSell && !above:
			confidence += 5
			reasoning = append(reasoning, "Price below 20-day average")
		case action == models.ActionSell && above:
			confidence -= 5
			reasoning = append(reasoning, "Price above 20-day average")
		}
	}

	if snap.Price.GreaterThan(decimal.NewFromInt(50)) {
		confidence += 5
		reasoning = append(reasoning, "Established price level")
	}

	if confidence > 90 {
		confidence = 90
	}
	if confidence < 0 {
		confidence = 0
	}

	target, stop := r.priceLevels(action, snap.Price)

	timeframe := "Swing Trade"
	if confidence > 60 {
		timeframe = "Day Trade"
	}

	return &models.Recommendation{
		Symbol:       snap.Symbol,
		Action:       action,
		CurrentPrice: snap.Price,
		TargetPrice:  target,
		StopLoss:     stop,
		Confidence:   confidence,
		Timeframe:    timeframe,
		RiskLevel:    r.assessRisk(snap, ind),
		Reasoning:    reasoning,
		DataSource:   snap.Provider,
		GeneratedAt:  time.Now().UTC(),
	}
}

// priceLevels derives target and stop from the configured percentages,
// mirrored for SELL calls, rounded to cents.
func (r *RecommendationEngine) priceLevels(action models.Action, price decimal.Decimal) (target, stop decimal.Decimal) {
	targetPct := decimal.NewFromFloat(r.cfg.TargetPct / 100)
	stopPct := decimal.NewFromFloat(r.cfg.StopPct / 100)
	one := decimal.NewFromInt(1)

	if action == models.ActionBuy {
		target = price.Mul(one.Add(targetPct)).Round(2)
		stop = price.Mul(one.Sub(stopPct)).Round(2)
		return target, stop
	}
	target = price.Mul(one.Sub(targetPct)).Round(2)
	stop = price.Mul(one.Add(stopPct)).Round(2)
	return target, stop
}

// assessRisk grades the trade by realized volatility and liquidity. Unknown
// volatility is graded Medium, not Low.
func (r *RecommendationEngine) assessRisk(snap models.Snapshot, ind models.IndicatorSet) models.RiskLevel {
	if snap.Volume < r.cfg.MinLiquidVolume {
		return models.RiskHigh
	}
	if ind.Volatility20 == nil {
		return models.RiskMedium
	}
	volatility, _ := ind.Volatility20.Float64()
	switch {
	case math.Abs(volatility) > r.cfg.HighVolatilityPct:
		return models.RiskHigh
	case math.Abs(volatility) > r.cfg.LowVolatilityPct:
		return models.RiskMedium
	}
	return models.RiskLow
}
