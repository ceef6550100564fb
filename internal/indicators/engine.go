// Package indicators computes technical indicators from historical price
// series. All computations are pure and deterministic: identical input
// series always produce identical indicator sets, and indicators whose
// trailing window exceeds the available history are left unavailable
// rather than backfilled.
package indicators

import (
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/shopspring/decimal"

	"github.com/nikhilsi/trading-recommendations-app/internal/models"
)

const (
	rsiPeriod    = 14
	smaShort     = 20
	smaLong      = 50
	volumeWindow = 20
)

// MinHistoryBars is the series length at which every indicator in an
// IndicatorSet becomes available.
const MinHistoryBars = smaLong

// Engine derives IndicatorSets from daily price bars.
type Engine struct{}

// NewEngine creates an indicator engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Compute derives the indicator set for a symbol from its price series,
// oldest bar first. Fields whose window exceeds the series length stay nil.
func (e *Engine) Compute(symbol string, bars []models.PriceBar) models.IndicatorSet {
	set := models.IndicatorSet{Symbol: symbol}

	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i], _ = bar.Close.Float64()
		volumes[i] = float64(bar.Volume)
	}

	if rsi, ok := latestRSI(closes, rsiPeriod); ok {
		set.RSI14 = decimalPtr(clamp(rsi, 0, 100))
	}
	if sma, ok := latestSMA(closes, smaShort); ok {
		set.SMA20 = decimalPtr(sma)
	}
	if sma, ok := latestSMA(closes, smaLong); ok {
		set.SMA50 = decimalPtr(sma)
	}
	if avg, ok := trailingMean(volumes, volumeWindow); ok {
		set.AvgVolume20 = decimalPtr(avg)
	}
	if vol, ok := trailingVolatility(closes, volumeWindow); ok {
		set.Volatility20 = decimalPtr(vol)
	}

	return set
}

// latestRSI computes the Wilder-smoothed RSI over the trailing period and
// returns its most recent value.
func latestRSI(closes []float64, period int) (float64, bool) {
	if len(closes) < period+1 {
		return 0, false
	}
	rsi := momentum.NewRsiWithPeriod[float64](period)
	values := helper.ChanToSlice(rsi.Compute(helper.SliceToChan(closes)))
	if len(values) == 0 {
		return 0, false
	}
	return values[len(values)-1], true
}

// latestSMA computes the simple moving average over the trailing period and
// returns its most recent value.
func latestSMA(closes []float64, period int) (float64, bool) {
	if len(closes) < period {
		return 0, false
	}
	sma := trend.NewSmaWithPeriod[float64](period)
	values := helper.ChanToSlice(sma.Compute(helper.SliceToChan(closes)))
	if len(values) == 0 {
		return 0, false
	}
	return values[len(values)-1], true
}

// trailingMean returns the arithmetic mean of the trailing window.
func trailingMean(values []float64, window int) (float64, bool) {
	if len(values) < window {
		return 0, false
	}
	sum := 0.0
	for _, v := range values[len(values)-window:] {
		sum += v
	}
	return sum / float64(window), true
}

// trailingVolatility returns the standard deviation of the trailing window
// of closes as a percentage of its mean.
func trailingVolatility(closes []float64, window int) (float64, bool) {
	mean, ok := trailingMean(closes, window)
	if !ok || mean == 0 {
		return 0, false
	}
	variance := 0.0
	for _, price := range closes[len(closes)-window:] {
		diff := price - mean
		variance += diff * diff
	}
	variance /= float64(window)
	return math.Sqrt(variance) / mean * 100, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func decimalPtr(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}
