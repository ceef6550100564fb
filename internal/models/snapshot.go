package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot represents a normalized point-in-time quote for a single symbol.
// Instances are created per scan cycle and never mutated afterwards.
type Snapshot struct {
	Symbol        string           `json:"symbol"`
	Price         decimal.Decimal  `json:"price"`
	ChangePercent decimal.Decimal  `json:"change_percent"`
	Volume        int64            `json:"volume"`
	Open          *decimal.Decimal `json:"open,omitempty"`
	High          *decimal.Decimal `json:"high,omitempty"`
	Low           *decimal.Decimal `json:"low,omitempty"`
	Close         *decimal.Decimal `json:"close,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
	Provider      string           `json:"provider"`
}

// Valid reports whether the snapshot satisfies the basic data invariants
// (positive price, non-negative volume). Providers drop invalid rows during
// normalization rather than surfacing them.
func (s Snapshot) Valid() bool {
	return s.Price.IsPositive() && s.Volume >= 0
}

// PriceBar is a single daily bar of a historical price series, oldest first.
type PriceBar struct {
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// IndicatorSet holds the technical indicators derived from a symbol's price
// history. A nil field means the indicator could not be computed from the
// available history; it is never backfilled with zero.
type IndicatorSet struct {
	Symbol       string           `json:"symbol"`
	RSI14        *decimal.Decimal `json:"rsi_14,omitempty"`
	SMA20        *decimal.Decimal `json:"sma_20,omitempty"`
	SMA50        *decimal.Decimal `json:"sma_50,omitempty"`
	AvgVolume20  *decimal.Decimal `json:"avg_volume_20d,omitempty"`
	Volatility20 *decimal.Decimal `json:"volatility_20d,omitempty"`
}

// VolumeRatio returns current volume relative to the 20-day baseline.
// The second return is false when the baseline is unavailable.
func (i IndicatorSet) VolumeRatio(volume int64) (float64, bool) {
	if i.AvgVolume20 == nil || i.AvgVolume20.IsZero() {
		return 0, false
	}
	avg, _ := i.AvgVolume20.Float64()
	return float64(volume) / avg, true
}
