package services

import (
	"fmt"
	"math"

	"github.com/nikhilsi/trading-recommendations-app/internal/config"
	"github.com/nikhilsi/trading-recommendations-app/internal/models"
)

// UniverseStats carries per-request context derived from the fetched
// universe, currently the volume percentile per symbol used by the
// most_active heuristic.
type UniverseStats struct {
	VolumePercentile map[string]float64
}

// scoreFunc is a single scan-type heuristic. ok=false excludes the symbol
// from the scan entirely (e.g. oversold scans over symbols without RSI).
type scoreFunc func(snap models.Snapshot, ind models.IndicatorSet, stats *UniverseStats) (score int, signals []string, ok bool)

// ScoringEngine computes bounded opportunity scores and the human-readable
// signals that trace them. Each scan type is a named strategy; every number
// that appears in a signal was compared during scoring.
type ScoringEngine struct {
	cfg        config.ScoringConfig
	strategies map[models.ScanType]scoreFunc
}

// NewScoringEngine creates a scoring engine with the configured thresholds.
func NewScoringEngine(cfg config.ScoringConfig) *ScoringEngine {
	e := &ScoringEngine{cfg: cfg}
	e.strategies = map[models.ScanType]scoreFunc{
		models.ScanMomentum:   e.scoreMomentum,
		models.ScanVolume:     e.scoreVolume,
		models.ScanOversold:   e.scoreOversold,
		models.ScanMostActive: e.scoreMostActive,
		models.ScanAll:        e.scoreComposite,
	}
	return e
}

// Score applies the scan type's heuristic. ok=false means the symbol is
// excluded from this scan type rather than scored at zero.
func (e *ScoringEngine) Score(scanType models.ScanType, snap models.Snapshot, ind models.IndicatorSet, stats *UniverseStats) (int, []string, bool) {
	strategy, found := e.strategies[scanType]
	if !found {
		return 0, nil, false
	}
	return strategy(snap, ind, stats)
}

// scoreMomentum rewards large positive moves; heavy volume multiplies the
// score.
func (e *ScoringEngine) scoreMomentum(snap models.Snapshot, ind models.IndicatorSet, _ *UniverseStats) (int, []string, bool) {
	changePct, _ := snap.ChangePercent.Float64()

	score := clampScore(50 + changePct*5)
	if score > 95 {
		score = 95
	}

	var signals []string
	switch {
	case changePct >= e.cfg.MomentumThresholdPct:
		signals = append(signals, fmt.Sprintf("Strong momentum: +%.1f%%", changePct))
	case changePct > 0:
		signals = append(signals, fmt.Sprintf("Positive momentum: +%.1f%%", changePct))
	case changePct < 0:
		signals = append(signals, fmt.Sprintf("Down %.1f%%", math.Abs(changePct)))
	}

	heavyVolume := false
	if ratio, known := ind.VolumeRatio(snap.Volume); known {
		if ratio >= 1.5 {
			heavyVolume = true
			signals = append(signals, fmt.Sprintf("Volume: %s (%.1fx average)", formatShares(snap.Volume), ratio))
		}
	} else if snap.Volume >= 10_000_000 {
		heavyVolume = true
		signals = append(signals, fmt.Sprintf("High volume: %s", formatShares(snap.Volume)))
	}
	if heavyVolume && changePct > 0 {
		score = clampScore(float64(score) * 1.2)
	}

	return score, signals, true
}

// scoreVolume ranks by volume relative to the 20-day baseline; price
// direction is secondary. Symbols without a baseline fall back to absolute
// share-count breakpoints.
func (e *ScoringEngine) scoreVolume(snap models.Snapshot, ind models.IndicatorSet, _ *UniverseStats) (int, []string, bool) {
	changePct, _ := snap.ChangePercent.Float64()

	score := 0
	var signals []string

	if ratio, known := ind.VolumeRatio(snap.Volume); known {
		if ratio >= e.cfg.VolumeSpikeRatio {
			score += 50
			signals = append(signals, fmt.Sprintf("Unusual volume: %.1fx average", ratio))
		} else if ratio >= 1.5 {
			score += 30
			signals = append(signals, fmt.Sprintf("Above-average volume: %.1fx", ratio))
		}
	} else if snap.Volume >= 10_000_000 {
		score += 40
		signals = append(signals, fmt.Sprintf("High volume: %s", formatShares(snap.Volume)))
	} else if snap.Volume >= 5_000_000 {
		score += 20
		signals = append(signals, fmt.Sprintf("Good volume: %s", formatShares(snap.Volume)))
	}

	if changePct > 0 {
		score += 30
		signals = append(signals, fmt.Sprintf("Positive price action: +%.1f%%", changePct))
	}

	return clampScore(float64(score)), signals, true
}

// scoreOversold frames deep RSI readings plus recent weakness as reversal
// candidates. Symbols without RSI are excluded from this scan type.
func (e *ScoringEngine) scoreOversold(snap models.Snapshot, ind models.IndicatorSet, _ *UniverseStats) (int, []string, bool) {
	if ind.RSI14 == nil {
		return 0, nil, false
	}
	rsi, _ := ind.RSI14.Float64()
	changePct, _ := snap.ChangePercent.Float64()

	score := 0.0
	var signals []string

	if rsi < e.cfg.RSIOversold {
		score += 40 + (e.cfg.RSIOversold-rsi)*2
		signals = append(signals, fmt.Sprintf("Oversold RSI: %.0f", rsi))
	}
	if changePct < 0 {
		score += math.Min(20, math.Abs(changePct)*4)
		signals = append(signals, fmt.Sprintf("Down %.1f%%", math.Abs(changePct)))
	}
	if score > 0 {
		signals = append(signals, "Potential bounce candidate")
	}

	return clampScore(score), signals, true
}

// scoreMostActive scores purely by absolute volume rank across the fetched
// universe.
func (e *ScoringEngine) scoreMostActive(snap models.Snapshot, _ models.IndicatorSet, stats *UniverseStats) (int, []string, bool) {
	percentile := 0.0
	if stats != nil {
		percentile = stats.VolumePercentile[snap.Symbol]
	}
	changePct, _ := snap.ChangePercent.Float64()

	signals := []string{
		fmt.Sprintf("Most traded: %s shares", formatShares(snap.Volume)),
		fmt.Sprintf("Price change: %+.1f%%", changePct),
	}
	return clampScore(percentile * 100), signals, true
}

// scoreComposite is the screen-side composite used for scan_type=all. It is
// only reachable behind the mandatory filter pipeline.
func (e *ScoringEngine) scoreComposite(snap models.Snapshot, ind models.IndicatorSet, _ *UniverseStats) (int, []string, bool) {
	changePct, _ := snap.ChangePercent.Float64()

	score := 50.0
	var signals []string

	switch {
	case math.Abs(changePct) > 5:
		score += 30
	case math.Abs(changePct) > 2:
		score += 20
	}
	if changePct > 2 {
		signals = append(signals, fmt.Sprintf("Up %.1f%%", changePct))
	} else if changePct < -2 {
		signals = append(signals, fmt.Sprintf("Down %.1f%%", math.Abs(changePct)))
	}

	switch {
	case snap.Volume > 10_000_000:
		score += 20
		signals = append(signals, fmt.Sprintf("High volume: %s", formatShares(snap.Volume)))
	case snap.Volume > 5_000_000:
		score += 10
		signals = append(signals, fmt.Sprintf("Good volume: %s", formatShares(snap.Volume)))
	}

	if ind.RSI14 != nil {
		rsi, _ := ind.RSI14.Float64()
		if rsi < e.cfg.RSIOversold {
			signals = append(signals, fmt.Sprintf("Oversold RSI: %.0f", rsi))
		} else if rsi > e.cfg.RSIOverbought {
			signals = append(signals, fmt.Sprintf("Overbought RSI: %.0f", rsi))
		}
	}

	if len(signals) == 0 {
		signals = append(signals, "Matched filter criteria")
	}
	return clampScore(score), signals, true
}

// clampScore bounds a raw score to [0,100].
func clampScore(raw float64) int {
	if raw < 0 {
		return 0
	}
	if raw > 100 {
		return 100
	}
	return int(raw)
}

// formatShares renders a share count compactly (52.0M, 1.2B).
func formatShares(volume int64) string {
	v := float64(volume)
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.1fK", v/1e3)
	default:
		return fmt.Sprintf("%d", volume)
	}
}
