package services

import (
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/nikhilsi/trading-recommendations-app/internal/config"
	"github.com/nikhilsi/trading-recommendations-app/internal/models"
	"github.com/nikhilsi/trading-recommendations-app/internal/utils"
)

// FilterPipeline evaluates a FilterSpec against snapshots. Predicates are
// ANDed; every default field is a no-op. Technical predicates require
// computed indicators, and a symbol whose required indicator is unavailable
// fails that predicate rather than passing it.
type FilterPipeline struct {
	cfg    config.ScoringConfig
	logger *logrus.Logger
}

// NewFilterPipeline creates a filter pipeline using the scoring thresholds
// for the RSI breakpoints.
func NewFilterPipeline(cfg config.ScoringConfig, logger *logrus.Logger) *FilterPipeline {
	return &FilterPipeline{cfg: cfg, logger: logger}
}

// Validate rejects malformed filter specifications before any market data
// is fetched.
func (p *FilterPipeline) Validate(spec models.FilterSpec) error {
	if spec.ScanType != "" && !spec.ScanType.Valid() {
		return utils.NewInvalidFilterError("unknown scan type: %s", spec.ScanType)
	}
	switch spec.VolumeBucket {
	case "", models.VolumeAny, models.Volume1M, models.Volume5M, models.Volume10M, models.VolumeUnusual:
	default:
		return utils.NewInvalidFilterError("unknown volume filter: %s", spec.VolumeBucket)
	}
	switch spec.ChangeBucket {
	case "", models.ChangeAny, models.ChangeUp2, models.ChangeUp5, models.ChangeDown2, models.ChangeDown5:
	default:
		return utils.NewInvalidFilterError("unknown change filter: %s", spec.ChangeBucket)
	}
	if spec.MinPrice != nil && spec.MaxPrice != nil && spec.MinPrice.GreaterThan(*spec.MaxPrice) {
		return utils.NewInvalidFilterError("min_price exceeds max_price")
	}
	if (spec.ScanType == "" || spec.ScanType == models.ScanAll) && !spec.HasActiveFilter() {
		return utils.NewInvalidFilterError("at least one filter is required for a full-market screen")
	}
	return nil
}

// ApplyBasic runs the predicates that need only snapshot fields. The
// returned slice preserves input order.
func (p *FilterPipeline) ApplyBasic(snapshots []models.Snapshot, spec models.FilterSpec) []models.Snapshot {
	passing := make([]models.Snapshot, 0, len(snapshots))
	for _, snap := range snapshots {
		if p.passesBasic(snap, spec) {
			passing = append(passing, snap)
		}
	}
	return passing
}

// ApplyTechnical runs the indicator-dependent predicates. Snapshots whose
// symbol has no entry in indicators are treated as indicator-unavailable.
func (p *FilterPipeline) ApplyTechnical(snapshots []models.Snapshot, indicators map[string]models.IndicatorSet, spec models.FilterSpec) []models.Snapshot {
	if !spec.HasTechnicalFilter() {
		return snapshots
	}
	passing := make([]models.Snapshot, 0, len(snapshots))
	for _, snap := range snapshots {
		if p.passesTechnical(snap, indicators[snap.Symbol], spec) {
			passing = append(passing, snap)
		}
	}
	return passing
}

// Apply runs basic then technical predicates and reports how many snapshots
// were examined and how many passed.
func (p *FilterPipeline) Apply(snapshots []models.Snapshot, indicators map[string]models.IndicatorSet, spec models.FilterSpec) (passing []models.Snapshot, screened, matched int) {
	passing = p.ApplyTechnical(p.ApplyBasic(snapshots, spec), indicators, spec)
	return passing, len(snapshots), len(passing)
}

func (p *FilterPipeline) passesBasic(snap models.Snapshot, spec models.FilterSpec) bool {
	if spec.MinPrice != nil && snap.Price.LessThan(*spec.MinPrice) {
		return false
	}
	if spec.MaxPrice != nil && snap.Price.GreaterThan(*spec.MaxPrice) {
		return false
	}
	if min := spec.VolumeBucket.MinShares(); min > 0 && snap.Volume < min {
		return false
	}
	return passesChange(snap.ChangePercent, spec.ChangeBucket)
}

func passesChange(changePct decimal.Decimal, bucket models.ChangeBucket) bool {
	switch bucket {
	case models.ChangeUp2:
		return changePct.GreaterThanOrEqual(decimal.NewFromInt(2))
	case models.ChangeUp5:
		return changePct.GreaterThanOrEqual(decimal.NewFromInt(5))
	case models.ChangeDown2:
		return changePct.LessThanOrEqual(decimal.NewFromInt(-2))
	case models.ChangeDown5:
		return changePct.LessThanOrEqual(decimal.NewFromInt(-5))
	}
	return true
}

func (p *FilterPipeline) passesTechnical(snap models.Snapshot, ind models.IndicatorSet, spec models.FilterSpec) bool {
	if spec.AboveSMA20 {
		if ind.SMA20 == nil || !snap.Price.GreaterThan(*ind.SMA20) {
			return false
		}
	}
	if spec.AboveSMA50 {
		if ind.SMA50 == nil || !snap.Price.GreaterThan(*ind.SMA50) {
			return false
		}
	}
	if spec.RSIOversold || spec.RSIOverbought {
		if ind.RSI14 == nil {
			return false
		}
		rsi, _ := ind.RSI14.Float64()
		if spec.RSIOversold && rsi >= p.cfg.RSIOversold {
			return false
		}
		if spec.RSIOverbought && rsi <= p.cfg.RSIOverbought {
			return false
		}
	}
	if spec.VolumeBucket == models.VolumeUnusual {
		ratio, known := ind.VolumeRatio(snap.Volume)
		if !known || ratio < p.cfg.VolumeSpikeRatio {
			return false
		}
	}
	return true
}
