package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nikhilsi/trading-recommendations-app/internal/config"
	"github.com/nikhilsi/trading-recommendations-app/internal/indicators"
	"github.com/nikhilsi/trading-recommendations-app/internal/models"
	"github.com/nikhilsi/trading-recommendations-app/internal/utils"
)

// MarketSource is the provider-agnostic market data surface the services
// depend on. The marketdata.SnapshotSource satisfies it.
type MarketSource interface {
	FetchUniverse(ctx context.Context) (map[string]models.Snapshot, error)
	FetchQuotes(ctx context.Context, symbols []string) (map[string]models.Snapshot, error)
	FetchHistory(ctx context.Context, symbol string, days int) ([]models.PriceBar, error)
}

// UniverseCache is an optional short-TTL cache for the full-market snapshot,
// shared across requests within one scan cycle.
type UniverseCache interface {
	GetUniverse(ctx context.Context) (map[string]models.Snapshot, bool)
	SetUniverse(ctx context.Context, snapshots map[string]models.Snapshot)
}

// ScanHistoryStore persists completed scan results. Persistence is
// best-effort; a write failure never fails the scan.
type ScanHistoryStore interface {
	SaveScan(ctx context.Context, result *models.ScreenResult) error
}

// Screener orchestrates the scan and screen pipelines: validate, fetch,
// filter, score, rank, respond. Indicator computation is bounded to a
// candidate subset so a full-market request stays a fixed amount of work.
type Screener struct {
	source  MarketSource
	engine  *indicators.Engine
	scoring *ScoringEngine
	filters *FilterPipeline
	cache   UniverseCache
	history ScanHistoryStore
	cfg     config.ScanConfig
	logger  *logrus.Logger
}

// NewScreener creates a screener. cache and history may be nil.
func NewScreener(source MarketSource, engine *indicators.Engine, scoring *ScoringEngine, filters *FilterPipeline, cache UniverseCache, history ScanHistoryStore, cfg config.ScanConfig, logger *logrus.Logger) *Screener {
	return &Screener{
		source:  source,
		engine:  engine,
		scoring: scoring,
		filters: filters,
		cache:   cache,
		history: history,
		cfg:     cfg,
		logger:  logger,
	}
}

// Scan runs a preset scan over the full market and returns up to limit
// scored opportunities, best first.
func (s *Screener) Scan(ctx context.Context, scanType models.ScanType, limit int) (*models.ScreenResult, error) {
	if !scanType.Valid() {
		return nil, utils.NewInvalidFilterError("unknown scan type: %s", scanType)
	}
	// "all" carries no heuristic of its own; it is only legal behind
	// explicit filters, which the scan operation cannot express.
	if scanType == models.ScanAll {
		return nil, utils.NewInvalidFilterError("scan type %s requires filters; use the screen operation", scanType)
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > s.cfg.MaxResults {
		limit = s.cfg.MaxResults
	}

	universe, err := s.fetchUniverse(ctx)
	if err != nil {
		return nil, err
	}
	snapshots := snapshotSlice(universe)

	candidates := s.selectCandidates(scanType, snapshots)
	var indicatorSet map[string]models.IndicatorSet
	if scanNeedsIndicators(scanType) {
		indicatorSet = s.fetchIndicators(ctx, symbolsOf(candidates))
	}

	stats := buildUniverseStats(scanType, snapshots)
	opportunities := s.scoreAll(scanType, candidates, indicatorSet, stats)
	rankOpportunities(opportunities)
	if len(opportunities) > limit {
		opportunities = opportunities[:limit]
	}

	result := &models.ScreenResult{
		Results:        opportunities,
		TotalScreened:  len(snapshots),
		TotalMatched:   len(opportunities),
		FiltersApplied: models.FilterSpec{ScanType: scanType},
		GeneratedAt:    time.Now().UTC(),
	}
	s.recordScan(ctx, result)
	return result, nil
}

// Screen applies an explicit filter specification over the full market.
// Validation failures are reported before any provider is contacted.
func (s *Screener) Screen(ctx context.Context, spec models.FilterSpec) (*models.ScreenResult, error) {
	if spec.ScanType == "" {
		spec.ScanType = models.ScanAll
	}
	if err := s.filters.Validate(spec); err != nil {
		return nil, err
	}

	universe, err := s.fetchUniverse(ctx)
	if err != nil {
		return nil, err
	}
	snapshots := snapshotSlice(universe)

	passing := s.filters.ApplyBasic(snapshots, spec)

	var indicatorSet map[string]models.IndicatorSet
	if spec.HasTechnicalFilter() {
		// Technical filters are evaluated over the highest-volume
		// survivors so one request cannot demand history for the
		// whole market.
		sort.Slice(passing, func(i, j int) bool { return passing[i].Volume > passing[j].Volume })
		if len(passing) > s.cfg.ScreenTechLimit {
			passing = passing[:s.cfg.ScreenTechLimit]
		}
		indicatorSet = s.fetchIndicators(ctx, symbolsOf(passing))
		passing = s.filters.ApplyTechnical(passing, indicatorSet, spec)
	}

	opportunities := s.scoreAll(spec.ScanType, passing, indicatorSet, buildUniverseStats(spec.ScanType, snapshots))
	rankOpportunities(opportunities)
	if len(opportunities) > s.cfg.MaxResults {
		opportunities = opportunities[:s.cfg.MaxResults]
	}

	result := &models.ScreenResult{
		Results:        opportunities,
		TotalScreened:  len(snapshots),
		TotalMatched:   len(opportunities),
		FiltersApplied: spec,
		GeneratedAt:    time.Now().UTC(),
	}
	s.recordScan(ctx, result)
	return result, nil
}

func (s *Screener) fetchUniverse(ctx context.Context) (map[string]models.Snapshot, error) {
	if s.cache != nil {
		if cached, ok := s.cache.GetUniverse(ctx); ok {
			return cached, nil
		}
	}
	universe, err := s.source.FetchUniverse(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetUniverse(ctx, universe)
	}
	return universe, nil
}

// selectCandidates bounds the indicator-dependent scan types to the most
// promising subset of the universe. Scan types scored from snapshot fields
// alone keep the whole universe as candidates.
func (s *Screener) selectCandidates(scanType models.ScanType, snapshots []models.Snapshot) []models.Snapshot {
	if !scanNeedsIndicators(scanType) {
		return snapshots
	}
	candidates := make([]models.Snapshot, len(snapshots))
	copy(candidates, snapshots)
	switch scanType {
	case models.ScanOversold:
		// Biggest losers first; those are the bounce candidates worth
		// spending history fetches on.
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].ChangePercent.LessThan(candidates[j].ChangePercent)
		})
	default:
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].Volume > candidates[j].Volume })
	}
	if len(candidates) > s.cfg.CandidateLimit {
		candidates = candidates[:s.cfg.CandidateLimit]
	}
	return candidates
}

// fetchIndicators computes indicators for the given symbols with a bounded
// worker pool. Symbols whose history fetch fails or is too short are simply
// absent from the returned map.
func (s *Screener) fetchIndicators(ctx context.Context, symbols []string) map[string]models.IndicatorSet {
	results := make(map[string]models.IndicatorSet, len(symbols))
	var mu sync.Mutex
	var wg sync.WaitGroup

	concurrency := s.cfg.HistoryConcurrency
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

			bars, err := s.source.FetchHistory(ctx, symbol, s.cfg.HistoryDays)
			if err != nil {
				s.logger.WithError(err).WithField("symbol", symbol).Debug("Skipping symbol: history unavailable")
				return
			}
			if len(bars) < indicators.MinHistoryBars {
				s.logger.WithError(utils.NewInsufficientHistoryError(symbol, indicators.MinHistoryBars, len(bars))).
					Debug("Skipping symbol for indicator-dependent evaluation")
				return
			}
			set := s.engine.Compute(symbol, bars)
			mu.Lock()
			results[symbol] = set
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()
	return results
}

func (s *Screener) scoreAll(scanType models.ScanType, snapshots []models.Snapshot, indicatorSet map[string]models.IndicatorSet, stats *UniverseStats) []models.Opportunity {
	opportunities := make([]models.Opportunity, 0, len(snapshots))
	for _, snap := range snapshots {
		score, signals, ok := s.scoring.Score(scanType, snap, indicatorSet[snap.Symbol], stats)
		if !ok {
			continue
		}
		opportunities = append(opportunities, models.Opportunity{
			Symbol:        snap.Symbol,
			Price:         snap.Price,
			ChangePercent: snap.ChangePercent,
			Volume:        snap.Volume,
			Score:         score,
			Signals:       signals,
			ScanType:      scanType,
			DataSource:    snap.Provider,
		})
	}
	return opportunities
}

func (s *Screener) recordScan(ctx context.Context, result *models.ScreenResult) {
	if s.history == nil {
		return
	}
	if err := s.history.SaveScan(ctx, result); err != nil {
		s.logger.WithError(err).Warn("Failed to persist scan result")
	}
}

// rankOpportunities orders best-first with a deterministic tiebreak:
// score desc, then volume desc, then symbol asc.
func rankOpportunities(opportunities []models.Opportunity) {
	sort.Slice(opportunities, func(i, j int) bool {
		if opportunities[i].Score != opportunities[j].Score {
			return opportunities[i].Score > opportunities[j].Score
		}
		if opportunities[i].Volume != opportunities[j].Volume {
			return opportunities[i].Volume > opportunities[j].Volume
		}
		return opportunities[i].Symbol < opportunities[j].Symbol
	})
}

func scanNeedsIndicators(scanType models.ScanType) bool {
	return scanType == models.ScanOversold || scanType == models.ScanVolume
}

func snapshotSlice(universe map[string]models.Snapshot) []models.Snapshot {
	snapshots := make([]models.Snapshot, 0, len(universe))
	for _, snap := range universe {
		snapshots = append(snapshots, snap)
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Symbol < snapshots[j].Symbol })
	return snapshots
}

func symbolsOf(snapshots []models.Snapshot) []string {
	symbols := make([]string, len(snapshots))
	for i, snap := range snapshots {
		symbols[i] = snap.Symbol
	}
	return symbols
}

// buildUniverseStats precomputes the volume percentile of every symbol for
// the most_active heuristic; other scan types don't need it.
func buildUniverseStats(scanType models.ScanType, snapshots []models.Snapshot) *UniverseStats {
	if scanType != models.ScanMostActive || len(snapshots) == 0 {
		return nil
	}
	ranked := make([]models.Snapshot, len(snapshots))
	copy(ranked, snapshots)
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Volume < ranked[j].Volume })

	percentiles := make(map[string]float64, len(ranked))
	if len(ranked) == 1 {
		percentiles[ranked[0].Symbol] = 1
	} else {
		for i, snap := range ranked {
			percentiles[snap.Symbol] = float64(i) / float64(len(ranked)-1)
		}
	}
	return &UniverseStats{VolumePercentile: percentiles}
}
