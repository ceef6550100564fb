package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScanType identifies a scoring heuristic for market scans.
type ScanType string

const (
	ScanMomentum   ScanType = "momentum"
	ScanVolume     ScanType = "volume"
	ScanOversold   ScanType = "oversold"
	ScanMostActive ScanType = "most_active"
	ScanAll        ScanType = "all"
)

// Valid reports whether the scan type is one of the supported heuristics.
func (s ScanType) Valid() bool {
	switch s {
	case ScanMomentum, ScanVolume, ScanOversold, ScanMostActive, ScanAll:
		return true
	}
	return false
}

// VolumeBucket maps a user-selectable volume filter to fixed breakpoints.
type VolumeBucket string

const (
	VolumeAny     VolumeBucket = "any"
	Volume1M      VolumeBucket = "1m"
	Volume5M      VolumeBucket = "5m"
	Volume10M     VolumeBucket = "10m"
	VolumeUnusual VolumeBucket = "unusual"
)

// MinShares returns the absolute share-count breakpoint for the bucket.
// Buckets without a fixed breakpoint (any, unusual) return 0.
func (v VolumeBucket) MinShares() int64 {
	switch v {
	case Volume1M:
		return 1_000_000
	case Volume5M:
		return 5_000_000
	case Volume10M:
		return 10_000_000
	}
	return 0
}

// ChangeBucket maps a user-selectable change filter to fixed breakpoints.
type ChangeBucket string

const (
	ChangeAny   ChangeBucket = "any"
	ChangeUp2   ChangeBucket = "up2"
	ChangeUp5   ChangeBucket = "up5"
	ChangeDown2 ChangeBucket = "down2"
	ChangeDown5 ChangeBucket = "down5"
)

// Opportunity is a scored, ranked candidate symbol surfaced by scan/screen.
type Opportunity struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Volume        int64           `json:"volume"`
	Score         int             `json:"score"`
	Signals       []string        `json:"signals"`
	ScanType      ScanType        `json:"scan_type"`
	DataSource    string          `json:"data_source"`
}

// FilterSpec is a structured filter specification for market screens.
// Nil price bounds mean "unbounded"; zero-value buckets and false booleans
// are no-ops. At least one non-default field is required when ScanType is
// "all" so an unbounded full-market screen cannot run unfiltered.
type FilterSpec struct {
	MinPrice      *decimal.Decimal `json:"min_price,omitempty"`
	MaxPrice      *decimal.Decimal `json:"max_price,omitempty"`
	VolumeBucket  VolumeBucket     `json:"volume_filter,omitempty"`
	ChangeBucket  ChangeBucket     `json:"change_filter,omitempty"`
	AboveSMA20    bool             `json:"above_sma_20,omitempty"`
	AboveSMA50    bool             `json:"above_sma_50,omitempty"`
	RSIOversold   bool             `json:"rsi_oversold,omitempty"`
	RSIOverbought bool             `json:"rsi_overbought,omitempty"`
	ScanType      ScanType         `json:"scan_type,omitempty"`
}

// HasActiveFilter reports whether any predicate differs from its no-op default.
func (f FilterSpec) HasActiveFilter() bool {
	if f.MinPrice != nil || f.MaxPrice != nil {
		return true
	}
	if f.VolumeBucket != "" && f.VolumeBucket != VolumeAny {
		return true
	}
	if f.ChangeBucket != "" && f.ChangeBucket != ChangeAny {
		return true
	}
	return f.AboveSMA20 || f.AboveSMA50 || f.RSIOversold || f.RSIOverbought
}

// HasTechnicalFilter reports whether any indicator-dependent predicate is set.
func (f FilterSpec) HasTechnicalFilter() bool {
	return f.AboveSMA20 || f.AboveSMA50 || f.RSIOversold || f.RSIOverbought ||
		f.VolumeBucket == VolumeUnusual
}

// ScreenResult is the canonical result shape shared by scan and screen
// operations. TotalMatched always equals len(Results).
type ScreenResult struct {
	Results        []Opportunity `json:"results"`
	TotalScreened  int           `json:"total_screened"`
	TotalMatched   int           `json:"total_matched"`
	FiltersApplied FilterSpec    `json:"filters_applied"`
	GeneratedAt    time.Time     `json:"generated_at"`
}
