package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilsi/trading-recommendations-app/internal/models"
	"github.com/nikhilsi/trading-recommendations-app/internal/utils"
)

func testFilterPipeline() *FilterPipeline {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewFilterPipeline(testScoringConfig(), logger)
}

func decimalPtr(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}

func TestValidateRejectsUnfilteredFullMarketScreen(t *testing.T) {
	pipeline := testFilterPipeline()

	err := pipeline.Validate(models.FilterSpec{ScanType: models.ScanAll})
	require.Error(t, err)
	assert.True(t, utils.IsInvalidFilter(err))
}

func TestValidateRejectsInvertedPriceBounds(t *testing.T) {
	pipeline := testFilterPipeline()

	spec := models.FilterSpec{
		MinPrice: decimalPtr(100),
		MaxPrice: decimalPtr(10),
		ScanType: models.ScanAll,
	}
	err := pipeline.Validate(spec)
	require.Error(t, err)
	assert.True(t, utils.IsInvalidFilter(err))
}

func TestValidateRejectsUnknownBuckets(t *testing.T) {
	pipeline := testFilterPipeline()

	tests := []struct {
		name string
		spec models.FilterSpec
	}{
		{name: "bad scan type", spec: models.FilterSpec{ScanType: "turbo"}},
		{name: "bad volume bucket", spec: models.FilterSpec{VolumeBucket: "2m", ScanType: models.ScanMomentum}},
		{name: "bad change bucket", spec: models.FilterSpec{ChangeBucket: "up9", ScanType: models.ScanMomentum}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pipeline.Validate(tt.spec)
			require.Error(t, err)
			assert.True(t, utils.IsInvalidFilter(err))
		})
	}
}

func TestValidateAcceptsSingleActiveFilter(t *testing.T) {
	pipeline := testFilterPipeline()

	spec := models.FilterSpec{
		MinPrice:     decimalPtr(10),
		VolumeBucket: models.Volume1M,
		ScanType:     models.ScanAll,
	}
	assert.NoError(t, pipeline.Validate(spec))
}

func TestApplyBasicPriceAndVolumeBounds(t *testing.T) {
	pipeline := testFilterPipeline()

	snapshots := []models.Snapshot{
		snapshot("CHEAP", 4.50, 1.0, 2_000_000),
		snapshot("MID", 55, 1.0, 2_500_000),
		snapshot("THIN", 60, 1.0, 400_000),
		snapshot("RICH", 900, 1.0, 9_000_000),
	}

	spec := models.FilterSpec{
		MinPrice:     decimalPtr(10),
		VolumeBucket: models.Volume1M,
	}
	passing := pipeline.ApplyBasic(snapshots, spec)

	symbols := symbolsOf(passing)
	assert.Equal(t, []string{"MID", "RICH"}, symbols)
}

func TestApplyBasicChangeBuckets(t *testing.T) {
	pipeline := testFilterPipeline()

	snapshots := []models.Snapshot{
		snapshot("BIGUP", 10, 6.0, 1_000_000),
		snapshot("SMALLUP", 10, 2.0, 1_000_000),
		snapshot("FLAT", 10, 0.0, 1_000_000),
		snapshot("BIGDOWN", 10, -7.0, 1_000_000),
	}

	tests := []struct {
		bucket models.ChangeBucket
		want   []string
	}{
		{bucket: models.ChangeUp2, want: []string{"BIGUP", "SMALLUP"}},
		{bucket: models.ChangeUp5, want: []string{"BIGUP"}},
		{bucket: models.ChangeDown2, want: []string{"BIGDOWN"}},
		{bucket: models.ChangeDown5, want: []string{"BIGDOWN"}},
		{bucket: models.ChangeAny, want: []string{"BIGUP", "SMALLUP", "FLAT", "BIGDOWN"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.bucket), func(t *testing.T) {
			passing := pipeline.ApplyBasic(snapshots, models.FilterSpec{ChangeBucket: tt.bucket})
			assert.Equal(t, tt.want, symbolsOf(passing))
		})
	}
}

func TestApplyTechnicalExcludesUnavailableIndicators(t *testing.T) {
	pipeline := testFilterPipeline()

	snapshots := []models.Snapshot{
		snapshot("KNOWN", 100, 1.0, 5_000_000),
		snapshot("UNKNOWN", 100, 1.0, 5_000_000),
	}
	sma := decimal.NewFromInt(90)
	indicators := map[string]models.IndicatorSet{
		"KNOWN": {SMA20: &sma},
	}

	passing := pipeline.ApplyTechnical(snapshots, indicators, models.FilterSpec{AboveSMA20: true})
	assert.Equal(t, []string{"KNOWN"}, symbolsOf(passing))
}

func TestApplyTechnicalRSIBreakpoints(t *testing.T) {
	pipeline := testFilterPipeline()

	snapshots := []models.Snapshot{
		snapshot("LOW", 10, -2.0, 1_000_000),
		snapshot("MIDDLE", 10, 0.0, 1_000_000),
		snapshot("HIGH", 10, 2.0, 1_000_000),
	}
	indicators := map[string]models.IndicatorSet{
		"LOW":    indicatorsWithRSI(22),
		"MIDDLE": indicatorsWithRSI(50),
		"HIGH":   indicatorsWithRSI(78),
	}

	oversold := pipeline.ApplyTechnical(snapshots, indicators, models.FilterSpec{RSIOversold: true})
	assert.Equal(t, []string{"LOW"}, symbolsOf(oversold))

	overbought := pipeline.ApplyTechnical(snapshots, indicators, models.FilterSpec{RSIOverbought: true})
	assert.Equal(t, []string{"HIGH"}, symbolsOf(overbought))
}

func TestApplyTechnicalUnusualVolume(t *testing.T) {
	pipeline := testFilterPipeline()

	snapshots := []models.Snapshot{
		snapshot("SPIKE", 10, 1.0, 10_000_000),
		snapshot("NORMAL", 10, 1.0, 1_100_000),
		snapshot("NOBASE", 10, 1.0, 50_000_000),
	}
	indicators := map[string]models.IndicatorSet{
		"SPIKE":  indicatorsWithAvgVolume(1_000_000),
		"NORMAL": indicatorsWithAvgVolume(1_000_000),
	}

	passing := pipeline.ApplyTechnical(snapshots, indicators, models.FilterSpec{VolumeBucket: models.VolumeUnusual})
	assert.Equal(t, []string{"SPIKE"}, symbolsOf(passing))
}

func TestApplyIsNoOpWithoutTechnicalFilters(t *testing.T) {
	pipeline := testFilterPipeline()

	snapshots := []models.Snapshot{
		snapshot("A", 10, 1.0, 1_000_000),
		snapshot("B", 20, 2.0, 2_000_000),
	}

	passing, screened, matched := pipeline.Apply(snapshots, nil, models.FilterSpec{MinPrice: decimalPtr(15)})
	assert.Equal(t, []string{"B"}, symbolsOf(passing))
	assert.Equal(t, 2, screened)
	assert.Equal(t, 1, matched)
}
