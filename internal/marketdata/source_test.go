package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilsi/trading-recommendations-app/internal/models"
	"github.com/nikhilsi/trading-recommendations-app/internal/utils"
)

type stubProvider struct {
	name         string
	snaps        []models.Snapshot
	bars         []models.PriceBar
	err          error
	calls        int
	historyCalls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) FetchUniverse(ctx context.Context) ([]models.Snapshot, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.snaps, nil
}

func (s *stubProvider) FetchQuotes(ctx context.Context, symbols []string) ([]models.Snapshot, error) {
	return s.FetchUniverse(ctx)
}

func (s *stubProvider) FetchHistory(ctx context.Context, symbol string, days int) ([]models.PriceBar, error) {
	s.historyCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.bars, nil
}

func stubSnapshot(symbol string, price float64) models.Snapshot {
	return models.Snapshot{
		Symbol:        symbol,
		Price:         decimal.NewFromFloat(price),
		ChangePercent: decimal.NewFromFloat(1.0),
		Volume:        1_000_000,
		Timestamp:     time.Now().UTC(),
	}
}

func TestSourceUsesPrimaryProvider(t *testing.T) {
	primary := &stubProvider{name: "polygon", snaps: []models.Snapshot{stubSnapshot("AAPL", 189.50)}}
	fallback := &stubProvider{name: "yahoo", snaps: []models.Snapshot{stubSnapshot("AAPL", 189.40)}}
	source := NewSnapshotSource([]Provider{primary, fallback}, time.Second, testLogger())

	universe, err := source.FetchUniverse(context.Background())
	require.NoError(t, err)

	require.Contains(t, universe, "AAPL")
	assert.Equal(t, "polygon", universe["AAPL"].Provider)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, fallback.calls)
}

func TestSourceFallsBackWhenPrimaryFails(t *testing.T) {
	primary := &stubProvider{name: "polygon", err: errors.New("rate limited")}
	fallback := &stubProvider{name: "yahoo", snaps: []models.Snapshot{stubSnapshot("AAPL", 189.40)}}
	source := NewSnapshotSource([]Provider{primary, fallback}, time.Second, testLogger())

	universe, err := source.FetchUniverse(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "yahoo", universe["AAPL"].Provider)
	// Failed provider gets exactly one backoff retry before falling through.
	assert.Equal(t, 2, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestSourceFailsWhenAllProvidersFail(t *testing.T) {
	primary := &stubProvider{name: "polygon", err: errors.New("down")}
	fallback := &stubProvider{name: "yahoo", err: errors.New("also down")}
	source := NewSnapshotSource([]Provider{primary, fallback}, time.Second, testLogger())

	_, err := source.FetchUniverse(context.Background())

	require.Error(t, err)
	assert.True(t, utils.IsDataUnavailable(err))
	var unavailable *utils.DataUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []string{"polygon", "yahoo"}, unavailable.Attempts)
}

func TestSourceDropsInvalidSnapshots(t *testing.T) {
	provider := &stubProvider{name: "polygon", snaps: []models.Snapshot{
		stubSnapshot("GOOD", 55),
		{Symbol: "BAD", Price: decimal.Zero, Volume: 100},
	}}
	source := NewSnapshotSource([]Provider{provider}, time.Second, testLogger())

	universe, err := source.FetchUniverse(context.Background())
	require.NoError(t, err)

	assert.Contains(t, universe, "GOOD")
	assert.NotContains(t, universe, "BAD")
}

func TestSourceTreatsEmptyResultAsFailure(t *testing.T) {
	empty := &stubProvider{name: "polygon", snaps: nil}
	fallback := &stubProvider{name: "yahoo", snaps: []models.Snapshot{stubSnapshot("SPY", 470)}}
	source := NewSnapshotSource([]Provider{empty, fallback}, time.Second, testLogger())

	universe, err := source.FetchUniverse(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "yahoo", universe["SPY"].Provider)
}

func TestSourceFetchHistoryFallsBack(t *testing.T) {
	bars := []models.PriceBar{{Close: decimal.NewFromInt(100), Volume: 1000}}
	primary := &stubProvider{name: "polygon", err: errors.New("down")}
	fallback := &stubProvider{name: "yahoo", bars: bars}
	source := NewSnapshotSource([]Provider{primary, fallback}, time.Second, testLogger())

	got, err := source.FetchHistory(context.Background(), "AAPL", 60)
	require.NoError(t, err)

	assert.Equal(t, bars, got)
	assert.Equal(t, 2, primary.historyCalls)
}
