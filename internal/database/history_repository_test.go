package database

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilsi/trading-recommendations-app/internal/models"
)

func newHistoryRepo(t *testing.T) (*HistoryRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewHistoryRepository(mock), mock
}

func sampleRecommendation() models.Recommendation {
	return models.Recommendation{
		Symbol:       "AAPL",
		Action:       models.ActionBuy,
		CurrentPrice: decimal.NewFromFloat(189.50),
		TargetPrice:  decimal.NewFromFloat(195.19),
		StopLoss:     decimal.NewFromFloat(185.71),
		Confidence:   70,
		Timeframe:    "Day Trade",
		RiskLevel:    models.RiskMedium,
		Reasoning:    []string{"Positive momentum: +2.5%", "Good volume: 52.0M"},
		DataSource:   "polygon",
		GeneratedAt:  time.Date(2026, 8, 27, 15, 0, 0, 0, time.UTC),
	}
}

func TestSaveRecommendations(t *testing.T) {
	repo, mock := newHistoryRepo(t)
	rec := sampleRecommendation()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO recommendation_history")).
		WithArgs(pgxmock.AnyArg(), rec.Symbol, rec.Action,
			rec.CurrentPrice, rec.TargetPrice, rec.StopLoss,
			rec.Confidence, rec.Timeframe, rec.RiskLevel,
			pgxmock.AnyArg(), rec.DataSource, rec.GeneratedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.SaveRecommendations(context.Background(), []models.Recommendation{rec})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentRecommendations(t *testing.T) {
	repo, mock := newHistoryRepo(t)
	rec := sampleRecommendation()

	rows := pgxmock.NewRows([]string{
		"symbol", "action", "current_price", "target_price", "stop_loss",
		"confidence", "timeframe", "risk_level", "reasoning", "data_source", "generated_at",
	}).AddRow(
		rec.Symbol, rec.Action, rec.CurrentPrice, rec.TargetPrice, rec.StopLoss,
		rec.Confidence, rec.Timeframe, rec.RiskLevel,
		[]byte(`["Positive momentum: +2.5%","Good volume: 52.0M"]`),
		rec.DataSource, rec.GeneratedAt,
	)
	mock.ExpectQuery(regexp.QuoteMeta("FROM recommendation_history")).
		WithArgs(10).
		WillReturnRows(rows)

	got, err := repo.RecentRecommendations(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.Symbol, got[0].Symbol)
	assert.Equal(t, rec.Reasoning, got[0].Reasoning)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentRecommendationsDefaultsLimit(t *testing.T) {
	repo, mock := newHistoryRepo(t)

	rows := pgxmock.NewRows([]string{
		"symbol", "action", "current_price", "target_price", "stop_loss",
		"confidence", "timeframe", "risk_level", "reasoning", "data_source", "generated_at",
	})
	mock.ExpectQuery(regexp.QuoteMeta("FROM recommendation_history")).
		WithArgs(20).
		WillReturnRows(rows)

	got, err := repo.RecentRecommendations(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveScan(t *testing.T) {
	repo, mock := newHistoryRepo(t)

	result := &models.ScreenResult{
		Results: []models.Opportunity{{
			Symbol:   "AAPL",
			Price:    decimal.NewFromFloat(189.50),
			Volume:   52_000_000,
			Score:    74,
			Signals:  []string{"Strong momentum: +2.5%"},
			ScanType: models.ScanMomentum,
		}},
		TotalScreened:  8000,
		TotalMatched:   1,
		FiltersApplied: models.FilterSpec{ScanType: models.ScanMomentum},
		GeneratedAt:    time.Date(2026, 8, 27, 15, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO scan_history")).
		WithArgs(pgxmock.AnyArg(), models.ScanMomentum, 8000, 1,
			pgxmock.AnyArg(), pgxmock.AnyArg(), result.GeneratedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.SaveScan(context.Background(), result)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
