package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/nikhilsi/trading-recommendations-app/internal/models"
)

// HistoryRepository persists generated recommendations and completed scans
// for later review.
type HistoryRepository struct {
	db PgxQuerier
}

// NewHistoryRepository creates a history repository over the given pool.
func NewHistoryRepository(db PgxQuerier) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// SaveRecommendations stores one row per generated recommendation.
func (r *HistoryRepository) SaveRecommendations(ctx context.Context, recommendations []models.Recommendation) error {
	query := `
		INSERT INTO recommendation_history
			(id, symbol, action, current_price, target_price, stop_loss,
			 confidence, timeframe, risk_level, reasoning, data_source, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	for _, rec := range recommendations {
		reasoning, err := json.Marshal(rec.Reasoning)
		if err != nil {
			return fmt.Errorf("failed to serialize reasoning for %s: %w", rec.Symbol, err)
		}
		_, err = r.db.Exec(ctx, query,
			uuid.New(), rec.Symbol, rec.Action,
			rec.CurrentPrice, rec.TargetPrice, rec.StopLoss,
			rec.Confidence, rec.Timeframe, rec.RiskLevel,
			reasoning, rec.DataSource, rec.GeneratedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save recommendation for %s: %w", rec.Symbol, err)
		}
	}
	return nil
}

// RecentRecommendations returns the most recently generated recommendations,
// newest first.
func (r *HistoryRepository) RecentRecommendations(ctx context.Context, limit int) ([]models.Recommendation, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT symbol, action, current_price, target_price, stop_loss,
		       confidence, timeframe, risk_level, reasoning, data_source, generated_at
		FROM recommendation_history
		ORDER BY generated_at DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendation history: %w", err)
	}
	defer rows.Close()

	var recommendations []models.Recommendation
	for rows.Next() {
		var rec models.Recommendation
		var reasoning []byte
		err := rows.Scan(&rec.Symbol, &rec.Action, &rec.CurrentPrice, &rec.TargetPrice, &rec.StopLoss,
			&rec.Confidence, &rec.Timeframe, &rec.RiskLevel, &reasoning, &rec.DataSource, &rec.GeneratedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recommendation row: %w", err)
		}
		if len(reasoning) > 0 {
			if err := json.Unmarshal(reasoning, &rec.Reasoning); err != nil {
				return nil, fmt.Errorf("failed to deserialize reasoning for %s: %w", rec.Symbol, err)
			}
		}
		recommendations = append(recommendations, rec)
	}
	return recommendations, rows.Err()
}

// SaveScan stores a completed scan or screen result as one row with the
// ranked opportunities serialized alongside the totals.
func (r *HistoryRepository) SaveScan(ctx context.Context, result *models.ScreenResult) error {
	results, err := json.Marshal(result.Results)
	if err != nil {
		return fmt.Errorf("failed to serialize scan results: %w", err)
	}
	filters, err := json.Marshal(result.FiltersApplied)
	if err != nil {
		return fmt.Errorf("failed to serialize scan filters: %w", err)
	}

	query := `
		INSERT INTO scan_history
			(id, scan_type, total_screened, total_matched, results, filters, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.db.Exec(ctx, query,
		uuid.New(), result.FiltersApplied.ScanType,
		result.TotalScreened, result.TotalMatched,
		results, filters, result.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save scan result: %w", err)
	}
	return nil
}
