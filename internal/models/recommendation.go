package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Action is a directional trading call.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	// ActionHold is an internal outcome only; held symbols are omitted from
	// recommendation results rather than surfaced.
	ActionHold Action = "HOLD"
)

// RiskLevel buckets a recommendation by recent volatility and liquidity.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Recommendation is an actionable BUY/SELL call on a watchlisted symbol.
// Computed fresh per request; never mutated after creation.
type Recommendation struct {
	Symbol       string          `json:"symbol"`
	Action       Action          `json:"action"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	TargetPrice  decimal.Decimal `json:"target_price"`
	StopLoss     decimal.Decimal `json:"stop_loss"`
	Confidence   int             `json:"confidence"`
	Timeframe    string          `json:"timeframe"`
	RiskLevel    RiskLevel       `json:"risk_level"`
	Reasoning    []string        `json:"reasoning"`
	DataSource   string          `json:"data_source"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

// RecommendationRequest carries caller-supplied recommendation parameters.
type RecommendationRequest struct {
	ConfidenceThreshold int `json:"confidence_threshold"`
	MaxRecommendations  int `json:"max_recommendations"`
}
