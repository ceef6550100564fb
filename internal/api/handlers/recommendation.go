package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nikhilsi/trading-recommendations-app/internal/database"
	"github.com/nikhilsi/trading-recommendations-app/internal/models"
	"github.com/nikhilsi/trading-recommendations-app/internal/services"
	"github.com/nikhilsi/trading-recommendations-app/internal/utils"
)

type RecommendationHandler struct {
	engine  *services.RecommendationEngine
	history *database.HistoryRepository
	logger  *logrus.Logger
}

func NewRecommendationHandler(engine *services.RecommendationEngine, history *database.HistoryRepository, logger *logrus.Logger) *RecommendationHandler {
	return &RecommendationHandler{engine: engine, history: history, logger: logger}
}

// RecommendationsResponse wraps generated recommendations with the request
// parameters that produced them.
type RecommendationsResponse struct {
	Recommendations     []models.Recommendation `json:"recommendations"`
	ConfidenceThreshold int                     `json:"confidence_threshold"`
	GeneratedAt         time.Time               `json:"generated_at"`
}

// PostRecommendations handles POST /api/v1/recommendations. Omitted request
// fields take the standard defaults before validation.
func (h *RecommendationHandler) PostRecommendations(c *gin.Context) {
	var req models.RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, utils.NewInvalidFilterError("invalid recommendation request: %v", err))
		return
	}
	if req.ConfidenceThreshold == 0 {
		req.ConfidenceThreshold = 60
	}
	if req.MaxRecommendations == 0 {
		req.MaxRecommendations = 5
	}

	recommendations, err := h.engine.Recommend(c.Request.Context(), req)
	if err != nil {
		h.logger.WithError(err).Warn("Recommendation generation failed")
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, RecommendationsResponse{
		Recommendations:     recommendations,
		ConfidenceThreshold: req.ConfidenceThreshold,
		GeneratedAt:         time.Now().UTC(),
	})
}

// GetHistory handles GET /api/v1/recommendations/history?limit=20.
func (h *RecommendationHandler) GetHistory(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			respondError(c, utils.NewInvalidFilterError("limit must be an integer between 1 and 100"))
			return
		}
		limit = parsed
	}

	recommendations, err := h.history.RecentRecommendations(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load recommendation history")
		respondError(c, err)
		return
	}
	if recommendations == nil {
		recommendations = []models.Recommendation{}
	}

	c.JSON(http.StatusOK, gin.H{
		"recommendations": recommendations,
		"total":           len(recommendations),
	})
}
