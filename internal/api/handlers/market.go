package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nikhilsi/trading-recommendations-app/internal/models"
	"github.com/nikhilsi/trading-recommendations-app/internal/services"
	"github.com/nikhilsi/trading-recommendations-app/internal/utils"
)

type MarketHandler struct {
	screener *services.Screener
	logger   *logrus.Logger
}

func NewMarketHandler(screener *services.Screener, logger *logrus.Logger) *MarketHandler {
	return &MarketHandler{screener: screener, logger: logger}
}

// GetScan handles GET /api/v1/market/scan?scan_type=momentum&limit=10.
func (h *MarketHandler) GetScan(c *gin.Context) {
	scanType := models.ScanType(c.DefaultQuery("scan_type", string(models.ScanMomentum)))

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, utils.NewInvalidFilterError("limit must be an integer, got %q", raw))
			return
		}
		limit = parsed
	}

	result, err := h.screener.Scan(c.Request.Context(), scanType, limit)
	if err != nil {
		h.logger.WithError(err).WithField("scan_type", scanType).Warn("Scan failed")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// PostScreen handles POST /api/v1/market/screen with a FilterSpec body.
func (h *MarketHandler) PostScreen(c *gin.Context) {
	var spec models.FilterSpec
	if err := c.ShouldBindJSON(&spec); err != nil {
		respondError(c, utils.NewInvalidFilterError("invalid screen request: %v", err))
		return
	}

	result, err := h.screener.Screen(c.Request.Context(), spec)
	if err != nil {
		h.logger.WithError(err).Warn("Screen failed")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
