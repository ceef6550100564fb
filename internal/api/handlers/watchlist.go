package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nikhilsi/trading-recommendations-app/internal/database"
	"github.com/nikhilsi/trading-recommendations-app/internal/models"
	"github.com/nikhilsi/trading-recommendations-app/internal/utils"
)

type WatchlistHandler struct {
	repo   *database.WatchlistRepository
	logger *logrus.Logger
}

func NewWatchlistHandler(repo *database.WatchlistRepository, logger *logrus.Logger) *WatchlistHandler {
	return &WatchlistHandler{repo: repo, logger: logger}
}

// AddWatchlistRequest is the body for adding a symbol.
type AddWatchlistRequest struct {
	Symbol string  `json:"symbol" binding:"required"`
	Notes  *string `json:"notes"`
}

// GetWatchlist handles GET /api/v1/watchlist.
func (h *WatchlistHandler) GetWatchlist(c *gin.Context) {
	entries, err := h.repo.ListEntries(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load watchlist")
		respondError(c, err)
		return
	}
	if entries == nil {
		entries = []models.WatchlistEntry{}
	}

	c.JSON(http.StatusOK, gin.H{
		"watchlist": entries,
		"total":     len(entries),
	})
}

// AddSymbol handles POST /api/v1/watchlist.
func (h *WatchlistHandler) AddSymbol(c *gin.Context) {
	var req AddWatchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, utils.NewInvalidFilterError("invalid watchlist request: %v", err))
		return
	}

	entry, err := h.repo.AddSymbol(c.Request.Context(), req.Symbol, req.Notes)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", req.Symbol).Error("Failed to add watchlist symbol")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// RemoveSymbol handles DELETE /api/v1/watchlist/:symbol.
func (h *WatchlistHandler) RemoveSymbol(c *gin.Context) {
	symbol := c.Param("symbol")
	if err := h.repo.RemoveSymbol(c.Request.Context(), symbol); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": symbol})
}
