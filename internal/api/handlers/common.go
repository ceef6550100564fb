package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nikhilsi/trading-recommendations-app/internal/database"
	"github.com/nikhilsi/trading-recommendations-app/internal/utils"
)

// respondError maps service errors to HTTP status codes. Validation
// failures are the caller's fault; provider exhaustion is a temporary
// upstream condition, never disguised as an empty success.
func respondError(c *gin.Context, err error) {
	switch {
	case utils.IsInvalidFilter(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case utils.IsDataUnavailable(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, database.ErrSymbolNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
