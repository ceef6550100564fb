package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nikhilsi/trading-recommendations-app/internal/api/handlers"
	"github.com/nikhilsi/trading-recommendations-app/internal/database"
	"github.com/nikhilsi/trading-recommendations-app/internal/services"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Services  Services  `json:"services"`
}

type Services struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// Dependencies carries everything the HTTP layer needs.
type Dependencies struct {
	DB            *database.PostgresDB
	Redis         *database.RedisClient
	Screener      *services.Screener
	Recommender   *services.RecommendationEngine
	WatchlistRepo *database.WatchlistRepository
	HistoryRepo   *database.HistoryRepository
	Logger        *logrus.Logger
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	// Health check endpoint
	router.GET("/health", healthCheck(deps.DB, deps.Redis))

	marketHandler := handlers.NewMarketHandler(deps.Screener, deps.Logger)
	recommendationHandler := handlers.NewRecommendationHandler(deps.Recommender, deps.HistoryRepo, deps.Logger)
	watchlistHandler := handlers.NewWatchlistHandler(deps.WatchlistRepo, deps.Logger)

	v1 := router.Group("/api/v1")
	{
		market := v1.Group("/market")
		{
			market.GET("/scan", marketHandler.GetScan)
			market.POST("/screen", marketHandler.PostScreen)
		}

		recommendations := v1.Group("/recommendations")
		{
			recommendations.POST("", recommendationHandler.PostRecommendations)
			recommendations.GET("/history", recommendationHandler.GetHistory)
		}

		watchlist := v1.Group("/watchlist")
		{
			watchlist.GET("", watchlistHandler.GetWatchlist)
			watchlist.POST("", watchlistHandler.AddSymbol)
			watchlist.DELETE("/:symbol", watchlistHandler.RemoveSymbol)
		}
	}
}

func healthCheck(db *database.PostgresDB, redis *database.RedisClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := HealthResponse{
			Status:    "ok",
			Timestamp: time.Now(),
			Version:   "1.0.0",
			Services: Services{
				Database: "ok",
				Redis:    "ok",
			},
		}

		if db != nil {
			if err := db.HealthCheck(c.Request.Context()); err != nil {
				response.Services.Database = "error"
				response.Status = "degraded"
			}
		}

		if redis != nil {
			if err := redis.HealthCheck(c.Request.Context()); err != nil {
				response.Services.Redis = "error"
				response.Status = "degraded"
			}
		}

		statusCode := http.StatusOK
		if response.Status == "degraded" {
			statusCode = http.StatusServiceUnavailable
		}

		c.JSON(statusCode, response)
	}
}
