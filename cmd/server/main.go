package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/nikhilsi/trading-recommendations-app/internal/api"
	"github.com/nikhilsi/trading-recommendations-app/internal/cache"
	"github.com/nikhilsi/trading-recommendations-app/internal/config"
	"github.com/nikhilsi/trading-recommendations-app/internal/database"
	"github.com/nikhilsi/trading-recommendations-app/internal/indicators"
	"github.com/nikhilsi/trading-recommendations-app/internal/logging"
	"github.com/nikhilsi/trading-recommendations-app/internal/marketdata"
	"github.com/nikhilsi/trading-recommendations-app/internal/middleware"
	"github.com/nikhilsi/trading-recommendations-app/internal/services"
)

func main() {
	// Load .env if present; real environments set variables directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.Environment)

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redisClient, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	providers, err := buildProviders(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to configure market data providers: %v", err)
	}

	providerTimeout := config.Duration(cfg.Providers.Polygon.Timeout, 10*time.Second)
	source := marketdata.NewSnapshotSource(providers, providerTimeout, logger)

	snapshotCache := cache.NewRedisSnapshotCache(
		redisClient.Client,
		config.Duration(cfg.Scan.SnapshotCacheTTL, 5*time.Second),
		logger,
	)

	watchlistRepo := database.NewWatchlistRepository(db.Pool)
	historyRepo := database.NewHistoryRepository(db.Pool)

	indicatorEngine := indicators.NewEngine()
	scoringEngine := services.NewScoringEngine(cfg.Scoring)
	filterPipeline := services.NewFilterPipeline(cfg.Scoring, logger)
	notifier := services.NewNotificationService(cfg.Telegram, logger)

	screener := services.NewScreener(source, indicatorEngine, scoringEngine, filterPipeline,
		snapshotCache, historyRepo, cfg.Scan, logger)
	recommender := services.NewRecommendationEngine(source, indicatorEngine, watchlistRepo,
		historyRepo, notifier, cfg.Recommend, cfg.Scan, logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))

	api.SetupRoutes(router, api.Dependencies{
		DB:            db,
		Redis:         redisClient,
		Screener:      screener,
		Recommender:   recommender,
		WatchlistRepo: watchlistRepo,
		HistoryRepo:   historyRepo,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Infof("Server starting on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// buildProviders instantiates market data providers in the configured
// priority order.
func buildProviders(cfg *config.Config, logger *logrus.Logger) ([]marketdata.Provider, error) {
	providers := make([]marketdata.Provider, 0, len(cfg.Providers.Priority))
	for _, name := range cfg.Providers.Priority {
		switch name {
		case "polygon":
			providers = append(providers, marketdata.NewPolygonProvider(&cfg.Providers.Polygon, logger))
		case "yahoo":
			providers = append(providers, marketdata.NewYahooProvider(&cfg.Providers.Yahoo, logger))
		default:
			return nil, fmt.Errorf("unknown market data provider: %s", name)
		}
	}
	return providers, nil
}
