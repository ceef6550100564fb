package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Providers   ProviderConfig `mapstructure:"providers"`
	Scan        ScanConfig     `mapstructure:"scan"`
	Scoring     ScoringConfig  `mapstructure:"scoring"`
	Recommend   RecoConfig     `mapstructure:"recommend"`
	Telegram    TelegramConfig `mapstructure:"telegram"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ProviderConfig describes the market-data providers and their priority.
// Priority is explicit configuration handed to the snapshot source at
// construction; there is no ambient default.
type ProviderConfig struct {
	Priority []string      `mapstructure:"priority"`
	Polygon  PolygonConfig `mapstructure:"polygon"`
	Yahoo    YahooConfig   `mapstructure:"yahoo"`
}

type PolygonConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Timeout string `mapstructure:"timeout"`
}

type YahooConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	Timeout     string `mapstructure:"timeout"`
	Concurrency int    `mapstructure:"concurrency"`
}

// ScanConfig bounds the per-request work of scan and screen operations.
type ScanConfig struct {
	CandidateLimit     int    `mapstructure:"candidate_limit"`
	ScreenTechLimit    int    `mapstructure:"screen_tech_limit"`
	MaxResults         int    `mapstructure:"max_results"`
	HistoryDays        int    `mapstructure:"history_days"`
	HistoryConcurrency int    `mapstructure:"history_concurrency"`
	SnapshotCacheTTL   string `mapstructure:"snapshot_cache_ttl"`
}

// ScoringConfig carries the hand-tuned scan-type thresholds. These are
// business parameters, not physical constants, so they stay configurable.
type ScoringConfig struct {
	MomentumThresholdPct float64 `mapstructure:"momentum_threshold_pct"`
	VolumeSpikeRatio     float64 `mapstructure:"volume_spike_ratio"`
	RSIOversold          float64 `mapstructure:"rsi_oversold"`
	RSIOverbought        float64 `mapstructure:"rsi_overbought"`
}

// RecoConfig carries the recommendation-engine tuning.
type RecoConfig struct {
	MomentumThresholdPct float64 `mapstructure:"momentum_threshold_pct"`
	TargetPct            float64 `mapstructure:"target_pct"`
	StopPct              float64 `mapstructure:"stop_pct"`
	BaseConfidence       int     `mapstructure:"base_confidence"`
	HighVolatilityPct    float64 `mapstructure:"high_volatility_pct"`
	LowVolatilityPct     float64 `mapstructure:"low_volatility_pct"`
	MinLiquidVolume      int64   `mapstructure:"min_liquid_volume"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("providers.polygon.api_key", "POLYGON_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind POLYGON_API_KEY environment variable: %w", err)
	}
	if err := viper.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_BOT_TOKEN environment variable: %w", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	for _, d := range []string{config.Providers.Polygon.Timeout, config.Providers.Yahoo.Timeout, config.Scan.SnapshotCacheTTL} {
		if d == "" {
			continue
		}
		if _, err := time.ParseDuration(d); err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", d, err)
		}
	}

	if len(config.Providers.Priority) == 0 {
		return nil, fmt.Errorf("providers.priority must list at least one provider")
	}

	return &config, nil
}

// Duration parses a duration config value, falling back when unset or invalid.
func Duration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "trading_app")
	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("providers.priority", []string{"polygon", "yahoo"})
	viper.SetDefault("providers.polygon.api_key", "")
	viper.SetDefault("providers.polygon.base_url", "https://api.polygon.io")
	viper.SetDefault("providers.polygon.timeout", "10s")
	viper.SetDefault("providers.yahoo.base_url", "https://query1.finance.yahoo.com")
	viper.SetDefault("providers.yahoo.timeout", "10s")
	viper.SetDefault("providers.yahoo.concurrency", 8)

	viper.SetDefault("scan.candidate_limit", 50)
	viper.SetDefault("scan.screen_tech_limit", 100)
	viper.SetDefault("scan.max_results", 50)
	viper.SetDefault("scan.history_days", 60)
	viper.SetDefault("scan.history_concurrency", 8)
	viper.SetDefault("scan.snapshot_cache_ttl", "5s")

	viper.SetDefault("scoring.momentum_threshold_pct", 2.0)
	viper.SetDefault("scoring.volume_spike_ratio", 2.0)
	viper.SetDefault("scoring.rsi_oversold", 30)
	viper.SetDefault("scoring.rsi_overbought", 70)

	viper.SetDefault("recommend.momentum_threshold_pct", 1.5)
	viper.SetDefault("recommend.target_pct", 3.0)
	viper.SetDefault("recommend.stop_pct", 2.0)
	viper.SetDefault("recommend.base_confidence", 30)
	viper.SetDefault("recommend.high_volatility_pct", 5.0)
	viper.SetDefault("recommend.low_volatility_pct", 2.5)
	viper.SetDefault("recommend.min_liquid_volume", 1_000_000)

	viper.SetDefault("telegram.bot_token", "")
	viper.SetDefault("telegram.chat_id", "")
}
