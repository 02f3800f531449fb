package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all configuration for the bot
type Config struct {
	// Exchange API
	BaseURL   string
	APIKey    string
	APISecret string
	FeedURL   string

	// Instrument
	Symbol    string
	ProductID int
	Timeframe string

	// Strategy parameters
	Bankroll                 decimal.Decimal
	WinProbability           decimal.Decimal
	RiskRewardRatio          decimal.Decimal
	KellyFraction            decimal.Decimal
	PortfolioStopLossPercent decimal.Decimal

	// Scheduling
	CheckInterval   time.Duration
	DailyUpdateTime string // "HH:MM", local time
	HistoryDays     int

	// Mode
	DryRun bool
	Debug  bool

	// Telegram
	TelegramToken  string
	TelegramChatID int64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		BaseURL:   getEnv("DELTA_BASE_URL", "https://cdn-ind.testnet.deltaex.org"),
		APIKey:    os.Getenv("DELTA_API_KEY"),
		APISecret: os.Getenv("DELTA_API_SECRET"),
		FeedURL:   getEnv("DELTA_FEED_URL", "wss://socket.india.delta.exchange"),

		Symbol:    getEnv("SYMBOL", "BTCUSD"),
		ProductID: getEnvInt("PRODUCT_ID", 27),
		Timeframe: getEnv("TIMEFRAME", "1d"),

		Bankroll:                 getEnvDecimal("BANKROLL", decimal.NewFromInt(1000)),
		WinProbability:           getEnvDecimal("WIN_PROBABILITY", decimal.NewFromFloat(0.6)),
		RiskRewardRatio:          getEnvDecimal("RISK_REWARD_RATIO", decimal.NewFromInt(3)),
		KellyFraction:            getEnvDecimal("KELLY_FRACTION", decimal.NewFromFloat(0.5)),
		PortfolioStopLossPercent: getEnvDecimal("PORTFOLIO_STOP_LOSS_PERCENT", decimal.NewFromInt(10)),

		CheckInterval:   getEnvDuration("CHECK_INTERVAL", 15*time.Minute),
		DailyUpdateTime: getEnv("DAILY_UPDATE_TIME", "23:59"),
		HistoryDays:     getEnvInt("HISTORY_DAYS", 365),

		DryRun: getEnvBool("DRY_RUN", true),
		Debug:  getEnvBool("DEBUG", false),

		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	// Parse chat ID
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}

	// Validate required fields
	if !cfg.DryRun && (cfg.APIKey == "" || cfg.APISecret == "") {
		return nil, fmt.Errorf("DELTA_API_KEY and DELTA_API_SECRET are required for live trading")
	}

	one := decimal.NewFromInt(1)
	if cfg.WinProbability.LessThanOrEqual(decimal.Zero) || cfg.WinProbability.GreaterThanOrEqual(one) {
		return nil, fmt.Errorf("WIN_PROBABILITY must be in (0,1), got %s", cfg.WinProbability)
	}
	if cfg.RiskRewardRatio.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("RISK_REWARD_RATIO must be positive, got %s", cfg.RiskRewardRatio)
	}
	if cfg.KellyFraction.LessThanOrEqual(decimal.Zero) || cfg.KellyFraction.GreaterThan(one) {
		return nil, fmt.Errorf("KELLY_FRACTION must be in (0,1], got %s", cfg.KellyFraction)
	}
	if cfg.Bankroll.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("BANKROLL must be positive, got %s", cfg.Bankroll)
	}
	if _, err := time.Parse("15:04", cfg.DailyUpdateTime); err != nil {
		return nil, fmt.Errorf("invalid DAILY_UPDATE_TIME: %w", err)
	}

	return cfg, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
