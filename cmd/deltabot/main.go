// Deltabot - single-symbol trend-following bot for Delta Exchange
//
// The loop polls the mark price, classifies the trend against the 200-day
// moving average, buys pullbacks toward the 50-day average (sells rallies in
// a downtrend), sizes entries with a half-Kelly model under the exchange's
// tiered margin schedule, and protects positions with an ATR trailing stop
// plus a portfolio-level equity stop.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/deltabot/internal/config"
	"github.com/web3guy0/deltabot/internal/exchange"
	"github.com/web3guy0/deltabot/internal/execution"
	"github.com/web3guy0/deltabot/internal/feed"
	"github.com/web3guy0/deltabot/internal/marketdata"
	"github.com/web3guy0/deltabot/internal/notify"
	"github.com/web3guy0/deltabot/internal/risk"
	"github.com/web3guy0/deltabot/internal/strategy"
)

const version = "1.0.0"

func main() {
	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load environment
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().
		Str("version", version).
		Str("symbol", cfg.Symbol).
		Int("product_id", cfg.ProductID).
		Bool("dry_run", cfg.DryRun).
		Msg("🤖 Deltabot starting...")

	client := exchange.NewClient(cfg.BaseURL, cfg.APIKey, cfg.APISecret, cfg.DryRun)

	// Connectivity check before anything else touches the account.
	ticker, err := client.GetTicker(cfg.Symbol)
	if err != nil {
		log.Fatal().Err(err).Msg("Ticker check failed, cannot reach the exchange")
	}
	log.Info().Str("price", ticker.Price().String()).Msg("✅ API connection successful")

	processor := marketdata.NewProcessor(client, cfg.Symbol, cfg.Timeframe)
	if err := processor.FetchHistory(cfg.HistoryDays); err != nil {
		log.Fatal().Err(err).Msg("Failed to load historical data")
	}

	sizer := risk.NewEngine(cfg.WinProbability, cfg.RiskRewardRatio, cfg.KellyFraction)
	orchestrator := execution.NewOrchestrator(client, cfg.ProductID, cfg.RiskRewardRatio)
	controller := strategy.NewController(client, processor, orchestrator, sizer,
		cfg.ProductID, cfg.Bankroll, cfg.PortfolioStopLossPercent)

	notifier, err := notify.New(cfg.TelegramToken, cfg.TelegramChatID, cfg.Symbol)
	if err != nil {
		log.Warn().Err(err).Msg("Telegram alerts disabled")
	}
	if notifier != nil {
		controller.SetAlerter(notifier)
	}

	priceFeed := feed.New(cfg.FeedURL, cfg.Symbol)
	priceFeed.Start()

	currentPrice := func() (decimal.Decimal, error) {
		if p, ok := priceFeed.Price(); ok {
			return p, nil
		}
		t, err := client.GetTicker(cfg.Symbol)
		if err != nil {
			return decimal.Zero, err
		}
		if p := t.Price(); p.IsPositive() {
			return p, nil
		}
		return decimal.Zero, fmt.Errorf("ticker returned no usable price")
	}

	runCheck := func() {
		price, err := currentPrice()
		if err != nil {
			log.Error().Err(err).Msg("Price unavailable, skipping tick")
			return
		}
		log.Info().Str("price", price.String()).Msg("Checking trading conditions")
		controller.EvaluateTick(price)
	}

	runDaily := func() {
		price, err := currentPrice()
		if err != nil {
			log.Error().Err(err).Msg("Price unavailable, daily update skipped")
			return
		}
		controller.RunDailyUpdate(price.InexactFloat64())
	}

	// Immediate first evaluation, then fixed cadence.
	runCheck()

	checkTicker := time.NewTicker(cfg.CheckInterval)
	defer checkTicker.Stop()
	dailyTimer := time.NewTimer(untilNextDaily(cfg.DailyUpdateTime, time.Now()))
	defer dailyTimer.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Info().
		Dur("check_interval", cfg.CheckInterval).
		Str("daily_update", cfg.DailyUpdateTime).
		Msg("✅ Trading loop running")

	for {
		select {
		case <-checkTicker.C:
			runCheck()
		case <-dailyTimer.C:
			runDaily()
			dailyTimer.Reset(untilNextDaily(cfg.DailyUpdateTime, time.Now()))
		case <-quit:
			log.Info().Msg("🛑 Received shutdown signal")
			priceFeed.Stop()
			log.Info().Msg("👋 Goodbye!")
			return
		}
	}
}

// untilNextDaily returns the wait until the next occurrence of hh:mm local
// time. The format is validated at config load.
func untilNextDaily(at string, now time.Time) time.Duration {
	t, _ := time.Parse("15:04", at)
	next := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}
