// Package marketdata maintains the daily candle series and the indicator
// snapshot the strategy consumes.
package marketdata

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/deltabot/internal/exchange"
	"github.com/web3guy0/deltabot/internal/indicators"
)

const (
	maSlowPeriod = 200
	maFastPeriod = 50
	atrPeriod    = 14
)

// ErrNoData is returned when there is not enough history for the slow moving
// average.
var ErrNoData = errors.New("marketdata: insufficient history")

// Snapshot is the latest indicator reading.
type Snapshot struct {
	Close float64
	MA200 float64
	MA50  float64
	ATR   float64
}

// CandleSource supplies OHLCV history.
type CandleSource interface {
	GetCandles(symbol, resolution string, start, end int64) ([]exchange.Candle, error)
}

type candle struct {
	day    string // "2006-01-02"
	open   float64
	high   float64
	low    float64
	close  float64
	volume float64
}

// Processor owns the candle series for one symbol.
type Processor struct {
	source     CandleSource
	symbol     string
	resolution string

	mu      sync.RWMutex
	candles []candle
	ma200   float64
	ma50    float64
	atr     float64
	ready   bool
}

// NewProcessor creates a processor for a symbol.
func NewProcessor(source CandleSource, symbol, resolution string) *Processor {
	return &Processor{
		source:     source,
		symbol:     symbol,
		resolution: resolution,
	}
}

// FetchHistory pulls the trailing daily candles and computes indicators.
func (p *Processor) FetchHistory(days int) error {
	log.Info().Int("days", days).Str("symbol", p.symbol).Msg("📊 Fetching historical data")

	end := time.Now().Unix()
	start := end - int64(days)*86400
	raw, err := p.source.GetCandles(p.symbol, p.resolution, start, end)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}

	candles := make([]candle, 0, len(raw))
	for _, c := range raw {
		candles = append(candles, candle{
			day:    time.Unix(c.Time, 0).Format("2006-01-02"),
			open:   c.Open.InexactFloat64(),
			high:   c.High.InexactFloat64(),
			low:    c.Low.InexactFloat64(),
			close:  c.Close.InexactFloat64(),
			volume: c.Volume.InexactFloat64(),
		})
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.candles = candles
	p.refreshLocked()

	log.Info().Int("candles", len(candles)).Bool("ready", p.ready).Msg("Historical data loaded")
	return nil
}

// UpdateDaily upserts today's candle with the latest price and recomputes
// indicators. A fresh day starts as a flat candle at the latest price.
func (p *Processor) UpdateDaily(latest float64) {
	today := time.Now().Format("2006-01-02")

	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.candles)
	if n > 0 && p.candles[n-1].day == today {
		p.candles[n-1].close = latest
	} else {
		p.candles = append(p.candles, candle{
			day:   today,
			open:  latest,
			high:  latest,
			low:   latest,
			close: latest,
		})
	}
	p.refreshLocked()

	log.Info().
		Str("day", today).
		Float64("close", latest).
		Float64("ma_200", p.ma200).
		Float64("ma_50", p.ma50).
		Float64("atr", p.atr).
		Msg("Daily data updated")
}

// Refresh recomputes indicators from the current series.
func (p *Processor) Refresh() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshLocked()
}

func (p *Processor) refreshLocked() {
	closes := make([]float64, len(p.candles))
	highs := make([]float64, len(p.candles))
	lows := make([]float64, len(p.candles))
	for i, c := range p.candles {
		closes[i] = c.close
		highs[i] = c.high
		lows[i] = c.low
	}

	p.ma200 = indicators.SMA(closes, maSlowPeriod)
	p.ma50 = indicators.SMA(closes, maFastPeriod)
	p.atr = indicators.ATR(highs, lows, closes, atrPeriod)
	p.ready = len(p.candles) >= maSlowPeriod
}

// LatestSnapshot returns the newest indicator values, or ErrNoData when the
// series is too short for the slow moving average.
func (p *Processor) LatestSnapshot() (Snapshot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.ready {
		return Snapshot{}, ErrNoData
	}
	return Snapshot{
		Close: p.candles[len(p.candles)-1].close,
		MA200: p.ma200,
		MA50:  p.ma50,
		ATR:   p.atr,
	}, nil
}
