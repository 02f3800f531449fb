package marketdata

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/deltabot/internal/exchange"
)

type fakeSource struct {
	candles []exchange.Candle
	err     error

	gotSymbol     string
	gotResolution string
}

func (s *fakeSource) GetCandles(symbol, resolution string, start, end int64) ([]exchange.Candle, error) {
	s.gotSymbol = symbol
	s.gotResolution = resolution
	return s.candles, s.err
}

// seriesEndingAt builds n daily candles with close = 1..n, ending on the day
// of `last`. High/low/close coincide so every true range is the 1-point
// day-over-day move.
func seriesEndingAt(n int, last time.Time) []exchange.Candle {
	out := make([]exchange.Candle, 0, n)
	for i := 0; i < n; i++ {
		v := decimal.NewFromInt(int64(i + 1))
		out = append(out, exchange.Candle{
			Time:  last.AddDate(0, 0, -(n - 1 - i)).Unix(),
			Open:  v,
			High:  v,
			Low:   v,
			Close: v,
		})
	}
	return out
}

func TestFetchHistoryComputesIndicators(t *testing.T) {
	src := &fakeSource{candles: seriesEndingAt(210, time.Now())}
	p := NewProcessor(src, "BTCUSD", "1d")

	require.NoError(t, p.FetchHistory(365))
	assert.Equal(t, "BTCUSD", src.gotSymbol)
	assert.Equal(t, "1d", src.gotResolution)

	snap, err := p.LatestSnapshot()
	require.NoError(t, err)
	assert.InDelta(t, 210.0, snap.Close, 1e-9)
	assert.InDelta(t, 110.5, snap.MA200, 1e-9) // mean of 11..210
	assert.InDelta(t, 185.5, snap.MA50, 1e-9)  // mean of 161..210
	assert.InDelta(t, 1.0, snap.ATR, 1e-9)
}

func TestFetchHistoryPropagatesSourceError(t *testing.T) {
	src := &fakeSource{err: errors.New("api down")}
	p := NewProcessor(src, "BTCUSD", "1d")

	err := p.FetchHistory(365)
	assert.ErrorContains(t, err, "api down")
}

func TestLatestSnapshotRequiresSlowMAWindow(t *testing.T) {
	src := &fakeSource{candles: seriesEndingAt(100, time.Now())}
	p := NewProcessor(src, "BTCUSD", "1d")
	require.NoError(t, p.FetchHistory(365))

	_, err := p.LatestSnapshot()
	assert.ErrorIs(t, err, ErrNoData)
}

func TestUpdateDailyUpsertsSameDay(t *testing.T) {
	src := &fakeSource{candles: seriesEndingAt(210, time.Now())}
	p := NewProcessor(src, "BTCUSD", "1d")
	require.NoError(t, p.FetchHistory(365))

	p.UpdateDaily(500)
	p.UpdateDaily(600)

	snap, err := p.LatestSnapshot()
	require.NoError(t, err)
	assert.InDelta(t, 600.0, snap.Close, 1e-9)
	assert.Len(t, p.candles, 210, "same-day updates must not grow the series")
}

func TestUpdateDailyAppendsNewDay(t *testing.T) {
	yesterday := time.Now().AddDate(0, 0, -1)
	src := &fakeSource{candles: seriesEndingAt(210, yesterday)}
	p := NewProcessor(src, "BTCUSD", "1d")
	require.NoError(t, p.FetchHistory(365))

	p.UpdateDaily(500)

	assert.Len(t, p.candles, 211)
	snap, err := p.LatestSnapshot()
	require.NoError(t, err)
	assert.InDelta(t, 500.0, snap.Close, 1e-9)
}

func TestUpdateDailyOnEmptySeriesStartsOne(t *testing.T) {
	p := NewProcessor(&fakeSource{}, "BTCUSD", "1d")

	p.UpdateDaily(42)

	assert.Len(t, p.candles, 1)
	_, err := p.LatestSnapshot()
	assert.ErrorIs(t, err, ErrNoData)
}
