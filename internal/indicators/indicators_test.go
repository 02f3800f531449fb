package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	assert.InDelta(t, 4.0, SMA(values, 3), 1e-9) // (3+4+5)/3
	assert.InDelta(t, 3.0, SMA(values, 5), 1e-9)
	assert.Equal(t, 0.0, SMA(values, 6), "not enough data")
	assert.Equal(t, 0.0, SMA(values, 0))
	assert.Equal(t, 0.0, SMA(nil, 3))
}

func TestTrueRanges(t *testing.T) {
	highs := []float64{10, 12, 11}
	lows := []float64{8, 9, 7}
	closes := []float64{9, 11, 8}

	trs := TrueRanges(highs, lows, closes)
	assert.Len(t, trs, 2)
	// Bar 1: max(12-9, |12-9|, |9-9|) = 3.
	assert.InDelta(t, 3.0, trs[0], 1e-9)
	// Bar 2: max(11-7, |11-11|, |7-11|) = 4.
	assert.InDelta(t, 4.0, trs[1], 1e-9)
}

func TestTrueRangesGapUp(t *testing.T) {
	// Gap above the prior close: the high-to-prior-close leg dominates.
	trs := TrueRanges([]float64{10, 20}, []float64{9, 19}, []float64{9.5, 19.5})
	assert.Len(t, trs, 1)
	assert.InDelta(t, 10.5, trs[0], 1e-9) // |20 - 9.5|
}

func TestTrueRangesTooShort(t *testing.T) {
	assert.Nil(t, TrueRanges([]float64{10}, []float64{8}, []float64{9}))
	assert.Nil(t, TrueRanges(nil, nil, nil))
}

func TestATR(t *testing.T) {
	// Constant 1-point daily range with no gaps: every true range is 1.
	n := 20
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := range highs {
		base := 100 + float64(i)
		highs[i] = base + 1
		lows[i] = base
		closes[i] = base + 1
	}

	assert.InDelta(t, 1.0, ATR(highs, lows, closes, 14), 1e-9)
	assert.Equal(t, 0.0, ATR(highs[:14], lows[:14], closes[:14], 14), "needs period+1 bars")
}
