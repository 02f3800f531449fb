package strategy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func TestDetermineTrend(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		ma200 float64
		want  Trend
	}{
		{"above slow MA", 50000, 49000, Uptrend},
		{"below slow MA", 48000, 49000, Downtrend},
		{"exactly on slow MA", 49000, 49000, Neutral},
		{"marginally above", 49000.01, 49000, Uptrend},
		{"marginally below", 48999.99, 49000, Downtrend},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetermineTrend(d(tt.price), d(tt.ma200)))
		})
	}
}

func TestCheckEntry(t *testing.T) {
	tests := []struct {
		name     string
		price    float64
		trend    Trend
		ma200    float64
		ma50     float64
		wantSide Side
		wantOK   bool
	}{
		// Pullback band scenarios from the BTC example: MA200=49000, MA50=49500.
		{"uptrend above fast MA is no pullback", 50000, Uptrend, 49000, 49500, "", false},
		{"uptrend pullback inside band buys", 49400, Uptrend, 49000, 49500, SideBuy, true},
		{"downtrend rally inside band sells", 49600, Downtrend, 50000, 49500, SideSell, true},
		{"downtrend below fast MA is no rally", 49000, Downtrend, 50000, 49500, "", false},
		{"neutral never enters", 49400, Neutral, 49000, 49500, "", false},
		{"uptrend at band edge does not trigger", 49500, Uptrend, 49000, 49500, "", false},
		{"degenerate band when MAs coincide", 49400, Uptrend, 49500, 49500, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			side, ok := CheckEntry(d(tt.price), tt.trend, d(tt.ma200), d(tt.ma50))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantSide, side)
		})
	}
}

func TestCheckEntryNeverFiresOnNeutral(t *testing.T) {
	for _, price := range []float64{100, 49000, 49500, 100000} {
		_, ok := CheckEntry(d(price), Neutral, d(49000), d(49500))
		assert.False(t, ok, "price %v", price)
	}
}
