package strategy

import "github.com/shopspring/decimal"

// Trend is the market regime relative to the slow moving average.
type Trend string

const (
	Uptrend   Trend = "uptrend"
	Downtrend Trend = "downtrend"
	Neutral   Trend = "neutral"
)

// Side is an order direction.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// DetermineTrend classifies the market by price against the 200-day average.
func DetermineTrend(price, ma200 decimal.Decimal) Trend {
	switch {
	case price.GreaterThan(ma200):
		return Uptrend
	case price.LessThan(ma200):
		return Downtrend
	default:
		return Neutral
	}
}

// CheckEntry evaluates the pullback entry band: buy dips toward MA50 in an
// uptrend, sell rallies toward MA50 in a downtrend. When MA50 and MA200
// coincide the band is empty and no entry triggers.
func CheckEntry(price decimal.Decimal, trend Trend, ma200, ma50 decimal.Decimal) (Side, bool) {
	switch trend {
	case Uptrend:
		if price.LessThan(ma50) && price.GreaterThan(ma200) {
			return SideBuy, true
		}
	case Downtrend:
		if price.GreaterThan(ma50) && price.LessThan(ma200) {
			return SideSell, true
		}
	}
	return "", false
}
