// Package risk sizes positions with a fractional Kelly criterion and the
// exchange's tiered initial-margin schedule.
package risk

import (
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ErrNoEdge is returned when the Kelly fraction is non-positive or volatility
// is zero. No trade should be sized from such inputs.
var ErrNoEdge = errors.New("risk: no favorable edge to size")

var (
	one             = decimal.NewFromInt(1)
	two             = decimal.NewFromInt(2)
	marginThreshold = decimal.NewFromInt(100000)
	baseMarginRate  = decimal.NewFromFloat(0.005)
	marginSlope     = decimal.NewFromFloat(2.5e-8)
)

// Sizing is the result of sizing one trade.
type Sizing struct {
	PositionSize     int64
	LotSize          decimal.Decimal
	StopLossDistance decimal.Decimal
	PositionValue    decimal.Decimal
	MarginRequired   decimal.Decimal
}

// Engine computes position sizes. It is stateless and safe for concurrent use.
type Engine struct {
	winProbability  decimal.Decimal
	riskRewardRatio decimal.Decimal
	kellyFraction   decimal.Decimal
}

// NewEngine creates a sizing engine from strategy parameters.
func NewEngine(winProbability, riskRewardRatio, kellyFraction decimal.Decimal) *Engine {
	return &Engine{
		winProbability:  winProbability,
		riskRewardRatio: riskRewardRatio,
		kellyFraction:   kellyFraction,
	}
}

// Kelly returns the scaled Kelly fraction (b·p − q) / b · kellyFraction.
// It may be negative when the edge is unfavorable.
func (e *Engine) Kelly() decimal.Decimal {
	p := e.winProbability
	q := one.Sub(p)
	b := e.riskRewardRatio
	return b.Mul(p).Sub(q).Div(b).Mul(e.kellyFraction)
}

// Size computes the position size for one trade.
//
// The stop distance is 2×ATR. The raw Kelly size is floored to whole lots
// with a 1-lot minimum, then checked against the tiered initial margin: when
// required margin exceeds the bankroll the size is reduced in a single pass
// (the margin rate is not re-derived at the reduced size).
func (e *Engine) Size(price, atr, bankroll, lotSize decimal.Decimal) (*Sizing, error) {
	kelly := e.Kelly()
	stopDistance := two.Mul(atr)

	if kelly.Sign() <= 0 || !stopDistance.IsPositive() {
		return nil, ErrNoEdge
	}
	if !price.IsPositive() || !bankroll.IsPositive() || !lotSize.IsPositive() {
		return nil, ErrNoEdge
	}

	riskPerTrade := kelly.Mul(bankroll)
	size := riskPerTrade.Div(lotSize.Mul(stopDistance).Mul(price)).Floor().IntPart()
	if size < 1 {
		size = 1
	}

	positionValue := decimal.NewFromInt(size).Mul(lotSize).Mul(price)
	marginRate := baseMarginRate
	if positionValue.GreaterThan(marginThreshold) {
		marginRate = baseMarginRate.Add(marginSlope.Mul(positionValue.Sub(marginThreshold)))
	}
	marginRequired := positionValue.Mul(marginRate)

	if marginRequired.GreaterThan(bankroll) {
		reduced := bankroll.Div(marginRate.Mul(lotSize).Mul(price)).Floor().IntPart()
		if reduced < 1 {
			reduced = 1
		}
		log.Warn().
			Int64("from", size).
			Int64("to", reduced).
			Str("margin_required", marginRequired.StringFixed(2)).
			Str("bankroll", bankroll.StringFixed(2)).
			Msg("Position size reduced due to margin constraints")
		size = reduced
		positionValue = decimal.NewFromInt(size).Mul(lotSize).Mul(price)
	}

	return &Sizing{
		PositionSize:     size,
		LotSize:          lotSize,
		StopLossDistance: stopDistance,
		PositionValue:    positionValue,
		MarginRequired:   marginRequired,
	}, nil
}
