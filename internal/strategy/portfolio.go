package strategy

import (
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/deltabot/internal/exchange"
)

// Outcome tags a best-effort liquidation step so the ignored-failure path is
// observable instead of silently swallowed.
type Outcome string

const (
	OutcomeOK            Outcome = "ok"
	OutcomeSkipped       Outcome = "skipped"
	OutcomeFailedIgnored Outcome = "failed-ignored"
)

// LiquidationReport records what the liquidation sequence managed to do.
type LiquidationReport struct {
	CancelOrders  Outcome
	ClosePosition Outcome
	ClosedSize    int64
}

// checkPortfolioStopLoss recomputes portfolio equity from wallet balances and
// liquidates when the drawdown against the initial baseline reaches the
// configured percentage. The first valid equity reading only establishes the
// baseline; the baseline is never reset afterwards, so post-liquidation
// recovery is still measured against the original equity.
func (c *Controller) checkPortfolioStopLoss() {
	balances, err := c.gateway.GetBalances()
	if err != nil {
		log.Error().Err(err).Msg("Balance lookup failed, skipping portfolio stop loss check")
		return
	}

	equity := decimal.Zero
	for _, b := range balances {
		equity = equity.Add(b.Equity())
	}
	if equity.IsZero() {
		log.Warn().Msg("Calculated equity is zero, cannot check portfolio stop loss")
		return
	}

	if !c.baselineSet {
		c.initialEquity = equity
		c.baselineSet = true
		log.Info().Str("initial_equity", equity.StringFixed(2)).Msg("Portfolio baseline set")
		return
	}

	changePct := equity.Sub(c.initialEquity).Div(c.initialEquity).Mul(hundred)
	log.Info().
		Str("initial", c.initialEquity.StringFixed(2)).
		Str("current", equity.StringFixed(2)).
		Str("change_pct", changePct.StringFixed(2)).
		Msg("Portfolio equity check")

	if changePct.LessThanOrEqual(c.stopLossPercent.Neg()) {
		log.Warn().
			Str("change_pct", changePct.StringFixed(2)).
			Msg("🚨 PORTFOLIO STOP LOSS TRIGGERED")
		report := c.liquidate()
		if c.alerter != nil {
			c.alerter.Liquidated(report, changePct)
		}
	}
}

// liquidate cancels all orders for the product and flattens any live
// position with an opposing market order. Every step is best-effort: errors
// are logged and tagged in the report, never retried or escalated. If the
// cancel step fails the close is skipped, so resting stop orders cannot race
// a market close; the next tick triggers liquidation again while equity stays
// below the threshold.
func (c *Controller) liquidate() LiquidationReport {
	report := LiquidationReport{CancelOrders: OutcomeOK, ClosePosition: OutcomeSkipped}
	log.Warn().Msg("Liquidating: cancelling orders, then closing position")

	if err := c.gateway.CancelAllOrders(c.productID); err != nil {
		log.Error().Err(err).Msg("Cancel-all failed during liquidation")
		report.CancelOrders = OutcomeFailedIgnored
		return report
	}

	pos, err := c.gateway.GetPosition(c.productID)
	if err != nil {
		log.Error().Err(err).Msg("Position lookup failed during liquidation")
		report.ClosePosition = OutcomeFailedIgnored
		return report
	}
	if pos == nil || pos.Size.IsZero() {
		log.Info().Msg("No position found or size is zero, nothing to close")
		c.position = nil
		return report
	}

	size := pos.Size.Abs().IntPart()
	side := SideSell
	if pos.Size.Sign() < 0 {
		side = SideBuy
	}
	log.Warn().Str("side", string(side)).Int64("size", size).Msg("Closing position")

	if _, err := c.gateway.PlaceOrder(exchange.OrderRequest{
		ProductID: c.productID,
		Size:      size,
		Side:      string(side),
		OrderType: exchange.OrderTypeMarket,
	}); err != nil {
		log.Error().Err(err).Msg("Position close order failed during liquidation")
		report.ClosePosition = OutcomeFailedIgnored
		return report
	}

	report.ClosePosition = OutcomeOK
	report.ClosedSize = size
	c.position = nil
	log.Warn().Msg("Portfolio liquidation actions complete")
	return report
}
