// Package execution sequences bracket order placement: a limit entry plus
// stop-loss and take-profit legs, with best-effort rollback when any leg
// fails.
package execution

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/deltabot/internal/exchange"
	"github.com/web3guy0/deltabot/internal/risk"
	"github.com/web3guy0/deltabot/internal/strategy"
)

// OrderPlacer is the slice of the exchange client the orchestrator needs.
type OrderPlacer interface {
	PlaceOrder(req exchange.OrderRequest) (exchange.Order, error)
	PlaceStopOrder(req exchange.OrderRequest) (exchange.Order, error)
	CancelAllOrders(productID int) error
}

// Orchestrator places entry brackets for one product.
type Orchestrator struct {
	gateway    OrderPlacer
	productID  int
	riskReward decimal.Decimal
}

// NewOrchestrator creates a bracket orchestrator.
func NewOrchestrator(gateway OrderPlacer, productID int, riskReward decimal.Decimal) *Orchestrator {
	return &Orchestrator{
		gateway:    gateway,
		productID:  productID,
		riskReward: riskReward,
	}
}

// PlaceBracket places the entry limit order and both protective legs. The
// stop sits one stop-distance from the entry and the take-profit sits
// riskReward stop-distances on the other side; directions flip for sells.
//
// If any placement fails, all open orders for the product are cancelled
// best-effort and the entry is reported as not established. An entry that
// already filled is NOT closed here; that exposure is left to the portfolio
// stop loss.
func (o *Orchestrator) PlaceBracket(side strategy.Side, sizing *risk.Sizing, price decimal.Decimal) (*strategy.ActivePosition, error) {
	stopDistance := sizing.StopLossDistance

	var stopLossPrice, takeProfitPrice decimal.Decimal
	if side == strategy.SideBuy {
		stopLossPrice = price.Sub(stopDistance)
		takeProfitPrice = price.Add(o.riskReward.Mul(stopDistance))
	} else {
		stopLossPrice = price.Add(stopDistance)
		takeProfitPrice = price.Sub(o.riskReward.Mul(stopDistance))
	}

	log.Info().
		Str("side", string(side)).
		Str("entry", price.String()).
		Str("stop_loss", stopLossPrice.String()).
		Str("take_profit", takeProfitPrice.String()).
		Int64("size", sizing.PositionSize).
		Msg("Placing bracket")

	entry, err := o.gateway.PlaceOrder(exchange.OrderRequest{
		ProductID:   o.productID,
		Size:        sizing.PositionSize,
		Side:        string(side),
		OrderType:   exchange.OrderTypeLimit,
		LimitPrice:  price.String(),
		TimeInForce: exchange.TimeInForceGTC,
	})
	if err != nil {
		return nil, o.rollback("entry order", err)
	}

	exitSide := string(side.Opposite())
	stopLoss, err := o.gateway.PlaceStopOrder(exchange.OrderRequest{
		ProductID:   o.productID,
		Size:        sizing.PositionSize,
		Side:        exitSide,
		OrderType:   exchange.OrderTypeMarket,
		StopPrice:   stopLossPrice.String(),
		TimeInForce: exchange.TimeInForceGTC,
	})
	if err != nil {
		return nil, o.rollback("stop-loss order", err)
	}

	takeProfit, err := o.gateway.PlaceStopOrder(exchange.OrderRequest{
		ProductID:   o.productID,
		Size:        sizing.PositionSize,
		Side:        exitSide,
		OrderType:   exchange.OrderTypeMarket,
		StopPrice:   takeProfitPrice.String(),
		TimeInForce: exchange.TimeInForceGTC,
	})
	if err != nil {
		return nil, o.rollback("take-profit order", err)
	}

	return &strategy.ActivePosition{
		Side:              side,
		EntryPrice:        price,
		Size:              sizing.PositionSize,
		StopLossPrice:     stopLossPrice,
		TakeProfitPrice:   takeProfitPrice,
		EntryOrderID:      entry.ID,
		StopLossOrderID:   stopLoss.ID,
		TakeProfitOrderID: takeProfit.ID,
		EntryTime:         time.Now(),
	}, nil
}

// rollback cancels whatever siblings were already placed. Cancellation
// failure is logged and swallowed; the original placement error is what the
// caller sees.
func (o *Orchestrator) rollback(leg string, cause error) error {
	log.Error().Err(cause).Str("leg", leg).Msg("Bracket placement failed, cancelling open orders")
	if err := o.gateway.CancelAllOrders(o.productID); err != nil {
		log.Warn().Err(err).Msg("Rollback cancel-all failed, orders may remain on the exchange")
	}
	return fmt.Errorf("place bracket: %s: %w", leg, cause)
}
