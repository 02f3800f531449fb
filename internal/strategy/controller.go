// Package strategy holds the position-and-risk management core: trend
// classification, entry evaluation, the trailing stop, and the portfolio
// stop-loss state machine.
package strategy

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/deltabot/internal/exchange"
	"github.com/web3guy0/deltabot/internal/marketdata"
	"github.com/web3guy0/deltabot/internal/risk"
)

var (
	one     = decimal.NewFromInt(1)
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// Gateway is the slice of the exchange client the controller needs.
type Gateway interface {
	GetPosition(productID int) (*exchange.Position, error)
	GetBalances() ([]exchange.Balance, error)
	GetProduct(productID int) (exchange.Product, error)
	PlaceOrder(req exchange.OrderRequest) (exchange.Order, error)
	PlaceStopOrder(req exchange.OrderRequest) (exchange.Order, error)
	CancelOrder(orderID int64) error
	CancelAllOrders(productID int) error
}

// IndicatorFeed supplies indicator snapshots and accepts daily refreshes.
type IndicatorFeed interface {
	LatestSnapshot() (marketdata.Snapshot, error)
	UpdateDaily(latest float64)
}

// BracketPlacer places the entry + stop-loss + take-profit order group.
type BracketPlacer interface {
	PlaceBracket(side Side, sizing *risk.Sizing, price decimal.Decimal) (*ActivePosition, error)
}

// Alerter pushes operator notifications. A nil Alerter disables alerts.
type Alerter interface {
	EntryPlaced(pos *ActivePosition)
	StopMoved(oldStop, newStop decimal.Decimal)
	Liquidated(report LiquidationReport, changePct decimal.Decimal)
}

// Controller drives one full decision cycle per tick for a single product.
// It exclusively owns the ActivePosition cache and the portfolio baseline;
// a mutex serializes ticks in case a slow call overruns the schedule.
type Controller struct {
	gateway  Gateway
	feed     IndicatorFeed
	brackets BracketPlacer
	sizer    *risk.Engine
	alerter  Alerter

	productID       int
	bankroll        decimal.Decimal
	stopLossPercent decimal.Decimal

	mu            sync.Mutex
	position      *ActivePosition
	initialEquity decimal.Decimal
	baselineSet   bool
}

// NewController wires the controller to its collaborators.
func NewController(gateway Gateway, feed IndicatorFeed, brackets BracketPlacer, sizer *risk.Engine,
	productID int, bankroll, stopLossPercent decimal.Decimal) *Controller {
	return &Controller{
		gateway:         gateway,
		feed:            feed,
		brackets:        brackets,
		sizer:           sizer,
		productID:       productID,
		bankroll:        bankroll,
		stopLossPercent: stopLossPercent,
	}
}

// SetAlerter attaches an optional notification sink.
func (c *Controller) SetAlerter(a Alerter) { c.alerter = a }

// EvaluateTick runs one decision cycle: manage the open position or look for
// an entry, then check the portfolio stop loss. Failures are contained to the
// tick; the next scheduled tick starts from scratch.
func (c *Controller) EvaluateTick(price decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.manageTrade(price)
	c.checkPortfolioStopLoss()
}

// RunDailyUpdate folds the latest price into the daily candle series.
func (c *Controller) RunDailyUpdate(latest float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.feed.UpdateDaily(latest)
}

func (c *Controller) manageTrade(price decimal.Decimal) {
	pos, err := c.gateway.GetPosition(c.productID)
	if err != nil {
		log.Error().Err(err).Msg("Position lookup failed, skipping trade management this tick")
		return
	}

	live := pos != nil && !pos.Size.IsZero()
	if live {
		if c.position == nil {
			log.Warn().
				Str("size", pos.Size.String()).
				Msg("Live position on exchange that this controller did not open, leaving it alone")
			return
		}
		c.updateTrailingStop(price)
		return
	}

	if c.position != nil {
		// Filled stop, filled take-profit, or an external close. Trust the
		// exchange and drop the stale cache.
		log.Warn().Msg("Cached position no longer live on exchange, clearing")
		c.position = nil
	}
	c.tryEnter(price)
}

func (c *Controller) tryEnter(price decimal.Decimal) {
	snap, err := c.feed.LatestSnapshot()
	if err != nil {
		log.Warn().Err(err).Msg("Indicators unavailable, skipping entry check")
		return
	}

	ma200 := decimal.NewFromFloat(snap.MA200)
	ma50 := decimal.NewFromFloat(snap.MA50)
	trend := DetermineTrend(price, ma200)

	log.Info().
		Str("trend", string(trend)).
		Str("price", price.String()).
		Float64("ma_200", snap.MA200).
		Float64("ma_50", snap.MA50).
		Msg("Trend check")

	side, ok := CheckEntry(price, trend, ma200, ma50)
	if !ok {
		return
	}
	log.Info().Str("side", string(side)).Msg("🎯 Entry conditions met")

	product, err := c.gateway.GetProduct(c.productID)
	if err != nil {
		log.Error().Err(err).Msg("Product lookup failed, entry skipped")
		return
	}
	lotSize := product.LotSize
	if !lotSize.IsPositive() {
		lotSize = one
	}

	sizing, err := c.sizer.Size(price, decimal.NewFromFloat(snap.ATR), c.bankroll, lotSize)
	if err != nil {
		if errors.Is(err, risk.ErrNoEdge) {
			log.Warn().Err(err).Msg("Refusing to size trade")
		} else {
			log.Error().Err(err).Msg("Sizing failed")
		}
		return
	}
	log.Info().
		Int64("size", sizing.PositionSize).
		Str("lot_size", sizing.LotSize.String()).
		Str("position_value", sizing.PositionValue.StringFixed(2)).
		Str("margin_required", sizing.MarginRequired.StringFixed(2)).
		Msg("Position sized")

	pos, err := c.brackets.PlaceBracket(side, sizing, price)
	if err != nil {
		log.Error().Err(err).Msg("Entry not established")
		return
	}
	c.position = pos
	if c.alerter != nil {
		c.alerter.EntryPlaced(pos)
	}
}

// updateTrailingStop replaces the stop-loss order when the recomputed stop is
// strictly more favorable. The stop only ever tightens; on any failure the
// update is abandoned until the next tick.
func (c *Controller) updateTrailingStop(price decimal.Decimal) {
	snap, err := c.feed.LatestSnapshot()
	if err != nil {
		log.Warn().Err(err).Msg("Indicators unavailable, trailing stop not updated")
		return
	}
	stopDistance := decimal.NewFromFloat(snap.ATR).Mul(two)

	var newStop decimal.Decimal
	var better bool
	if c.position.Side == SideBuy {
		newStop = price.Sub(stopDistance)
		better = newStop.GreaterThan(c.position.StopLossPrice)
	} else {
		newStop = price.Add(stopDistance)
		better = newStop.LessThan(c.position.StopLossPrice)
	}
	if !better {
		return
	}

	log.Info().
		Str("from", c.position.StopLossPrice.String()).
		Str("to", newStop.String()).
		Msg("Updating trailing stop")

	if err := c.gateway.CancelOrder(c.position.StopLossOrderID); err != nil {
		log.Warn().Err(err).Msg("Could not cancel current stop order, abandoning update this tick")
		return
	}
	order, err := c.gateway.PlaceStopOrder(exchange.OrderRequest{
		ProductID:   c.productID,
		Size:        c.position.Size,
		Side:        string(c.position.Side.Opposite()),
		OrderType:   exchange.OrderTypeMarket,
		StopPrice:   newStop.String(),
		TimeInForce: exchange.TimeInForceGTC,
	})
	if err != nil {
		// The old stop is already cancelled; the next tick recomputes and
		// re-places from scratch.
		log.Error().Err(err).Msg("Could not place replacement stop order, abandoning update this tick")
		return
	}

	oldStop := c.position.StopLossPrice
	c.position.StopLossPrice = newStop
	c.position.StopLossOrderID = order.ID
	if c.alerter != nil {
		c.alerter.StopMoved(oldStop, newStop)
	}
}
