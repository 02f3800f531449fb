package execution

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/deltabot/internal/exchange"
	"github.com/web3guy0/deltabot/internal/risk"
	"github.com/web3guy0/deltabot/internal/strategy"
)

type fakePlacer struct {
	orders     []exchange.OrderRequest
	stopOrders []exchange.OrderRequest
	cancelAlls []int

	orderErr     error
	stopErrAfter int // fail the Nth stop order (1-based), 0 = never
	cancelAllErr error
	nextID       int64
}

func (p *fakePlacer) PlaceOrder(req exchange.OrderRequest) (exchange.Order, error) {
	if p.orderErr != nil {
		return exchange.Order{}, p.orderErr
	}
	p.orders = append(p.orders, req)
	p.nextID++
	return exchange.Order{ID: p.nextID, State: "open"}, nil
}

func (p *fakePlacer) PlaceStopOrder(req exchange.OrderRequest) (exchange.Order, error) {
	if p.stopErrAfter > 0 && len(p.stopOrders)+1 == p.stopErrAfter {
		return exchange.Order{}, errors.New("stop rejected")
	}
	p.stopOrders = append(p.stopOrders, req)
	p.nextID++
	return exchange.Order{ID: p.nextID, State: "open"}, nil
}

func (p *fakePlacer) CancelAllOrders(productID int) error {
	p.cancelAlls = append(p.cancelAlls, productID)
	return p.cancelAllErr
}

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func testSizing() *risk.Sizing {
	return &risk.Sizing{
		PositionSize:     4,
		LotSize:          d(0.001),
		StopLossDistance: d(1000),
		PositionValue:    d(197.6),
		MarginRequired:   d(0.988),
	}
}

func TestPlaceBracketBuy(t *testing.T) {
	gw := &fakePlacer{}
	o := NewOrchestrator(gw, 27, d(3))

	pos, err := o.PlaceBracket(strategy.SideBuy, testSizing(), d(49400))
	require.NoError(t, err)

	require.Len(t, gw.orders, 1)
	entry := gw.orders[0]
	assert.Equal(t, 27, entry.ProductID)
	assert.Equal(t, int64(4), entry.Size)
	assert.Equal(t, "buy", entry.Side)
	assert.Equal(t, exchange.OrderTypeLimit, entry.OrderType)
	assert.Equal(t, "49400", entry.LimitPrice)
	assert.Equal(t, exchange.TimeInForceGTC, entry.TimeInForce)

	require.Len(t, gw.stopOrders, 2)
	sl, tp := gw.stopOrders[0], gw.stopOrders[1]
	assert.Equal(t, "sell", sl.Side)
	assert.Equal(t, exchange.OrderTypeMarket, sl.OrderType)
	assert.Equal(t, "48400", sl.StopPrice) // 49400 - 1000
	assert.Equal(t, "sell", tp.Side)
	assert.Equal(t, "52400", tp.StopPrice) // 49400 + 3*1000

	assert.Equal(t, strategy.SideBuy, pos.Side)
	assert.True(t, pos.EntryPrice.Equal(d(49400)))
	assert.True(t, pos.StopLossPrice.Equal(d(48400)))
	assert.True(t, pos.TakeProfitPrice.Equal(d(52400)))
	assert.Equal(t, int64(4), pos.Size)
	assert.Equal(t, int64(1), pos.EntryOrderID)
	assert.Equal(t, int64(2), pos.StopLossOrderID)
	assert.Equal(t, int64(3), pos.TakeProfitOrderID)
	assert.False(t, pos.EntryTime.IsZero())
	assert.Empty(t, gw.cancelAlls)
}

func TestPlaceBracketSellFlipsLegs(t *testing.T) {
	gw := &fakePlacer{}
	o := NewOrchestrator(gw, 27, d(3))

	pos, err := o.PlaceBracket(strategy.SideSell, testSizing(), d(49600))
	require.NoError(t, err)

	assert.Equal(t, "sell", gw.orders[0].Side)
	require.Len(t, gw.stopOrders, 2)
	assert.Equal(t, "buy", gw.stopOrders[0].Side)
	assert.Equal(t, "50600", gw.stopOrders[0].StopPrice) // 49600 + 1000
	assert.Equal(t, "46600", gw.stopOrders[1].StopPrice) // 49600 - 3*1000
	assert.True(t, pos.StopLossPrice.Equal(d(50600)))
	assert.True(t, pos.TakeProfitPrice.Equal(d(46600)))
}

func TestPlaceBracketEntryFailure(t *testing.T) {
	gw := &fakePlacer{orderErr: errors.New("rejected")}
	o := NewOrchestrator(gw, 27, d(3))

	pos, err := o.PlaceBracket(strategy.SideBuy, testSizing(), d(49400))
	assert.Nil(t, pos)
	assert.ErrorContains(t, err, "entry order")
	assert.Equal(t, []int{27}, gw.cancelAlls)
}

func TestPlaceBracketStopLossFailureRollsBack(t *testing.T) {
	gw := &fakePlacer{stopErrAfter: 1}
	o := NewOrchestrator(gw, 27, d(3))

	pos, err := o.PlaceBracket(strategy.SideBuy, testSizing(), d(49400))
	assert.Nil(t, pos)
	assert.ErrorContains(t, err, "stop-loss order")
	assert.Len(t, gw.orders, 1, "entry went out before the failure")
	assert.Equal(t, []int{27}, gw.cancelAlls)
}

func TestPlaceBracketTakeProfitFailureRollsBack(t *testing.T) {
	gw := &fakePlacer{stopErrAfter: 2}
	o := NewOrchestrator(gw, 27, d(3))

	pos, err := o.PlaceBracket(strategy.SideBuy, testSizing(), d(49400))
	assert.Nil(t, pos)
	assert.ErrorContains(t, err, "take-profit order")
	assert.Len(t, gw.stopOrders, 1)
	assert.Equal(t, []int{27}, gw.cancelAlls)
}

func TestRollbackSwallowsCancelFailure(t *testing.T) {
	gw := &fakePlacer{orderErr: errors.New("rejected"), cancelAllErr: errors.New("also down")}
	o := NewOrchestrator(gw, 27, d(3))

	_, err := o.PlaceBracket(strategy.SideBuy, testSizing(), d(49400))
	// The caller sees the placement error, not the cancel error.
	assert.ErrorContains(t, err, "rejected")
	assert.NotContains(t, err.Error(), "also down")
}
