package exchange

import "github.com/shopspring/decimal"

// Order type and time-in-force values accepted by the orders endpoint.
const (
	OrderTypeLimit  = "limit_order"
	OrderTypeMarket = "market_order"
	TimeInForceGTC  = "gtc"
)

// Ticker is one entry from the tickers endpoint.
type Ticker struct {
	Symbol    string          `json:"symbol"`
	MarkPrice decimal.Decimal `json:"mark_price"`
	Close     decimal.Decimal `json:"close"`
}

// Price returns the mark price, falling back to the last close when the
// exchange omits it.
func (t Ticker) Price() decimal.Decimal {
	if t.MarkPrice.IsPositive() {
		return t.MarkPrice
	}
	return t.Close
}

// Product holds the instrument metadata the sizing logic needs.
type Product struct {
	ID      int             `json:"id"`
	Symbol  string          `json:"symbol"`
	LotSize decimal.Decimal `json:"lot_size"`
}

// Balance is one wallet entry. USDValue is nil when the exchange does not
// report a USD conversion for the asset.
type Balance struct {
	Asset    string           `json:"asset_symbol"`
	USDValue *decimal.Decimal `json:"usd_value"`
	Balance  decimal.Decimal  `json:"balance"`
}

// Equity returns the USD value when reported, otherwise the raw balance.
func (b Balance) Equity() decimal.Decimal {
	if b.USDValue != nil {
		return *b.USDValue
	}
	return b.Balance
}

// Position is an open margined position. Size is in contracts and negative
// for shorts.
type Position struct {
	ProductID  int             `json:"product_id"`
	Symbol     string          `json:"symbol"`
	Size       decimal.Decimal `json:"size"`
	EntryPrice decimal.Decimal `json:"entry_price"`
}

// Order is the exchange's view of a placed order.
type Order struct {
	ID    int64  `json:"id"`
	State string `json:"state"`
}

// OrderRequest is the payload for order placement.
type OrderRequest struct {
	ProductID     int    `json:"product_id"`
	Size          int64  `json:"size"`
	Side          string `json:"side"`
	OrderType     string `json:"order_type"`
	LimitPrice    string `json:"limit_price,omitempty"`
	StopPrice     string `json:"stop_price,omitempty"`
	StopOrderType string `json:"stop_order_type,omitempty"`
	TimeInForce   string `json:"time_in_force,omitempty"`
}

// Candle is one OHLCV bar from the history endpoint.
type Candle struct {
	Time   int64           `json:"time"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}
