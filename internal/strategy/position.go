package strategy

import (
	"time"

	"github.com/shopspring/decimal"
)

// ActivePosition is the controller's cache of the bracket it placed. The
// exchange's view of orders and position is the source of truth; this record
// is advisory and re-validated against a fresh position query before any
// mutating action.
type ActivePosition struct {
	Side              Side
	EntryPrice        decimal.Decimal
	Size              int64
	StopLossPrice     decimal.Decimal
	TakeProfitPrice   decimal.Decimal
	EntryOrderID      int64
	StopLossOrderID   int64
	TakeProfitOrderID int64
	EntryTime         time.Time
}
