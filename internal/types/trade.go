package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is the immutable record of one match between a buy and a sell order.
// Trades are only ever appended, never edited.
type Trade struct {
	ID          string          `json:"trade_id"`
	Pair        string          `json:"pair"`
	BuyOrderID  uint64          `json:"buy_order_id"`
	SellOrderID uint64          `json:"sell_order_id"`
	Price       decimal.Decimal `json:"price"`
	Quantity    decimal.Decimal `json:"quantity"`
	ExecutedAt  time.Time       `json:"executed_at"`
}
