package events

import (
	"github.com/shopspring/decimal"

	"github.com/coinflow/matching-engine/internal/types"
)

// Type discriminates outbound event variants.
type Type string

const (
	TypeOrderAccepted        Type = "ORDER_ACCEPTED"
	TypeOrderRestingInBook   Type = "ORDER_RESTING_IN_BOOK"
	TypeOrderPartiallyFilled Type = "ORDER_PARTIALLY_FILLED"
	TypeOrderFilled          Type = "ORDER_FILLED"
	TypeOrderCancelled       Type = "ORDER_CANCELLED"
	TypeTradesExecuted       Type = "TRADES_EXECUTED"
	TypeSettlementFailed     Type = "SETTLEMENT_FAILED"
)

// Event is the sealed set of domain events the engine emits. Every payload
// carries enough data for a collaborator to persist or forward state without
// querying the engine back.
type Event interface {
	EventType() Type
	PairSymbol() string
}

// OrderAccepted: the order passed validation and entered matching.
type OrderAccepted struct {
	Order types.Order
}

func (e OrderAccepted) EventType() Type    { return TypeOrderAccepted }
func (e OrderAccepted) PairSymbol() string { return e.Order.Pair }

// OrderRestingInBook: a limit order (or its remainder) was added to the book.
type OrderRestingInBook struct {
	Order types.Order
}

func (e OrderRestingInBook) EventType() Type    { return TypeOrderRestingInBook }
func (e OrderRestingInBook) PairSymbol() string { return e.Order.Pair }

// OrderPartiallyFilled: the order traded but still has remaining quantity.
type OrderPartiallyFilled struct {
	Order  types.Order
	Trades []*types.Trade
}

func (e OrderPartiallyFilled) EventType() Type    { return TypeOrderPartiallyFilled }
func (e OrderPartiallyFilled) PairSymbol() string { return e.Order.Pair }

// OrderFilled: the order reached its terminal Filled state.
type OrderFilled struct {
	Order  types.Order
	Trades []*types.Trade
}

func (e OrderFilled) EventType() Type    { return TypeOrderFilled }
func (e OrderFilled) PairSymbol() string { return e.Order.Pair }

// OrderCancelled: the order reached its terminal Cancelled state, either by
// request or as the unfilled remainder of a market order.
type OrderCancelled struct {
	OrderID   uint64
	Pair      string
	Remainder decimal.Decimal
}

func (e OrderCancelled) EventType() Type    { return TypeOrderCancelled }
func (e OrderCancelled) PairSymbol() string { return e.Pair }

// TradesExecuted: one matching pass produced these trades, in execution order.
type TradesExecuted struct {
	Pair   string
	Trades []*types.Trade
}

func (e TradesExecuted) EventType() Type    { return TypeTradesExecuted }
func (e TradesExecuted) PairSymbol() string { return e.Pair }

// SettlementFailed: a downstream settlement attempt for a trade did not
// succeed. The trade itself stands; this is monitoring/retry input only.
type SettlementFailed struct {
	Trade  types.Trade
	Reason string
}

func (e SettlementFailed) EventType() Type    { return TypeSettlementFailed }
func (e SettlementFailed) PairSymbol() string { return e.Trade.Pair }
