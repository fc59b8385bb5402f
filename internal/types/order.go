package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SideType identifies which side of the book an order belongs to.
type SideType int8

const (
	NoActionSide SideType = iota
	Buy
	Sell
)

func (s SideType) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// Opposite returns the side an order matches against.
func (s SideType) Opposite() SideType {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderKind distinguishes limit orders (which may rest) from market orders
// (which never do).
type OrderKind int8

const (
	NoActionKind OrderKind = iota
	LimitOrder
	MarketOrder
)

func (k OrderKind) String() string {
	switch k {
	case LimitOrder:
		return "limit"
	case MarketOrder:
		return "market"
	default:
		return "unknown"
	}
}

// OrderStatus tracks the lifecycle of an order. Filled and Cancelled are
// terminal; a terminal order is never mutated again.
type OrderStatus string

const (
	StatusPending         OrderStatus = "PENDING"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusFilled          OrderStatus = "FILLED"
	StatusCancelled       OrderStatus = "CANCELLED"
)

// Terminal reports whether no further state transitions are allowed.
func (s OrderStatus) Terminal() bool {
	return s == StatusFilled || s == StatusCancelled
}

// Order is one trading intent: immutable identity plus mutable fill state.
// Quantity, Remaining and Filled always satisfy Filled + Remaining == Quantity.
type Order struct {
	ID       uint64    `json:"order_id"`
	Sequence uint64    `json:"sequence"`
	Pair     string    `json:"pair"`
	Owner    string    `json:"owner"`
	Kind     OrderKind `json:"kind"`
	Side     SideType  `json:"side"`

	// Price is the limit price. Zero for market orders, which always execute
	// at the resting counterparty's price.
	Price decimal.Decimal `json:"price"`

	Quantity  decimal.Decimal `json:"quantity"`
	Remaining decimal.Decimal `json:"remaining"`
	Filled    decimal.Decimal `json:"filled"`

	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewOrder builds a pending order with the full quantity remaining.
// The pair symbol is normalized to uppercase.
func NewOrder(id uint64, pair, owner string, kind OrderKind, side SideType, price, quantity decimal.Decimal) *Order {
	return &Order{
		ID:        id,
		Pair:      NormalizePair(pair),
		Owner:     owner,
		Kind:      kind,
		Side:      side,
		Price:     price,
		Quantity:  quantity,
		Remaining: quantity,
		Filled:    decimal.Zero,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// NormalizePair uppercases and trims a trading-pair symbol.
func NormalizePair(pair string) string {
	return strings.ToUpper(strings.TrimSpace(pair))
}

// Fill records qty traded against this order, moving it to PartiallyFilled or
// Filled. It is the only way fill state changes.
func (o *Order) Fill(qty decimal.Decimal) error {
	if o.Status.Terminal() {
		return fmt.Errorf("order %d is %s and cannot be filled", o.ID, o.Status)
	}
	if qty.Sign() <= 0 {
		return fmt.Errorf("fill quantity must be positive, got %s", qty)
	}
	if qty.GreaterThan(o.Remaining) {
		return fmt.Errorf("fill %s exceeds remaining %s on order %d", qty, o.Remaining, o.ID)
	}

	o.Remaining = o.Remaining.Sub(qty)
	o.Filled = o.Filled.Add(qty)

	if o.Remaining.IsZero() {
		o.Status = StatusFilled
	} else {
		o.Status = StatusPartiallyFilled
	}
	return nil
}

// Cancel moves the order to its terminal Cancelled state. Cancelling an
// already-terminal order is rejected; callers treat that as "not found".
func (o *Order) Cancel() error {
	if o.Status.Terminal() {
		return fmt.Errorf("order %d is already %s", o.ID, o.Status)
	}
	o.Status = StatusCancelled
	return nil
}

// Conserved reports whether filled + remaining still equals the original
// quantity. A false result means the book state is corrupt.
func (o *Order) Conserved() bool {
	return o.Filled.Add(o.Remaining).Equal(o.Quantity)
}

// Open reports whether the order can still trade.
func (o *Order) Open() bool {
	return !o.Status.Terminal()
}
